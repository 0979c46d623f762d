// Package queue provides the Redis-backed work queue connecting job
// submission to the background worker pool. Delivery is at least once:
// a task re-enters the queue on failure until its attempts are exhausted,
// so handlers must be idempotent.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
)

// Queue is the producer side of the work queue.
type Queue struct {
	client *redis.Client
	name   string
	logger logger.Logger
}

func New(client *redis.Client, name string, log logger.Logger) *Queue {
	return &Queue{client: client, name: name, logger: log}
}

// Enqueue pushes a task onto the queue.
func (q *Queue) Enqueue(ctx context.Context, task *models.Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task for job %s: %w", task.JobID, err)
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", task.JobID, err)
	}

	q.logger.Debug("Enqueued job",
		logger.String("job_id", task.JobID),
		logger.Int("attempt", task.Attempt))
	return nil
}

// Len returns the number of tasks waiting in the queue.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
