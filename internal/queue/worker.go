package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
)

const popTimeout = 1 * time.Second

// Handler processes one task. The supplied context carries the per-job
// deadline; returning an error triggers a retry until attempts are
// exhausted.
type Handler func(ctx context.Context, task *models.Task) error

// ExhaustedFunc is called when a task has used up all its attempts.
type ExhaustedFunc func(ctx context.Context, task *models.Task, err error)

// Worker consumes tasks from the queue with a fixed pool of goroutines.
type Worker struct {
	client      *redis.Client
	queue       *Queue
	handler     Handler
	onExhausted ExhaustedFunc
	logger      logger.Logger

	concurrency int
	jobTimeout  time.Duration
	maxAttempts int

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// WorkerConfig holds configuration options
type WorkerConfig struct {
	Concurrency int
	JobTimeout  time.Duration
	MaxAttempts int
}

// NewWorker creates a worker pool reading from q.
func NewWorker(
	client *redis.Client,
	q *Queue,
	handler Handler,
	onExhausted ExhaustedFunc,
	cfg WorkerConfig,
	log logger.Logger,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 600 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Worker{
		client:      client,
		queue:       q,
		handler:     handler,
		onExhausted: onExhausted,
		logger:      log,
		concurrency: cfg.Concurrency,
		jobTimeout:  cfg.JobTimeout,
		maxAttempts: cfg.MaxAttempts,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}

	w.logger.Info("Worker pool started",
		logger.Int("concurrency", w.concurrency),
		logger.Duration("job_timeout", w.jobTimeout),
		logger.Int("max_attempts", w.maxAttempts))
}

// Stop gracefully stops the worker, waiting for in-flight tasks.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker pool stopped")
}

// IsRunning returns whether the worker is currently running
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		res, err := w.client.BRPop(ctx, popTimeout, w.queue.name).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			w.logger.Error("Failed to pop task", logger.Error(err))
			// Back off so a broken connection does not spin the loop.
			select {
			case <-time.After(popTimeout):
			case <-w.stopChan:
				return
			}
			continue
		}

		// BRPOP returns [key, value].
		var task models.Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			w.logger.Error("Dropping malformed task", logger.Error(err))
			continue
		}

		w.processOne(ctx, &task)
	}
}

func (w *Worker) processOne(ctx context.Context, task *models.Task) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := w.handler(jobCtx, task)
	if err == nil {
		w.logger.Info("Job completed",
			logger.String("job_id", task.JobID),
			logger.Duration("elapsed", time.Since(start)))
		return
	}

	w.logger.Error("Job attempt failed",
		logger.String("job_id", task.JobID),
		logger.Int("attempt", task.Attempt),
		logger.Error(err))

	if task.Attempt+1 >= w.maxAttempts {
		if w.onExhausted != nil {
			w.onExhausted(ctx, task, err)
		}
		return
	}

	retry := *task
	retry.Attempt++
	if enqErr := w.queue.Enqueue(ctx, &retry); enqErr != nil {
		w.logger.Error("Failed to requeue job",
			logger.String("job_id", task.JobID),
			logger.Error(enqErr))
		if w.onExhausted != nil {
			w.onExhausted(ctx, task, err)
		}
	}
}
