package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/north-cloud/sourcing/internal/logger"
)

// Tracker implements PipelineTracker using Redis
type Tracker struct {
	client  redis.UniversalClient
	keys    *RedisKeys
	logger  logger.Logger
	methods []string // For GetStats aggregation
}

// NewTracker creates a new pipeline metrics tracker
func NewTracker(client redis.UniversalClient, methods []string, log logger.Logger) *Tracker {
	return &Tracker{
		client:  client,
		keys:    NewRedisKeys(KeyPrefixMetrics),
		logger:  log,
		methods: methods,
	}
}

// RecordCompleted records a completed job for a search method along with its
// scored and passed candidate counts
func (t *Tracker) RecordCompleted(ctx context.Context, method string, scored, passed int) error {
	ttl := MetricsTTLDays * 24 * time.Hour

	// Use pipeline for atomic counter updates with TTL
	pipe := t.client.Pipeline()
	pipe.Incr(ctx, t.keys.Completed(method))
	pipe.Expire(ctx, t.keys.Completed(method), ttl)
	pipe.IncrBy(ctx, t.keys.Scored(method), int64(scored))
	pipe.Expire(ctx, t.keys.Scored(method), ttl)
	pipe.IncrBy(ctx, t.keys.Passed(method), int64(passed))
	pipe.Expire(ctx, t.keys.Passed(method), ttl)
	pipe.Set(ctx, KeyLastCompleted, time.Now().Format(time.RFC3339), 0)

	_, err := pipe.Exec(ctx)
	if err != nil {
		t.logger.Warn("Failed to record completed job",
			logger.String("method", method),
			logger.Error(err),
		)
		return fmt.Errorf("record completed job: %w", err)
	}

	return nil
}

// RecordFailed increments the failed job counter for a search method
func (t *Tracker) RecordFailed(ctx context.Context, method string) error {
	key := t.keys.Failed(method)
	ttl := MetricsTTLDays * 24 * time.Hour

	pipe := t.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		t.logger.Warn("Failed to increment failed counter",
			logger.String("method", method),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return fmt.Errorf("increment failed counter: %w", err)
	}

	return nil
}

// AddRecentJob adds a job to the recent jobs list
func (t *Tracker) AddRecentJob(ctx context.Context, job RecentJob) error {
	if job.CompletedAt.IsZero() {
		job.CompletedAt = time.Now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal recent job: %w", err)
	}

	ttl := RecentJobsTTLDays * 24 * time.Hour

	// Use pipeline for atomic operations: LPUSH, LTRIM, EXPIRE
	pipe := t.client.Pipeline()
	pipe.LPush(ctx, KeyRecentJobs, data)
	pipe.LTrim(ctx, KeyRecentJobs, 0, MaxRecentJobs-1)
	pipe.Expire(ctx, KeyRecentJobs, ttl)

	_, err = pipe.Exec(ctx)
	if err != nil {
		t.logger.Warn("Failed to add recent job",
			logger.String("job_id", job.JobID),
			logger.String("method", job.SearchMethod),
			logger.Error(err),
		)
		return fmt.Errorf("add recent job: %w", err)
	}

	return nil
}

// GetStats returns aggregated statistics using a Redis pipeline for atomic reads
func (t *Tracker) GetStats(ctx context.Context) (*Stats, error) {
	pipe := t.client.Pipeline()

	completedCmds := make(map[string]*redis.StringCmd)
	failedCmds := make(map[string]*redis.StringCmd)
	scoredCmds := make(map[string]*redis.StringCmd)
	passedCmds := make(map[string]*redis.StringCmd)

	for _, method := range t.methods {
		completedCmds[method] = pipe.Get(ctx, t.keys.Completed(method))
		failedCmds[method] = pipe.Get(ctx, t.keys.Failed(method))
		scoredCmds[method] = pipe.Get(ctx, t.keys.Scored(method))
		passedCmds[method] = pipe.Get(ctx, t.keys.Passed(method))
	}

	lastCompletedCmd := pipe.Get(ctx, KeyLastCompleted)

	// redis.Nil from missing counters is expected on a fresh instance
	_, execErr := pipe.Exec(ctx)
	if execErr != nil && !errors.Is(execErr, redis.Nil) {
		return nil, fmt.Errorf("execute pipeline: %w", execErr)
	}

	stats := &Stats{
		Methods: make([]MethodStats, 0, len(t.methods)),
	}

	for _, method := range t.methods {
		methodStats := MethodStats{Name: method}

		if v, err := completedCmds[method].Int64(); err == nil {
			methodStats.Completed = v
			stats.TotalCompleted += v
		}
		if v, err := failedCmds[method].Int64(); err == nil {
			methodStats.Failed = v
			stats.TotalFailed += v
		}
		if v, err := scoredCmds[method].Int64(); err == nil {
			methodStats.Scored = v
			stats.TotalScored += v
		}
		if v, err := passedCmds[method].Int64(); err == nil {
			methodStats.Passed = v
			stats.TotalPassed += v
		}

		stats.Methods = append(stats.Methods, methodStats)
	}

	if lastStr, err := lastCompletedCmd.Result(); err == nil && lastStr != "" {
		if last, parseErr := time.Parse(time.RFC3339, lastStr); parseErr == nil {
			stats.LastCompleted = last
		}
	}

	return stats, nil
}

// GetRecentJobs returns recently completed jobs, newest first
func (t *Tracker) GetRecentJobs(ctx context.Context, limit int) ([]RecentJob, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxRecentJobs {
		limit = MaxRecentJobs
	}

	results, err := t.client.LRange(ctx, KeyRecentJobs, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []RecentJob{}, nil
		}
		return nil, fmt.Errorf("get recent jobs: %w", err)
	}

	jobs := make([]RecentJob, 0, len(results))
	for _, result := range results {
		var job RecentJob
		if unmarshalErr := json.Unmarshal([]byte(result), &job); unmarshalErr != nil {
			t.logger.Warn("Failed to unmarshal recent job",
				logger.Error(unmarshalErr),
			)
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}
