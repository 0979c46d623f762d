// Package store persists job status, checkpoints, and result payloads in
// Redis. Job records live in hashes so individual fields can be updated at
// stage boundaries without rewriting the whole record; result payloads are
// stored twice, under a job-scoped key with no expiry and under the request
// fingerprint with a freshness window, so identical requests can be served
// from cache.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
)

// CacheTTL is the freshness window for fingerprint-keyed result entries.
const CacheTTL = 7 * 24 * time.Hour

// checkpointTTL bounds how long per-stage checkpoints survive; a retry far
// outside this window should redo the work.
const checkpointTTL = 24 * time.Hour

func jobKey(id string) string { return "job:" + id }
func jobResultKey(id string) string { return "results:job:" + id }
func cacheResultKey(fp string) string { return "results:cache:" + fp }

func checkpointKey(id, stage string) string {
	return fmt.Sprintf("checkpoint:job:%s:%s", id, stage)
}

// jobsIndexKey orders all known job ids by creation time.
const jobsIndexKey = "jobs:index"

// Store is the Redis-backed job status and result store.
type Store struct {
	client *redis.Client
	logger logger.Logger
}

func New(client *redis.Client, log logger.Logger) *Store {
	return &Store{client: client, logger: log}
}

// Ping reports whether the backing Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveJob writes the full job record and registers it in the job index.
func (s *Store) SaveJob(ctx context.Context, job *models.Job) error {
	fields := map[string]any{
		"id":              job.ID,
		"fingerprint":     job.Fingerprint,
		"job_description": job.JobDescription,
		"search_method":   job.SearchMethod,
		"max_candidates":  job.MaxCandidates,
		"status":          string(job.Status),
		"progress":        job.Progress,
		"error":           job.Error,
		"created_at":      job.CreatedAt.Format(time.RFC3339Nano),
	}
	if job.StartedAt != nil {
		fields["started_at"] = job.StartedAt.Format(time.RFC3339Nano)
	}
	if job.CompletedAt != nil {
		fields["completed_at"] = job.CompletedAt.Format(time.RFC3339Nano)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(job.ID), fields)
	pipe.ZAdd(ctx, jobsIndexKey, redis.Z{
		Score:  float64(job.CreatedAt.UnixNano()),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob loads a job record by id.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, models.ErrJobNotFound
	}
	return jobFromFields(fields)
}

// ListJobs returns all jobs, newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	ids, err := s.client.ZRevRange(ctx, jobsIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]*models.Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if err != nil {
			if err == models.ErrJobNotFound {
				// Index entry outlived the record; skip it.
				continue
			}
			return nil, err
		}
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// MarkProcessing transitions a job to processing and stamps its start time.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.updateJob(ctx, id, map[string]any{
		"status":     string(models.StatusProcessing),
		"started_at": time.Now().UTC().Format(time.RFC3339Nano),
		"error":      "",
	})
}

// MarkCompleted transitions a job to completed.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	return s.updateJob(ctx, id, map[string]any{
		"status":       string(models.StatusCompleted),
		"completed_at": time.Now().UTC().Format(time.RFC3339Nano),
		"progress":     "",
	})
}

// MarkFailed transitions a job to failed and records the failure reason.
func (s *Store) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.updateJob(ctx, id, map[string]any{
		"status":       string(models.StatusFailed),
		"completed_at": time.Now().UTC().Format(time.RFC3339Nano),
		"error":        reason,
	})
}

// SetProgress records a human-readable progress message for a running job.
func (s *Store) SetProgress(ctx context.Context, id, message string) error {
	return s.updateJob(ctx, id, map[string]any{"progress": message})
}

func (s *Store) updateJob(ctx context.Context, id string, fields map[string]any) error {
	exists, err := s.client.Exists(ctx, jobKey(id)).Result()
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if exists == 0 {
		return models.ErrJobNotFound
	}
	if err := s.client.HSet(ctx, jobKey(id), fields).Err(); err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

// SaveResult persists a completed job's result payload under both the
// job-scoped key and the request fingerprint.
func (s *Store) SaveResult(ctx context.Context, fingerprint string, result *models.JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for job %s: %w", result.JobID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobResultKey(result.JobID), data, 0)
	pipe.Set(ctx, cacheResultKey(fingerprint), data, CacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save result for job %s: %w", result.JobID, err)
	}

	s.logger.Debug("Saved job result",
		logger.String("job_id", result.JobID),
		logger.String("fingerprint", fingerprint))
	return nil
}

// GetResult loads the result payload for a job id.
func (s *Store) GetResult(ctx context.Context, jobID string) (*models.JobResult, error) {
	return s.getResult(ctx, jobResultKey(jobID))
}

// GetCachedResult probes the fingerprint cache for a previously computed
// result. It returns models.ErrResultNotFound on a miss.
func (s *Store) GetCachedResult(ctx context.Context, fingerprint string) (*models.JobResult, error) {
	return s.getResult(ctx, cacheResultKey(fingerprint))
}

func (s *Store) getResult(ctx context.Context, key string) (*models.JobResult, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, models.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", key, err)
	}

	var result models.JobResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse result %s: %w", key, err)
	}
	return &result, nil
}

// InvalidateCache removes the cached result for a job's fingerprint along
// with the job-scoped result payload. The job status record is kept so the
// job remains visible in listings.
func (s *Store) InvalidateCache(ctx context.Context, jobID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	keys := []string{jobResultKey(jobID)}
	if job.Fingerprint != "" {
		keys = append(keys, cacheResultKey(job.Fingerprint))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate cache for job %s: %w", jobID, err)
	}

	s.logger.Info("Invalidated cached results",
		logger.String("job_id", jobID),
		logger.String("fingerprint", job.Fingerprint))
	return nil
}

// SetCheckpoint records that a pipeline stage finished for a job, with the
// stage's output payload so a retry can resume past it.
func (s *Store) SetCheckpoint(ctx context.Context, jobID, stage string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode checkpoint %s for job %s: %w", stage, jobID, err)
	}
	if err := s.client.Set(ctx, checkpointKey(jobID, stage), data, checkpointTTL).Err(); err != nil {
		return fmt.Errorf("set checkpoint %s for job %s: %w", stage, jobID, err)
	}
	return nil
}

// GetCheckpoint loads a stage checkpoint into out. It returns false when no
// checkpoint exists for the stage.
func (s *Store) GetCheckpoint(ctx context.Context, jobID, stage string, out any) (bool, error) {
	data, err := s.client.Get(ctx, checkpointKey(jobID, stage)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get checkpoint %s for job %s: %w", stage, jobID, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse checkpoint %s for job %s: %w", stage, jobID, err)
	}
	return true, nil
}

// ClearCheckpoints removes all stage checkpoints for a job.
func (s *Store) ClearCheckpoints(ctx context.Context, jobID string, stages ...string) error {
	keys := make([]string, 0, len(stages))
	for _, stage := range stages {
		keys = append(keys, checkpointKey(jobID, stage))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear checkpoints for job %s: %w", jobID, err)
	}
	return nil
}

func jobFromFields(fields map[string]string) (*models.Job, error) {
	limit, err := strconv.Atoi(fields["max_candidates"])
	if err != nil {
		return nil, fmt.Errorf("parse max_candidates: %w", err)
	}

	job := &models.Job{
		ID:             fields["id"],
		Fingerprint:    fields["fingerprint"],
		JobDescription: fields["job_description"],
		SearchMethod:   fields["search_method"],
		MaxCandidates:  limit,
		Status:         models.JobStatus(fields["status"]),
		Progress:       fields["progress"],
		Error:          fields["error"],
	}

	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if v := fields["started_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		job.StartedAt = &t
	}
	if v := fields["completed_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		job.CompletedAt = &t
	}
	return job, nil
}
