package metrics

import (
	"context"
)

// PipelineTracker defines the interface for tracking pipeline metrics.
// This interface allows for easy testing and potential future implementations.
type PipelineTracker interface {
	// RecordCompleted records a completed job for a search method
	RecordCompleted(ctx context.Context, method string, scored, passed int) error
	// RecordFailed increments the failed job counter for a search method
	RecordFailed(ctx context.Context, method string) error
	// AddRecentJob adds a job to the recent jobs list
	AddRecentJob(ctx context.Context, job RecentJob) error
	// GetStats returns aggregated statistics
	GetStats(ctx context.Context) (*Stats, error)
	// GetRecentJobs returns recently completed jobs
	GetRecentJobs(ctx context.Context, limit int) ([]RecentJob, error)
}
