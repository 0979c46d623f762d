package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/north-cloud/sourcing/internal/logger"
)

func newTestTracker(t *testing.T, methods []string) (*Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewTracker(client, methods, logger.NewNopLogger()), mr
}

func TestTrackerRecordCompleted(t *testing.T) {
	tracker, _ := newTestTracker(t, []string{"rapid_api", "google_crawler"})
	ctx := context.Background()

	require.NoError(t, tracker.RecordCompleted(ctx, "rapid_api", 10, 4))
	require.NoError(t, tracker.RecordCompleted(ctx, "rapid_api", 5, 2))
	require.NoError(t, tracker.RecordFailed(ctx, "google_crawler"))

	stats, err := tracker.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalCompleted)
	assert.Equal(t, int64(1), stats.TotalFailed)
	assert.Equal(t, int64(15), stats.TotalScored)
	assert.Equal(t, int64(6), stats.TotalPassed)
	assert.False(t, stats.LastCompleted.IsZero())

	require.Len(t, stats.Methods, 2)
	assert.Equal(t, "rapid_api", stats.Methods[0].Name)
	assert.Equal(t, int64(2), stats.Methods[0].Completed)
	assert.Equal(t, int64(0), stats.Methods[0].Failed)
	assert.Equal(t, int64(1), stats.Methods[1].Failed)
}

func TestTrackerStatsEmpty(t *testing.T) {
	tracker, _ := newTestTracker(t, []string{"rapid_api"})

	stats, err := tracker.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.TotalCompleted)
	assert.True(t, stats.LastCompleted.IsZero())
}

func TestTrackerRecentJobs(t *testing.T) {
	tracker, _ := newTestTracker(t, []string{"rapid_api"})
	ctx := context.Background()

	first := RecentJob{
		JobID:           "job-1",
		SearchMethod:    "rapid_api",
		TotalCandidates: 10,
		Passed:          3,
		CompletedAt:     time.Now().Add(-time.Minute),
	}
	second := RecentJob{
		JobID:           "job-2",
		SearchMethod:    "rapid_api",
		TotalCandidates: 5,
		Passed:          5,
	}

	require.NoError(t, tracker.AddRecentJob(ctx, first))
	require.NoError(t, tracker.AddRecentJob(ctx, second))

	jobs, err := tracker.GetRecentJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	// Newest first
	assert.Equal(t, "job-2", jobs[0].JobID)
	assert.Equal(t, "job-1", jobs[1].JobID)
	assert.False(t, jobs[0].CompletedAt.IsZero())
}

func TestTrackerRecentJobsEmpty(t *testing.T) {
	tracker, _ := newTestTracker(t, []string{"rapid_api"})

	jobs, err := tracker.GetRecentJobs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestTrackerRecentJobsTrimmed(t *testing.T) {
	tracker, mr := newTestTracker(t, []string{"rapid_api"})
	ctx := context.Background()

	for range MaxRecentJobs + 10 {
		require.NoError(t, tracker.AddRecentJob(ctx, RecentJob{JobID: "job", SearchMethod: "rapid_api"}))
	}

	entries, err := mr.List(KeyRecentJobs)
	require.NoError(t, err)
	assert.Len(t, entries, MaxRecentJobs)
}
