package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/north-cloud/sourcing/internal/config"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
	"github.com/north-cloud/sourcing/internal/queue"
	"github.com/north-cloud/sourcing/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewNopLogger()
	cfg := &config.Config{}
	cfg.Server.ShutdownTimeout = time.Second

	st := store.New(client, log)
	q := queue.New(client, "test:jobs", log)

	a := &App{
		config:      cfg,
		logger:      log,
		redisClient: client,
		store:       st,
		queue:       q,
	}
	a.worker = queue.NewWorker(client, q, func(context.Context, *models.Task) error {
		return nil
	}, a.onTaskExhausted, queue.WorkerConfig{
		Concurrency: 1,
		JobTimeout:  time.Second,
		MaxAttempts: 1,
	}, log)
	return a
}

func TestRunWorkerStopsOnContextCancel(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, false, true) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker mode did not stop after context cancel")
	}
	assert.False(t, a.worker.IsRunning())
}

func TestOnTaskExhaustedMarksJobFailed(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	job := models.NewJob("Senior Go developer wanted", models.MethodRapidAPI, 5, "fp-1")
	require.NoError(t, a.store.SaveJob(ctx, job))

	a.onTaskExhausted(ctx, &models.Task{JobID: job.ID, Attempt: 2}, errors.New("search provider unavailable"))

	got, err := a.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "failed after 3 attempts")
}
