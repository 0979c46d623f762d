// Package app provides the main application lifecycle management for the
// sourcing service: dependency construction, the HTTP API, the queue worker
// pool, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/north-cloud/sourcing/internal/ai"
	"github.com/north-cloud/sourcing/internal/api"
	"github.com/north-cloud/sourcing/internal/artifacts"
	"github.com/north-cloud/sourcing/internal/config"
	"github.com/north-cloud/sourcing/internal/extract"
	"github.com/north-cloud/sourcing/internal/fetch"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/metrics"
	"github.com/north-cloud/sourcing/internal/models"
	"github.com/north-cloud/sourcing/internal/orchestrator"
	"github.com/north-cloud/sourcing/internal/outreach"
	"github.com/north-cloud/sourcing/internal/queue"
	sourcingredis "github.com/north-cloud/sourcing/internal/redis"
	"github.com/north-cloud/sourcing/internal/scoring"
	"github.com/north-cloud/sourcing/internal/search"
	"github.com/north-cloud/sourcing/internal/store"
)

// App represents the sourcing application with all its dependencies.
type App struct {
	config        *config.Config
	logger        logger.Logger
	redisClient   *redis.Client
	store         *store.Store
	queue         *queue.Queue
	orchestrator  *orchestrator.Orchestrator
	metrics       *metrics.Tracker
	worker        *queue.Worker
	artifactStore *artifacts.Store
	sweeper       *cron.Cron
	httpServer    *http.Server
	version       string
}

// Options contains configuration for creating a new App.
type Options struct {
	ConfigPath string
	Version    string
}

// New creates a new App instance with all dependencies initialized.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "sourcing"),
		logger.String("version", opts.Version),
	)

	redisClient, err := sourcingredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	st := store.New(redisClient, appLogger)
	q := queue.New(redisClient, cfg.Worker.QueueName, appLogger)

	artifactStore, err := artifacts.NewStore(cfg.Artifacts.Dir, appLogger)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("create artifact store: %w", err)
	}

	generator, err := ai.NewGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("create content generator: %w", err)
	}

	parser := search.NewParser(generator, appLogger)
	searcher := search.NewSearcher()

	google := search.NewGoogleProvider(parser, cfg.Search.UserAgent, cfg.Search.RequestDelay, appLogger)
	searcher.Register(models.MethodGoogleCrawler, google)
	searcher.Register(models.MethodGoogleTwoPhase, google)

	if cfg.Search.RapidAPIKey != "" {
		rapid := search.NewRapidAPIProvider(
			parser,
			"https://"+cfg.Search.RapidAPIHost,
			cfg.Search.RapidAPIKey,
			cfg.Search.RapidAPIHost,
			appLogger,
		)
		searcher.Register(models.MethodRapidAPI, rapid)
	} else {
		appLogger.Warn("RapidAPI key not configured, rapid_api search method disabled")
	}

	var login fetch.LoginFunc
	if cfg.Search.LinkedInEmail != "" && cfg.Search.LinkedInPassword != "" {
		login = fetch.NewFormLogin(cfg.Search.LinkedInEmail, cfg.Search.LinkedInPassword, cfg.Search.UserAgent, appLogger)
	}

	fetcher := fetch.NewFetcher(fetch.Config{
		SessionPath:   cfg.Artifacts.SessionPath,
		SessionMaxAge: cfg.Artifacts.SessionMaxAge,
		UserAgent:     cfg.Search.UserAgent,
		RequestDelay:  cfg.Search.RequestDelay,
	}, login, appLogger)

	pipeline := extract.NewPipeline(fetcher, artifactStore, generator, appLogger)
	scorer := scoring.NewScorer(generator, cfg.Scoring.PassThreshold, appLogger)
	outreachGen := outreach.NewGenerator(generator, appLogger)

	orch := orchestrator.New(st, q, searcher, pipeline, scorer, outreachGen, orchestrator.Config{
		DefaultMethod: cfg.Search.Method,
		DefaultLimit:  config.DefaultCandidateLimit(),
		MaxLimit:      config.MaxCandidateLimit(),
	}, appLogger)

	tracker := metrics.NewTracker(redisClient, models.Methods(), appLogger)
	orch.SetMetrics(tracker)

	app := &App{
		config:        cfg,
		logger:        appLogger,
		redisClient:   redisClient,
		store:         st,
		queue:         q,
		orchestrator:  orch,
		metrics:       tracker,
		artifactStore: artifactStore,
		version:       opts.Version,
	}

	app.worker = queue.NewWorker(redisClient, q, orch.Run, app.onTaskExhausted, queue.WorkerConfig{
		Concurrency: cfg.Worker.Concurrency,
		JobTimeout:  cfg.Worker.JobTimeout,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}, appLogger)

	if cfg.Artifacts.SweepEnabled {
		app.sweeper = cron.New()
		if _, err := app.sweeper.AddFunc(cfg.Artifacts.SweepSchedule, app.sweepArtifacts); err != nil {
			_ = appLogger.Sync()
			return nil, fmt.Errorf("schedule artifact sweep: %w", err)
		}
	}

	return app, nil
}

// onTaskExhausted records the terminal failure when a task has used up all
// its queue attempts.
func (a *App) onTaskExhausted(ctx context.Context, task *models.Task, cause error) {
	reason := fmt.Sprintf("failed after %d attempts: %v", task.Attempt+1, cause)
	if err := a.store.MarkFailed(ctx, task.JobID, reason); err != nil && !errors.Is(err, models.ErrJobNotFound) {
		a.logger.Error("Failed to record exhausted task",
			logger.String("job_id", task.JobID),
			logger.Error(err))
	}
}

// sweepArtifacts removes scrape artifacts older than the configured age.
func (a *App) sweepArtifacts() {
	removed, err := a.artifactStore.Sweep(a.config.Artifacts.SweepMaxAge)
	if err != nil {
		a.logger.Error("Artifact sweep failed", logger.Error(err))
		return
	}
	a.logger.Info("Artifact sweep finished", logger.Int("removed", removed))
}

// RunAPI starts the HTTP server and blocks until shutdown.
func (a *App) RunAPI(ctx context.Context) error {
	return a.run(ctx, true, false)
}

// RunWorker starts the queue worker pool and blocks until shutdown.
func (a *App) RunWorker(ctx context.Context) error {
	return a.run(ctx, false, true)
}

// Run starts both the HTTP server and the worker pool in one process.
func (a *App) Run(ctx context.Context) error {
	return a.run(ctx, true, true)
}

func (a *App) run(ctx context.Context, serveHTTP, runWorker bool) error {
	serverErr := make(chan error, 1)

	if serveHTTP {
		router := api.NewRouter(a.orchestrator, a.store, a.queue, a.metrics, a.config, a.logger)
		a.httpServer = router.NewServer()

		go func() {
			a.logger.Info("Starting HTTP server",
				logger.String("address", a.config.Server.Address))
			if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	if runWorker {
		a.worker.Start(ctx)
		if a.sweeper != nil {
			a.sweeper.Start()
			a.logger.Info("Artifact sweep scheduled",
				logger.String("schedule", a.config.Artifacts.SweepSchedule))
		}
	}

	err := a.waitForShutdown(ctx, serverErr)

	if runWorker {
		if a.sweeper != nil {
			a.sweeper.Stop()
		}
		a.worker.Stop()
	}
	a.shutdownHTTPServer()

	a.logger.Info("Service stopped")
	return err
}

// waitForShutdown blocks until a signal arrives, the context is cancelled,
// or the HTTP server fails.
func (a *App) waitForShutdown(ctx context.Context, serverErr chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully",
			logger.String("signal", sig.String()))
		return nil

	case <-ctx.Done():
		a.logger.Info("Shutting down, context cancelled")
		return nil

	case err := <-serverErr:
		a.logger.Error("HTTP server error", logger.Error(err))
		return err
	}
}

// shutdownHTTPServer gracefully shuts down the HTTP server.
func (a *App) shutdownHTTPServer() {
	if a.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

// Close cleans up resources.
func (a *App) Close() error {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}
