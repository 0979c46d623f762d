// Package api exposes the sourcing pipeline over HTTP: job submission,
// status and result retrieval, listings, and cache invalidation.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/north-cloud/sourcing/internal/config"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/metrics"
	"github.com/north-cloud/sourcing/internal/orchestrator"
	"github.com/north-cloud/sourcing/internal/queue"
	"github.com/north-cloud/sourcing/internal/store"
)

const serviceVersion = "1.0.0"

// Router holds the API dependencies.
type Router struct {
	orch    *orchestrator.Orchestrator
	store   *store.Store
	queue   *queue.Queue
	metrics metrics.PipelineTracker
	cfg     *config.Config
	logger  logger.Logger
}

// NewRouter creates a new API router.
func NewRouter(orch *orchestrator.Orchestrator, st *store.Store, q *queue.Queue, tracker metrics.PipelineTracker, cfg *config.Config, log logger.Logger) *Router {
	return &Router{
		orch:    orch,
		store:   st,
		queue:   q,
		metrics: tracker,
		cfg:     cfg,
		logger:  log,
	}
}

// Engine builds the gin engine with the full middleware chain and routes.
func (r *Router) Engine() *gin.Engine {
	if r.cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recoveryMiddleware(r.logger))
	engine.Use(requestIDMiddleware())
	engine.Use(loggerMiddleware(r.logger))
	engine.Use(corsMiddleware(r.cfg.Server.CORSOrigins))

	engine.GET("/health", r.health)

	v1 := engine.Group("/api/v1")
	v1.GET("/stats", r.getStats)

	jobs := v1.Group("/jobs")
	jobs.POST("", r.submitJob)
	jobs.GET("", r.listJobs)
	jobs.GET("/:id", r.getJob)
	jobs.DELETE("/:id/cache", r.invalidateCache)

	return engine
}

// NewServer wraps the engine in an http.Server with the configured
// timeouts.
func (r *Router) NewServer() *http.Server {
	return &http.Server{
		Addr:         r.cfg.Server.Address,
		Handler:      r.Engine(),
		ReadTimeout:  r.cfg.Server.ReadTimeout,
		WriteTimeout: r.cfg.Server.WriteTimeout,
	}
}
