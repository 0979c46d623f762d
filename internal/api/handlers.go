package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
)

const healthCheckTimeout = 2 * time.Second

// submitJob handles POST /api/v1/jobs.
func (r *Router) submitJob(c *gin.Context) {
	var req models.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := r.orch.Submit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDescriptionTooShort),
			errors.Is(err, models.ErrInvalidMethod),
			errors.Is(err, models.ErrInvalidLimit):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			r.logger.Error("Job submission failed", logger.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit job"})
		}
		return
	}

	if resp.Cached {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// getJob handles GET /api/v1/jobs/:id. Completed jobs carry the full
// result payload inline.
func (r *Router) getJob(c *gin.Context) {
	id := c.Param("id")

	job, err := r.store.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		r.logger.Error("Failed to load job",
			logger.String("job_id", id),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	response := gin.H{"job": job}
	if job.Status == models.StatusCompleted {
		result, err := r.store.GetResult(c.Request.Context(), id)
		if err != nil && !errors.Is(err, models.ErrResultNotFound) {
			r.logger.Error("Failed to load job result",
				logger.String("job_id", id),
				logger.Error(err))
		}
		if result != nil {
			response["result"] = result
		}
	}

	c.JSON(http.StatusOK, response)
}

// listCandidate is the reduced per-candidate view used in job listings.
type listCandidate struct {
	LinkedInURL     string                `json:"linkedin_url"`
	FitScore        float64               `json:"fit_score"`
	OutreachMessage string                `json:"outreach_message"`
	ScoreBreakdown  models.ScoreBreakdown `json:"score_breakdown"`
	Passed          bool                  `json:"passed"`
}

// listItem is one row of the job listing. Completed jobs carry the reduced
// candidate view; other statuses carry the job record alone.
type listItem struct {
	*models.Job
	Candidates []listCandidate `json:"candidates,omitempty"`
}

// listJobs handles GET /api/v1/jobs with an optional ?status= filter.
func (r *Router) listJobs(c *gin.Context) {
	status := models.JobStatus(c.Query("status"))
	switch status {
	case "", models.StatusQueued, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter: " + string(status)})
		return
	}

	jobs, err := r.store.ListJobs(c.Request.Context(), status)
	if err != nil {
		r.logger.Error("Failed to list jobs", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	items := make([]listItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, listItem{Job: job, Candidates: r.listCandidates(c.Request.Context(), job)})
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  items,
		"count": len(items),
	})
}

// listCandidates loads the reduced candidate view for a completed job. A
// missing or unreadable result degrades to no candidates rather than failing
// the listing.
func (r *Router) listCandidates(ctx context.Context, job *models.Job) []listCandidate {
	if job.Status != models.StatusCompleted {
		return nil
	}

	result, err := r.store.GetResult(ctx, job.ID)
	if err != nil {
		if !errors.Is(err, models.ErrResultNotFound) {
			r.logger.Error("Failed to load result for listing",
				logger.String("job_id", job.ID),
				logger.Error(err))
		}
		return nil
	}

	candidates := make([]listCandidate, 0, len(result.Candidates))
	for _, cand := range result.Candidates {
		candidates = append(candidates, listCandidate{
			LinkedInURL:     cand.LinkedInURL,
			FitScore:        cand.FitScore,
			OutreachMessage: cand.OutreachMessage,
			ScoreBreakdown:  cand.ScoreBreakdown,
			Passed:          cand.Passed,
		})
	}
	return candidates
}

// invalidateCache handles DELETE /api/v1/jobs/:id/cache. The job status
// record survives; only result payloads are dropped.
func (r *Router) invalidateCache(c *gin.Context) {
	id := c.Param("id")

	if err := r.store.InvalidateCache(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		r.logger.Error("Cache invalidation failed",
			logger.String("job_id", id),
			logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": id,
		"status": "cache invalidated",
	})
}

// getStats handles GET /api/v1/stats. Returns aggregate pipeline counters
// per search method plus the most recent completed jobs.
func (r *Router) getStats(c *gin.Context) {
	if r.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats tracking is not enabled"})
		return
	}

	stats, err := r.metrics.GetStats(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to load pipeline stats", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	limit := 0
	if raw := c.Query("recent"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}
	recent, err := r.metrics.GetRecentJobs(c.Request.Context(), limit)
	if err != nil {
		r.logger.Error("Failed to load recent jobs", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":       stats,
		"recent_jobs": recent,
	})
}

// health handles GET /health. Infrastructure trouble degrades the report
// but the endpoint itself stays up.
func (r *Router) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	checks := gin.H{}

	start := time.Now()
	if err := r.store.Ping(ctx); err != nil {
		status = "degraded"
		checks["redis"] = gin.H{
			"healthy":    false,
			"error":      err.Error(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
	} else {
		checks["redis"] = gin.H{
			"healthy":    true,
			"latency_ms": time.Since(start).Milliseconds(),
		}
	}

	if depth, err := r.queue.Len(ctx); err != nil {
		status = "degraded"
		checks["queue"] = gin.H{"healthy": false, "error": err.Error()}
	} else {
		checks["queue"] = gin.H{"healthy": true, "depth": depth}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"service": "sourcing",
		"version": serviceVersion,
		"checks":  checks,
	})
}
