// Package orchestrator owns the sourcing job lifecycle: request validation
// and submission on one side, and the staged pipeline run executed by queue
// workers on the other. Each pipeline stage records a checkpoint in the
// status store, so a retried job resumes after the last stage that finished
// instead of repeating paid work.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/north-cloud/sourcing/internal/extract"
	"github.com/north-cloud/sourcing/internal/fingerprint"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/metrics"
	"github.com/north-cloud/sourcing/internal/models"
	"github.com/north-cloud/sourcing/internal/outreach"
	"github.com/north-cloud/sourcing/internal/profile"
	"github.com/north-cloud/sourcing/internal/queue"
	"github.com/north-cloud/sourcing/internal/scoring"
	"github.com/north-cloud/sourcing/internal/search"
	"github.com/north-cloud/sourcing/internal/store"
)

// minDescriptionLength is the shortest job description accepted, measured
// after trimming.
const minDescriptionLength = 10

// Pipeline stage names used for checkpoint keys.
const (
	stageSearch   = "search"
	stageProfiles = "profiles"
	stageScored   = "scored"
)

// Scorer evaluates profiles against a job description.
type Scorer interface {
	ScoreBatch(ctx context.Context, profiles []*profile.Profile, jobDescription string) *scoring.Result
}

// OutreachGenerator writes connection messages for scored candidates, keyed
// by profile URL.
type OutreachGenerator interface {
	Generate(ctx context.Context, candidates []*scoring.ScoredCandidate, jobDescription string) map[string]string
}

// Extractor is the two-phase fetch and extract pipeline.
type Extractor interface {
	FetchBatch(ctx context.Context, urls []string) *extract.FetchResult
	ProcessBatch(ctx context.Context, slugs []string) *extract.ProcessResult
}

// Config bounds request validation.
type Config struct {
	DefaultMethod string
	DefaultLimit  int
	MaxLimit      int
}

// Orchestrator composes the pipeline stages behind the job API.
type Orchestrator struct {
	store     *store.Store
	queue     *queue.Queue
	searcher  *search.Searcher
	extractor Extractor
	scorer    Scorer
	outreach  OutreachGenerator
	metrics   metrics.PipelineTracker
	cfg       Config
	logger    logger.Logger
}

func New(st *store.Store, q *queue.Queue, searcher *search.Searcher, extractor Extractor, scorer Scorer, out OutreachGenerator, cfg Config, log logger.Logger) *Orchestrator {
	if cfg.DefaultMethod == "" {
		cfg.DefaultMethod = models.MethodRapidAPI
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	return &Orchestrator{
		store:     st,
		queue:     q,
		searcher:  searcher,
		extractor: extractor,
		scorer:    scorer,
		outreach:  out,
		cfg:       cfg,
		logger:    log,
	}
}

// SetMetrics attaches a pipeline metrics tracker. Without one, completion
// and failure counters are simply not recorded.
func (o *Orchestrator) SetMetrics(m metrics.PipelineTracker) {
	o.metrics = m
}

// SubmitResponse is returned for a job submission. Cached submissions carry
// the previously computed result inline.
type SubmitResponse struct {
	JobID  string            `json:"job_id"`
	Status models.JobStatus  `json:"status"`
	Cached bool              `json:"cached"`
	Result *models.JobResult `json:"result,omitempty"`
}

// Submit validates a sourcing request, probes the result cache, and either
// returns a completed job immediately or enqueues a new one. A cached hit
// spends no search, scrape, or model capability at all.
func (o *Orchestrator) Submit(ctx context.Context, req *models.JobRequest) (*SubmitResponse, error) {
	description := strings.TrimSpace(req.JobDescription)
	if len(description) < minDescriptionLength {
		return nil, models.ErrDescriptionTooShort
	}

	method := req.SearchMethod
	if method == "" {
		method = o.cfg.DefaultMethod
	}
	if !models.ValidMethod(method) {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidMethod, method)
	}

	limit := req.MaxCandidates
	if limit == 0 {
		limit = o.cfg.DefaultLimit
	}
	if limit < 1 || limit > o.cfg.MaxLimit {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidLimit, limit)
	}

	fp := fingerprint.Key(description, method, limit)

	cached, err := o.store.GetCachedResult(ctx, fp)
	if err != nil && !errors.Is(err, models.ErrResultNotFound) {
		o.logger.Warn("Cache probe failed, treating as miss",
			logger.String("fingerprint", fp),
			logger.Error(err))
	}
	if cached != nil {
		return o.completeFromCache(ctx, description, method, limit, fp, cached)
	}

	job := models.NewJob(description, method, limit, fp)
	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	task := &models.Task{
		JobID:          job.ID,
		Fingerprint:    fp,
		JobDescription: description,
		SearchMethod:   method,
		MaxCandidates:  limit,
	}
	if err := o.queue.Enqueue(ctx, task); err != nil {
		if failErr := o.store.MarkFailed(ctx, job.ID, "enqueue failed: "+err.Error()); failErr != nil {
			o.logger.Error("Failed to mark unqueued job as failed",
				logger.String("job_id", job.ID),
				logger.Error(failErr))
		}
		return nil, err
	}

	o.logger.Info("Job submitted",
		logger.String("job_id", job.ID),
		logger.String("method", method),
		logger.Int("max_candidates", limit))
	return &SubmitResponse{JobID: job.ID, Status: models.StatusQueued}, nil
}

// completeFromCache records an already-completed job for a duplicate request
// and rebinds the cached payload to the new job id.
func (o *Orchestrator) completeFromCache(ctx context.Context, description, method string, limit int, fp string, cached *models.JobResult) (*SubmitResponse, error) {
	job := models.NewJob(description, method, limit, fp)
	now := time.Now().UTC()
	job.Status = models.StatusCompleted
	job.StartedAt = &now
	job.CompletedAt = &now

	result := *cached
	result.JobID = job.ID

	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	if err := o.store.SaveResult(ctx, fp, &result); err != nil {
		return nil, err
	}

	o.logger.Info("Job served from cache",
		logger.String("job_id", job.ID),
		logger.String("fingerprint", fp))
	return &SubmitResponse{
		JobID:  job.ID,
		Status: models.StatusCompleted,
		Cached: true,
		Result: &result,
	}, nil
}

// Run executes the full pipeline for one queued task. It is the queue
// worker handler; a returned error makes the queue retry the task, and each
// completed stage checkpoint keeps the retry from redoing that stage.
func (o *Orchestrator) Run(ctx context.Context, task *models.Task) error {
	log := o.logger.With(logger.String("job_id", task.JobID))
	log.Info("Starting sourcing pipeline",
		logger.String("method", task.SearchMethod),
		logger.Int("attempt", task.Attempt))

	if err := o.store.MarkProcessing(ctx, task.JobID); err != nil {
		return err
	}

	searchResult, err := o.runSearch(ctx, task, log)
	if err != nil {
		return o.fail(ctx, task, log, err)
	}

	profiles, err := o.runExtraction(ctx, task, searchResult, log)
	if err != nil {
		return o.fail(ctx, task, log, err)
	}

	scored, err := o.runScoring(ctx, task, profiles, log)
	if err != nil {
		return o.fail(ctx, task, log, err)
	}

	o.setProgress(ctx, task.JobID, "Generating outreach messages")
	messages := o.outreach.Generate(ctx, scored.Scored, task.JobDescription)

	result := o.assembleResult(task, searchResult, scored, messages)
	if err := o.store.SaveResult(ctx, task.Fingerprint, result); err != nil {
		return o.fail(ctx, task, log, err)
	}
	if err := o.store.MarkCompleted(ctx, task.JobID); err != nil {
		return o.fail(ctx, task, log, err)
	}

	if err := o.store.ClearCheckpoints(ctx, task.JobID, stageSearch, stageProfiles, stageScored); err != nil {
		log.Warn("Failed to clear stage checkpoints", logger.Error(err))
	}

	if o.metrics != nil {
		// Tracker failures are logged by the tracker and never fail the job.
		_ = o.metrics.RecordCompleted(ctx, task.SearchMethod, result.TotalCandidates, result.PassedCandidates)
		_ = o.metrics.AddRecentJob(ctx, metrics.RecentJob{
			JobID:           task.JobID,
			SearchMethod:    task.SearchMethod,
			TotalCandidates: result.TotalCandidates,
			Passed:          result.PassedCandidates,
			CompletedAt:     time.Now().UTC(),
		})
	}

	log.Info("Sourcing pipeline complete",
		logger.Int("total", result.TotalCandidates),
		logger.Int("passed", result.PassedCandidates),
		logger.String("pass_rate", result.PassRate))
	return nil
}

func (o *Orchestrator) runSearch(ctx context.Context, task *models.Task, log logger.Logger) (*search.Result, error) {
	var cached search.Result
	found, err := o.store.GetCheckpoint(ctx, task.JobID, stageSearch, &cached)
	if err != nil {
		log.Warn("Search checkpoint read failed", logger.Error(err))
	}
	if found {
		log.Info("Resuming from search checkpoint")
		return &cached, nil
	}

	o.setProgress(ctx, task.JobID, "Searching for candidates")
	result, err := o.searcher.Search(ctx, task.SearchMethod, task.JobDescription, task.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}

	log.Info("Search complete",
		logger.Int("urls", len(result.ProfileURLs)),
		logger.Int("profiles", len(result.Profiles)),
		logger.Float64("search_time", result.SearchTime))

	if err := o.store.SetCheckpoint(ctx, task.JobID, stageSearch, result); err != nil {
		log.Warn("Search checkpoint write failed", logger.Error(err))
	}
	return result, nil
}

// runExtraction turns search output into structured profiles. Providers
// that return full profiles bypass the scrape entirely; URL-only providers
// go through the two-phase pipeline.
func (o *Orchestrator) runExtraction(ctx context.Context, task *models.Task, searchResult *search.Result, log logger.Logger) ([]*profile.Profile, error) {
	var cached []*profile.Profile
	found, err := o.store.GetCheckpoint(ctx, task.JobID, stageProfiles, &cached)
	if err != nil {
		log.Warn("Profile checkpoint read failed", logger.Error(err))
	}
	if found {
		log.Info("Resuming from profile checkpoint", logger.Int("profiles", len(cached)))
		return cached, nil
	}

	var profiles []*profile.Profile
	switch {
	case len(searchResult.Profiles) > 0:
		profiles = searchResult.Profiles

	case len(searchResult.ProfileURLs) > 0:
		o.setProgress(ctx, task.JobID, "Fetching profile pages")
		fetched := o.extractor.FetchBatch(ctx, searchResult.ProfileURLs)
		if len(fetched.Slugs) == 0 {
			return nil, fmt.Errorf("profile fetch failed for all %d candidates", fetched.Total)
		}

		o.setProgress(ctx, task.JobID, "Extracting profile data")
		processed := o.extractor.ProcessBatch(ctx, fetched.Slugs)
		if len(processed.Profiles) == 0 {
			return nil, fmt.Errorf("profile extraction failed for all %d candidates", len(fetched.Slugs))
		}
		profiles = processed.Profiles
	}

	if err := o.store.SetCheckpoint(ctx, task.JobID, stageProfiles, profiles); err != nil {
		log.Warn("Profile checkpoint write failed", logger.Error(err))
	}
	return profiles, nil
}

func (o *Orchestrator) runScoring(ctx context.Context, task *models.Task, profiles []*profile.Profile, log logger.Logger) (*scoring.Result, error) {
	var cached scoring.Result
	found, err := o.store.GetCheckpoint(ctx, task.JobID, stageScored, &cached)
	if err != nil {
		log.Warn("Scoring checkpoint read failed", logger.Error(err))
	}
	if found {
		log.Info("Resuming from scoring checkpoint", logger.Int("scored", len(cached.Scored)))
		return &cached, nil
	}

	o.setProgress(ctx, task.JobID, "Scoring candidates")
	scored := o.scorer.ScoreBatch(ctx, profiles, task.JobDescription)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("Scoring complete",
		logger.Int("total", scored.Total),
		logger.Int("passed", len(scored.Passed)),
		logger.Float64("scoring_time", scored.ScoringTime))

	if err := o.store.SetCheckpoint(ctx, task.JobID, stageScored, scored); err != nil {
		log.Warn("Scoring checkpoint write failed", logger.Error(err))
	}
	return scored, nil
}

// assembleResult builds the persisted payload from the stage outputs.
func (o *Orchestrator) assembleResult(task *models.Task, searchResult *search.Result, scored *scoring.Result, messages map[string]string) *models.JobResult {
	candidates := make([]models.Candidate, 0, len(scored.Scored))
	for _, c := range scored.Scored {
		message, ok := messages[c.Profile.LinkedInURL]
		if !ok || message == "" {
			message = outreach.FallbackMessage
		}
		candidates = append(candidates, models.Candidate{
			Name:            c.Profile.Name,
			LinkedInURL:     c.Profile.LinkedInURL,
			FitScore:        c.Score,
			ScoreBreakdown:  c.Breakdown,
			Reasoning:       c.Reasoning,
			OutreachMessage: message,
			Headline:        c.Profile.Headline,
			Location:        c.Profile.Location,
			Passed:          c.Passed,
		})
	}

	return &models.JobResult{
		JobID:            task.JobID,
		TotalCandidates:  scored.Total,
		PassedCandidates: len(scored.Passed),
		FailedCandidates: len(scored.Failed),
		PassRate:         models.FormatPassRate(len(scored.Passed), scored.Total),
		SearchMethod:     task.SearchMethod,
		SearchTime:       searchResult.SearchTime,
		ScoringTime:      scored.ScoringTime,
		SearchQuery:      searchResult.Query,
		KeywordsUsed:     searchResult.Keywords,
		Candidates:       candidates,
	}
}

func (o *Orchestrator) fail(ctx context.Context, task *models.Task, log logger.Logger, cause error) error {
	log.Error("Sourcing pipeline failed", logger.Error(cause))
	if err := o.store.MarkFailed(ctx, task.JobID, cause.Error()); err != nil {
		log.Error("Failed to record job failure", logger.Error(err))
	}
	if o.metrics != nil {
		_ = o.metrics.RecordFailed(ctx, task.SearchMethod)
	}
	return cause
}

func (o *Orchestrator) setProgress(ctx context.Context, jobID, message string) {
	if err := o.store.SetProgress(ctx, jobID, message); err != nil {
		o.logger.Warn("Failed to record job progress",
			logger.String("job_id", jobID),
			logger.Error(err))
	}
}
