package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/north-cloud/sourcing/internal/extract"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
	"github.com/north-cloud/sourcing/internal/profile"
	"github.com/north-cloud/sourcing/internal/queue"
	"github.com/north-cloud/sourcing/internal/scoring"
	"github.com/north-cloud/sourcing/internal/search"
	"github.com/north-cloud/sourcing/internal/store"
)

type stubProvider struct {
	calls  int
	result *search.Result
	err    error
}

func (p *stubProvider) Search(_ context.Context, _ string, _ int) (*search.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type stubExtractor struct {
	fetchCalls   int
	processCalls int
	profiles     []*profile.Profile
}

func (e *stubExtractor) FetchBatch(_ context.Context, urls []string) *extract.FetchResult {
	e.fetchCalls++
	slugs := make([]string, 0, len(urls))
	for _, u := range urls {
		slugs = append(slugs, profile.Slug(u))
	}
	return &extract.FetchResult{Total: len(urls), Fetched: len(urls), Slugs: slugs}
}

func (e *stubExtractor) ProcessBatch(_ context.Context, slugs []string) *extract.ProcessResult {
	e.processCalls++
	return &extract.ProcessResult{
		Total:     len(slugs),
		Processed: len(e.profiles),
		Profiles:  e.profiles,
	}
}

type stubScorer struct {
	calls     int
	passFirst int // how many leading profiles pass
}

func (s *stubScorer) ScoreBatch(_ context.Context, profiles []*profile.Profile, _ string) *scoring.Result {
	s.calls++
	result := &scoring.Result{Total: len(profiles), ScoringTime: 1.5}
	for i, p := range profiles {
		c := &scoring.ScoredCandidate{Profile: p, Score: 40}
		if i < s.passFirst {
			c.Score = 90
			c.Passed = true
			result.Passed = append(result.Passed, c)
		} else {
			result.Failed = append(result.Failed, c)
		}
		result.Scored = append(result.Scored, c)
	}
	return result
}

type stubOutreach struct {
	calls int
}

func (o *stubOutreach) Generate(_ context.Context, candidates []*scoring.ScoredCandidate, _ string) map[string]string {
	o.calls++
	messages := make(map[string]string, len(candidates))
	for _, c := range candidates {
		messages[c.Profile.LinkedInURL] = "Hi " + c.Profile.Name + "!"
	}
	return messages
}

type env struct {
	orch      *Orchestrator
	store     *store.Store
	queue     *queue.Queue
	provider  *stubProvider
	extractor *stubExtractor
	scorer    *stubScorer
	outreach  *stubOutreach
}

func testProfiles() []*profile.Profile {
	return []*profile.Profile{
		{Name: "Jane Doe", LinkedInURL: "https://www.linkedin.com/in/jane-doe", Headline: "Go Developer", Location: "Berlin"},
		{Name: "Jo Smith", LinkedInURL: "https://www.linkedin.com/in/jo-smith", Headline: "Platform Engineer"},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewNopLogger()
	st := store.New(client, log)
	q := queue.New(client, "test:jobs", log)

	provider := &stubProvider{result: &search.Result{
		Method:     models.MethodRapidAPI,
		Profiles:   testProfiles(),
		Keywords:   []string{"golang", "berlin"},
		Query:      `site:linkedin.com/in "golang" "berlin"`,
		SearchTime: 2.5,
	}}
	searcher := search.NewSearcher()
	searcher.Register(models.MethodRapidAPI, provider)
	searcher.Register(models.MethodGoogleTwoPhase, provider)

	extractor := &stubExtractor{profiles: testProfiles()}
	scorer := &stubScorer{passFirst: 1}
	out := &stubOutreach{}

	orch := New(st, q, searcher, extractor, scorer, out, Config{}, log)
	return &env{
		orch:      orch,
		store:     st,
		queue:     q,
		provider:  provider,
		extractor: extractor,
		scorer:    scorer,
		outreach:  out,
	}
}

func validRequest() *models.JobRequest {
	return &models.JobRequest{
		JobDescription: "Senior Go developer with Kubernetes experience in Berlin",
		SearchMethod:   models.MethodRapidAPI,
		MaxCandidates:  10,
	}
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*models.JobRequest)
		wantErr error
	}{
		{"short description", func(r *models.JobRequest) { r.JobDescription = "   short  " }, models.ErrDescriptionTooShort},
		{"unknown method", func(r *models.JobRequest) { r.SearchMethod = "bing" }, models.ErrInvalidMethod},
		{"negative limit", func(r *models.JobRequest) { r.MaxCandidates = -1 }, models.ErrInvalidLimit},
		{"limit above maximum", func(r *models.JobRequest) { r.MaxCandidates = 51 }, models.ErrInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := e.orch.Submit(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubmitAppliesDefaults(t *testing.T) {
	e := newEnv(t)
	req := &models.JobRequest{JobDescription: "Senior Go developer with Kubernetes experience"}

	resp, err := e.orch.Submit(context.Background(), req)
	require.NoError(t, err)

	job, err := e.store.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.MethodRapidAPI, job.SearchMethod)
	assert.Equal(t, 10, job.MaxCandidates)
}

func TestSubmitEnqueuesJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.orch.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, resp.Status)
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.JobID)

	job, err := e.store.GetJob(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, job.Status)
	assert.NotEmpty(t, job.Fingerprint)

	n, err := e.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunCompletesJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.orch.Submit(ctx, validRequest())
	require.NoError(t, err)

	job, err := e.store.GetJob(ctx, resp.JobID)
	require.NoError(t, err)
	task := &models.Task{
		JobID:          job.ID,
		Fingerprint:    job.Fingerprint,
		JobDescription: job.JobDescription,
		SearchMethod:   job.SearchMethod,
		MaxCandidates:  job.MaxCandidates,
	}
	require.NoError(t, e.orch.Run(ctx, task))

	job, err = e.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)

	result, err := e.store.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCandidates)
	assert.Equal(t, 1, result.PassedCandidates)
	assert.Equal(t, 1, result.FailedCandidates)
	assert.Equal(t, result.TotalCandidates, result.PassedCandidates+result.FailedCandidates)
	assert.Equal(t, "50.0%", result.PassRate)
	assert.Equal(t, models.MethodRapidAPI, result.SearchMethod)
	assert.InDelta(t, 2.5, result.SearchTime, 0.001)
	assert.InDelta(t, 1.5, result.ScoringTime, 0.001)
	assert.Equal(t, []string{"golang", "berlin"}, result.KeywordsUsed)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "Hi Jane Doe!", result.Candidates[0].OutreachMessage)
	assert.True(t, result.Candidates[0].Passed)
	assert.False(t, result.Candidates[1].Passed)
}

func TestRunTwoPhaseUsesExtractor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.provider.result = &search.Result{
		Method: models.MethodGoogleTwoPhase,
		ProfileURLs: []string{
			"https://www.linkedin.com/in/jane-doe",
			"https://www.linkedin.com/in/jo-smith",
		},
		SearchTime: 3.0,
	}

	req := validRequest()
	req.SearchMethod = models.MethodGoogleTwoPhase
	resp, err := e.orch.Submit(ctx, req)
	require.NoError(t, err)

	job, err := e.store.GetJob(ctx, resp.JobID)
	require.NoError(t, err)
	task := &models.Task{
		JobID:          job.ID,
		Fingerprint:    job.Fingerprint,
		JobDescription: job.JobDescription,
		SearchMethod:   job.SearchMethod,
		MaxCandidates:  job.MaxCandidates,
	}
	require.NoError(t, e.orch.Run(ctx, task))

	assert.Equal(t, 1, e.extractor.fetchCalls)
	assert.Equal(t, 1, e.extractor.processCalls)

	result, err := e.store.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCandidates)
}

func TestDuplicateSubmitServedFromCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.orch.Submit(ctx, validRequest())
	require.NoError(t, err)
	job, err := e.store.GetJob(ctx, first.JobID)
	require.NoError(t, err)
	require.NoError(t, e.orch.Run(ctx, &models.Task{
		JobID:          job.ID,
		Fingerprint:    job.Fingerprint,
		JobDescription: job.JobDescription,
		SearchMethod:   job.SearchMethod,
		MaxCandidates:  job.MaxCandidates,
	}))

	searchCalls := e.provider.calls
	scoreCalls := e.scorer.calls
	outreachCalls := e.outreach.calls

	second, err := e.orch.Submit(ctx, validRequest())
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, models.StatusCompleted, second.Status)
	assert.NotEqual(t, first.JobID, second.JobID)
	require.NotNil(t, second.Result)
	assert.Equal(t, second.JobID, second.Result.JobID)
	assert.Equal(t, 2, second.Result.TotalCandidates)

	// A cached hit spends no search, scoring, or outreach capability.
	assert.Equal(t, searchCalls, e.provider.calls)
	assert.Equal(t, scoreCalls, e.scorer.calls)
	assert.Equal(t, outreachCalls, e.outreach.calls)

	n, err := e.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err = e.store.GetJob(ctx, second.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestRunSearchFailureMarksJobFailed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.orch.Submit(ctx, validRequest())
	require.NoError(t, err)
	job, err := e.store.GetJob(ctx, resp.JobID)
	require.NoError(t, err)

	e.provider.err = errors.New("search provider unavailable")

	err = e.orch.Run(ctx, &models.Task{
		JobID:          job.ID,
		Fingerprint:    job.Fingerprint,
		JobDescription: job.JobDescription,
		SearchMethod:   job.SearchMethod,
		MaxCandidates:  job.MaxCandidates,
	})
	require.Error(t, err)

	job, err = e.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "search provider unavailable")

	_, err = e.store.GetResult(ctx, job.ID)
	assert.ErrorIs(t, err, models.ErrResultNotFound)
}

func TestRunResumesFromSearchCheckpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.orch.Submit(ctx, validRequest())
	require.NoError(t, err)
	job, err := e.store.GetJob(ctx, resp.JobID)
	require.NoError(t, err)

	checkpoint := &search.Result{
		Method:     models.MethodRapidAPI,
		Profiles:   testProfiles(),
		SearchTime: 9.0,
	}
	require.NoError(t, e.store.SetCheckpoint(ctx, job.ID, "search", checkpoint))

	// A resumed run must not touch the search provider again.
	e.provider.err = errors.New("provider must not be called")

	require.NoError(t, e.orch.Run(ctx, &models.Task{
		JobID:          job.ID,
		Fingerprint:    job.Fingerprint,
		JobDescription: job.JobDescription,
		SearchMethod:   job.SearchMethod,
		MaxCandidates:  job.MaxCandidates,
		Attempt:        1,
	}))

	result, err := e.store.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, result.SearchTime, 0.001)
}

func TestRunEmptySearchCompletesWithZeroCandidates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.provider.result = &search.Result{Method: models.MethodRapidAPI}

	resp, err := e.orch.Submit(ctx, validRequest())
	require.NoError(t, err)
	job, err := e.store.GetJob(ctx, resp.JobID)
	require.NoError(t, err)

	require.NoError(t, e.orch.Run(ctx, &models.Task{
		JobID:          job.ID,
		Fingerprint:    job.Fingerprint,
		JobDescription: job.JobDescription,
		SearchMethod:   job.SearchMethod,
		MaxCandidates:  job.MaxCandidates,
	}))

	result, err := e.store.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCandidates)
	assert.Equal(t, "0%", result.PassRate)
	assert.Empty(t, result.Candidates)
}
