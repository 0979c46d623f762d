package extract

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/north-cloud/sourcing/internal/artifacts"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/profile"
)

type stubFetcher struct {
	calls int32
	html  string
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.html), nil
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func newTestStore(t *testing.T) *artifacts.Store {
	t.Helper()
	store, err := artifacts.NewStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	return store
}

func newTestPipeline(fetcher Fetcher, store *artifacts.Store, gen generatorFunc) *Pipeline {
	p := NewPipeline(fetcher, store, gen, logger.NewNopLogger())
	p.delay = 0
	return p
}

// Padded so the section survives the minimum size filter.
func headerSection(name string) string {
	return `<main><section class="profile-card top-card-layout artdeco-card pv-profile">` +
		`<h1 class="top-card-layout__title">` + name + `</h1>` +
		`<div class="top-card-layout__headline">Senior Go Developer</div>` +
		`</section></main>`
}

func TestFetchBatchStoresHTML(t *testing.T) {
	store := newTestStore(t)
	fetcher := &stubFetcher{html: headerSection("Jane Doe")}
	p := newTestPipeline(fetcher, store, nil)

	result := p.FetchBatch(context.Background(), []string{"https://www.linkedin.com/in/jane-doe"})

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	require.Equal(t, []string{"jane-doe"}, result.Slugs)
	assert.True(t, store.Has(artifacts.KindHTML, "jane-doe"))
}

func TestFetchBatchSkipsExistingHTML(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutHTML("jane-doe", []byte(headerSection("Jane Doe"))))

	fetcher := &stubFetcher{html: "should never be fetched"}
	p := newTestPipeline(fetcher, store, nil)

	result := p.FetchBatch(context.Background(), []string{"https://www.linkedin.com/in/jane-doe"})

	assert.Equal(t, int32(0), atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, SkipHTMLExists, result.Outcomes[0].SkipReason)
	assert.Equal(t, []string{"jane-doe"}, result.Slugs)
}

func TestFetchBatchDeduplicatesSlugs(t *testing.T) {
	store := newTestStore(t)
	fetcher := &stubFetcher{html: headerSection("Jane Doe")}
	p := newTestPipeline(fetcher, store, nil)

	result := p.FetchBatch(context.Background(), []string{
		"https://www.linkedin.com/in/jane-doe",
		"https://www.linkedin.com/in/jane-doe/",
		"https://www.linkedin.com/in/jane-doe?originalSubdomain=uk",
	})

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, []string{"jane-doe"}, result.Slugs)
}

func TestFetchBatchContinuesAfterFailure(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutHTML("ok-profile", []byte(headerSection("Ok Person"))))

	fetcher := &stubFetcher{err: errors.New("connection reset")}
	p := newTestPipeline(fetcher, store, nil)

	result := p.FetchBatch(context.Background(), []string{
		"https://www.linkedin.com/in/broken-profile",
		"https://www.linkedin.com/in/ok-profile",
	})

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Outcomes, 2)
	assert.Contains(t, result.Outcomes[0].Error, "connection reset")
	assert.Equal(t, []string{"ok-profile"}, result.Slugs)
}

func TestProcessBatchExtractsProfile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutHTML("jane-doe", []byte(headerSection("Jane Doe"))))

	var calls int32
	gen := generatorFunc(func(_ context.Context, prompt string) (string, error) {
		atomic.AddInt32(&calls, 1)
		assert.Contains(t, prompt, "profile header")
		return `{"name": "Jane Doe", "headline": "Senior Go Developer", "location": "Berlin, Germany"}`, nil
	})
	p := newTestPipeline(nil, store, gen)

	result := p.ProcessBatch(context.Background(), []string{"jane-doe"})

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Profiles, 1)
	prof := result.Profiles[0]
	assert.Equal(t, "Jane Doe", prof.Name)
	assert.Equal(t, "Senior Go Developer", prof.Headline)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", prof.LinkedInURL)
	assert.True(t, store.Has(artifacts.KindJSON, "jane-doe"))
}

func TestProcessBatchSkipsExistingProfile(t *testing.T) {
	store := newTestStore(t)
	stored := &profile.Profile{
		Name:        "Jane Doe",
		Headline:    "Senior Go Developer",
		LinkedInURL: "https://www.linkedin.com/in/jane-doe",
	}
	require.NoError(t, store.PutProfile("jane-doe", stored))

	var calls int32
	gen := generatorFunc(func(_ context.Context, _ string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("model must not be called")
	})
	p := newTestPipeline(nil, store, gen)

	result := p.ProcessBatch(context.Background(), []string{"jane-doe"})

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, SkipJSONExists, result.Outcomes[0].SkipReason)
	require.Len(t, result.Profiles, 1)
	assert.Equal(t, stored, result.Profiles[0])
}

func TestProcessBatchMissingHTMLFails(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(nil, store, nil)

	result := p.ProcessBatch(context.Background(), []string{"never-fetched"})

	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, result.Profiles)
	require.Len(t, result.Outcomes, 1)
	assert.Contains(t, result.Outcomes[0].Error, "no html artifact")
}

func TestProcessBatchHandlesFencedResponse(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutHTML("jane-doe", []byte(headerSection("Jane Doe"))))

	gen := generatorFunc(func(_ context.Context, _ string) (string, error) {
		return "```json\n{\"name\": \"Jane Doe\"}\n```", nil
	})
	p := newTestPipeline(nil, store, gen)

	result := p.ProcessBatch(context.Background(), []string{"jane-doe"})

	assert.Equal(t, 1, result.Processed)
	require.Len(t, result.Profiles, 1)
	assert.Equal(t, "Jane Doe", result.Profiles[0].Name)
}

func TestProcessBatchRejectsEmptyExtraction(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutHTML("jane-doe", []byte(headerSection("Jane Doe"))))

	gen := generatorFunc(func(_ context.Context, _ string) (string, error) {
		return "{}", nil
	})
	p := newTestPipeline(nil, store, gen)

	result := p.ProcessBatch(context.Background(), []string{"jane-doe"})

	assert.Equal(t, 1, result.Failed)
	assert.False(t, store.Has(artifacts.KindJSON, "jane-doe"))
}

func TestProcessBatchFillsCurrentRole(t *testing.T) {
	store := newTestStore(t)
	html := `<main><section class="experience-section"><div id="experience">` +
		`<span class="experience-item__title">Staff Engineer at Acme over many years of platform work</span>` +
		`</div></section></main>`
	require.NoError(t, store.PutHTML("jo-smith", []byte(html)))

	gen := generatorFunc(func(_ context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "work experience")
		return `{"experience": [{"title": "Staff Engineer", "company": "Acme", "duration": "4 yrs"}]}`, nil
	})
	p := newTestPipeline(nil, store, gen)

	result := p.ProcessBatch(context.Background(), []string{"jo-smith"})

	require.Len(t, result.Profiles, 1)
	prof := result.Profiles[0]
	assert.Equal(t, "Staff Engineer", prof.CurrentPosition)
	assert.Equal(t, "Acme", prof.CurrentCompany)
	require.Len(t, prof.Experience, 1)
	assert.Equal(t, "4 yrs", prof.Experience[0].Duration)
}

func TestCleanHTMLKeepsTargetSections(t *testing.T) {
	raw := `<html><body>
		<nav>site nav</nav>
		<main class="profile">
			<!-- rendered by server -->
			<section class="top-card">  <h1>Jane Doe</h1>  </section>
			<section class="ads">sponsored</section>
			<section class="exp"><div id="experience">Acme</div></section>
			<section class="edu"><div id="education">MIT</div></section>
		</main>
		<footer>footer</footer>
	</body></html>`

	cleaned, err := CleanHTML(raw)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(cleaned, `<main class="profile">`))
	assert.Contains(t, cleaned, "Jane Doe")
	assert.Contains(t, cleaned, `id="experience"`)
	assert.Contains(t, cleaned, `id="education"`)
	assert.NotContains(t, cleaned, "sponsored")
	assert.NotContains(t, cleaned, "site nav")
	assert.NotContains(t, cleaned, "footer")
	assert.NotContains(t, cleaned, "rendered by server")
	assert.NotContains(t, cleaned, "\n")
}

func TestCleanHTMLWithoutMainPassesThrough(t *testing.T) {
	raw := "<div>  <p>no main   element</p>  <!-- note --> </div>"

	cleaned, err := CleanHTML(raw)
	require.NoError(t, err)

	assert.Equal(t, "<div><p>no main element</p></div>", cleaned)
}

func TestCleanHTMLSharedParentSectionKeptOnce(t *testing.T) {
	raw := `<main><section class="combined">` +
		`<div id="skills">Go</div><div id="about">Builder</div>` +
		`</section></main>`

	cleaned, err := CleanHTML(raw)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(cleaned, `class="combined"`))
}

func TestClassifySection(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"explicit experience id", `<section><div id="experience"></div></section>`, sectionExperience},
		{"experience keywords", `<section>Experience: Title at Company</section>`, sectionExperience},
		{"explicit education id", `<section><div id="education"></div></section>`, sectionEducation},
		{"skills keyword", `<section>Top skills endorsed</section>`, sectionSkills},
		{"about keyword", `<section>About this member</section>`, sectionAbout},
		{"fallback header", `<section><h1>Jane Doe</h1></section>`, sectionHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySection(tt.html))
		})
	}
}
