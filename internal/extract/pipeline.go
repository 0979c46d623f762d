// Package extract implements the two-phase profile extraction pipeline:
// phase one fetches raw profile HTML, phase two turns stored HTML into
// structured profiles. Both phases memoize through the artifact store, so a
// profile that was already fetched is never fetched again and a profile
// that was already extracted is served from disk verbatim.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/north-cloud/sourcing/internal/ai"
	"github.com/north-cloud/sourcing/internal/artifacts"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/profile"
)

// Skip reasons recorded when a phase is short-circuited by an existing
// artifact.
const (
	SkipHTMLExists = "html_exists"
	SkipJSONExists = "json_exists"
)

// extractionDelay spaces out model calls within one profile to stay inside
// rate limits.
const extractionDelay = time.Second

// Fetcher retrieves the raw HTML of one profile page.
type Fetcher interface {
	Fetch(ctx context.Context, profileURL string) ([]byte, error)
}

// Pipeline runs the two extraction phases against a shared artifact store.
type Pipeline struct {
	fetcher   Fetcher
	store     *artifacts.Store
	generator ai.ContentGenerator
	delay     time.Duration
	logger    logger.Logger
}

// NewPipeline wires the pipeline. The fetcher is only consulted for slugs
// with no stored HTML and the generator only for slugs with no stored
// profile.
func NewPipeline(fetcher Fetcher, store *artifacts.Store, generator ai.ContentGenerator, log logger.Logger) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		store:     store,
		generator: generator,
		delay:     extractionDelay,
		logger:    log,
	}
}

// FetchOutcome records what happened to one URL during phase one.
type FetchOutcome struct {
	Slug       string `json:"slug"`
	URL        string `json:"url"`
	SkipReason string `json:"skip_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FetchResult summarizes phase one for a batch.
type FetchResult struct {
	Total    int            `json:"total"`
	Fetched  int            `json:"fetched"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Slugs    []string       `json:"slugs"`
	Outcomes []FetchOutcome `json:"outcomes"`
}

// FetchBatch runs phase one over profile URLs. A slug whose HTML artifact
// already exists is skipped without touching the network, which also means
// no politeness delay is spent on it. Failures are recorded per URL and the
// batch continues. Slugs holds every slug with usable HTML, in input order.
func (p *Pipeline) FetchBatch(ctx context.Context, urls []string) *FetchResult {
	result := &FetchResult{Total: len(urls)}
	seen := make(map[string]bool, len(urls))

	p.logger.Info("Starting HTML fetch phase", logger.Int("urls", len(urls)))

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			result.Failed++
			result.Outcomes = append(result.Outcomes, FetchOutcome{
				Slug:  profile.Slug(url),
				URL:   url,
				Error: err.Error(),
			})
			continue
		}

		slug := profile.Slug(url)
		if seen[slug] {
			continue
		}
		seen[slug] = true

		if p.store.Has(artifacts.KindHTML, slug) {
			p.logger.Info("Fetch skipped, HTML artifact exists", logger.String("slug", slug))
			result.Skipped++
			result.Slugs = append(result.Slugs, slug)
			result.Outcomes = append(result.Outcomes, FetchOutcome{
				Slug:       slug,
				URL:        url,
				SkipReason: SkipHTMLExists,
			})
			continue
		}

		html, err := p.fetcher.Fetch(ctx, url)
		if err == nil {
			err = p.store.PutHTML(slug, html)
		}
		if err != nil {
			p.logger.Warn("Profile fetch failed",
				logger.String("slug", slug),
				logger.Error(err))
			result.Failed++
			result.Outcomes = append(result.Outcomes, FetchOutcome{
				Slug:  slug,
				URL:   url,
				Error: err.Error(),
			})
			continue
		}

		result.Fetched++
		result.Slugs = append(result.Slugs, slug)
		result.Outcomes = append(result.Outcomes, FetchOutcome{Slug: slug, URL: url})
	}

	p.logger.Info("HTML fetch phase complete",
		logger.Int("fetched", result.Fetched),
		logger.Int("skipped", result.Skipped),
		logger.Int("failed", result.Failed))
	return result
}

// ProcessOutcome records what happened to one slug during phase two.
type ProcessOutcome struct {
	Slug       string `json:"slug"`
	SkipReason string `json:"skip_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProcessResult summarizes phase two for a batch.
type ProcessResult struct {
	Total     int                `json:"total"`
	Processed int                `json:"processed"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Profiles  []*profile.Profile `json:"profiles"`
	Outcomes  []ProcessOutcome   `json:"outcomes"`
}

// ProcessBatch runs phase two over slugs produced by FetchBatch. A slug
// whose profile artifact already exists is returned from disk without any
// model calls. Failures are recorded per slug and the batch continues.
func (p *Pipeline) ProcessBatch(ctx context.Context, slugs []string) *ProcessResult {
	result := &ProcessResult{Total: len(slugs)}

	p.logger.Info("Starting profile extraction phase", logger.Int("slugs", len(slugs)))

	for _, slug := range slugs {
		if p.store.Has(artifacts.KindJSON, slug) {
			prof, err := p.store.GetProfile(slug)
			if err != nil {
				result.Failed++
				result.Outcomes = append(result.Outcomes, ProcessOutcome{Slug: slug, Error: err.Error()})
				continue
			}
			p.logger.Info("Extraction skipped, profile artifact exists", logger.String("slug", slug))
			result.Skipped++
			result.Profiles = append(result.Profiles, prof)
			result.Outcomes = append(result.Outcomes, ProcessOutcome{
				Slug:       slug,
				SkipReason: SkipJSONExists,
			})
			continue
		}

		prof, err := p.processOne(ctx, slug)
		if err != nil {
			p.logger.Warn("Profile extraction failed",
				logger.String("slug", slug),
				logger.Error(err))
			result.Failed++
			result.Outcomes = append(result.Outcomes, ProcessOutcome{Slug: slug, Error: err.Error()})
			continue
		}

		result.Processed++
		result.Profiles = append(result.Profiles, prof)
		result.Outcomes = append(result.Outcomes, ProcessOutcome{Slug: slug})
	}

	p.logger.Info("Profile extraction phase complete",
		logger.Int("processed", result.Processed),
		logger.Int("skipped", result.Skipped),
		logger.Int("failed", result.Failed))
	return result
}

func (p *Pipeline) processOne(ctx context.Context, slug string) (*profile.Profile, error) {
	html, err := p.store.GetHTML(slug)
	if err != nil {
		return nil, fmt.Errorf("no html artifact for %s: %w", slug, err)
	}

	cleaned, err := CleanHTML(string(html))
	if err != nil {
		return nil, err
	}

	prof, err := p.extractProfile(ctx, slug, cleaned)
	if err != nil {
		return nil, err
	}

	if err := p.store.PutProfile(slug, prof); err != nil {
		return nil, err
	}
	return prof, nil
}

// extractProfile walks the sections of cleaned HTML and asks the model for
// each one, merging the structured answers into a single profile. A failed
// section degrades that section's fields, not the whole profile; only a
// profile with no recovered data at all is an error.
func (p *Pipeline) extractProfile(ctx context.Context, slug, cleanedHTML string) (*profile.Profile, error) {
	sections, err := Sections(cleanedHTML)
	if err != nil {
		return nil, err
	}

	prof := &profile.Profile{
		LinkedInURL: "https://www.linkedin.com/in/" + slug,
	}

	calls := 0
	for _, sectionHTML := range sections {
		if len(sectionHTML) < minSectionSize {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if calls > 0 && p.delay > 0 {
			if err := sleepCtx(ctx, p.delay); err != nil {
				return nil, err
			}
		}
		calls++

		kind := classifySection(sectionHTML)
		raw, err := p.generator.GenerateContent(ctx, sectionPrompt(kind, sectionHTML))
		if err != nil {
			p.logger.Warn("Section extraction call failed",
				logger.String("slug", slug),
				logger.String("section", kind),
				logger.Error(err))
			continue
		}

		if err := mergeSection(prof, kind, ai.ExtractJSON(raw)); err != nil {
			p.logger.Warn("Section payload rejected",
				logger.String("slug", slug),
				logger.String("section", kind),
				logger.Error(err))
		}
	}

	if prof.Name == "" && prof.Headline == "" && len(prof.Experience) == 0 {
		return nil, fmt.Errorf("no profile data extracted for %s", slug)
	}

	if len(prof.Experience) > 0 {
		if prof.CurrentPosition == "" {
			prof.CurrentPosition = prof.Experience[0].Title
		}
		if prof.CurrentCompany == "" {
			prof.CurrentCompany = prof.Experience[0].Company
		}
	}
	return prof, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
