// Package search finds candidate LinkedIn profiles for a job description.
// Providers either return full profiles directly (RapidAPI) or profile URLs
// for the extraction pipeline to fetch (Google scraping).
package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/north-cloud/sourcing/internal/models"
	"github.com/north-cloud/sourcing/internal/profile"
)

// Result is the outcome of one provider search.
type Result struct {
	Method      string             `json:"method"`
	Query       string             `json:"query,omitempty"`
	Keywords    []string           `json:"keywords,omitempty"`
	ProfileURLs []string           `json:"profile_urls,omitempty"`
	Profiles    []*profile.Profile `json:"profiles,omitempty"`
	SearchTime  float64            `json:"search_time"`
}

// Provider finds candidates for a job description.
type Provider interface {
	Search(ctx context.Context, jobDescription string, limit int) (*Result, error)
}

// Searcher dispatches to the provider registered for a search method.
type Searcher struct {
	providers map[string]Provider
}

func NewSearcher() *Searcher {
	return &Searcher{providers: make(map[string]Provider)}
}

// Register binds a provider to a search method name. The two-phase Google
// variant shares the crawler provider; only downstream processing differs.
func (s *Searcher) Register(method string, p Provider) {
	s.providers[method] = p
}

// Search runs the provider for the given method.
func (s *Searcher) Search(ctx context.Context, method, jobDescription string, limit int) (*Result, error) {
	p, ok := s.providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidMethod, method)
	}
	return p.Search(ctx, jobDescription, limit)
}

// BuildQuery constructs the Google query restricting results to LinkedIn
// profiles: site:linkedin.com/in "term1" "term2".
func BuildQuery(terms []string) string {
	parts := []string{"site:linkedin.com/in"}
	for _, term := range terms {
		term = strings.Trim(strings.TrimSpace(term), `"`)
		if term != "" {
			parts = append(parts, `"`+term+`"`)
		}
	}
	return strings.Join(parts, " ")
}

// CleanProfileURL strips query parameters and fragments from a profile URL
// and resolves Google redirect wrappers.
func CleanProfileURL(raw string) string {
	if strings.HasPrefix(raw, "/url?") {
		if vals, err := url.ParseQuery(raw[len("/url?"):]); err == nil {
			if q := vals.Get("q"); q != "" {
				raw = q
			}
		}
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(raw, "/")
}

// IsProfileURL reports whether a URL points at an individual LinkedIn
// profile rather than a company page or search listing.
func IsProfileURL(raw string) bool {
	cleaned := CleanProfileURL(raw)
	idx := strings.Index(cleaned, "linkedin.com/in/")
	if idx < 0 {
		return false
	}
	slug := cleaned[idx+len("linkedin.com/in/"):]
	return slug != "" && !strings.Contains(slug, "/")
}
