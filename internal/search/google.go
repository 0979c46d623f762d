package search

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
)

const (
	defaultGoogleBaseURL = "https://www.google.com/search"
	resultsPerPage       = 50
	maxSearchPages       = 3
)

// GoogleProvider scrapes Google web search results for LinkedIn profile
// URLs. It returns URLs only; profile content comes from the extraction
// pipeline.
type GoogleProvider struct {
	parser    *Parser
	baseURL   string
	userAgent string
	delay     time.Duration
	logger    logger.Logger
}

type GoogleOption func(*GoogleProvider)

// WithBaseURL overrides the search endpoint, used in tests.
func WithBaseURL(u string) GoogleOption {
	return func(p *GoogleProvider) { p.baseURL = u }
}

func NewGoogleProvider(parser *Parser, userAgent string, delay time.Duration, log logger.Logger, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		parser:    parser,
		baseURL:   defaultGoogleBaseURL,
		userAgent: userAgent,
		delay:     delay,
		logger:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search extracts keywords, queries Google page by page, and collects up to
// limit distinct profile URLs.
func (p *GoogleProvider) Search(ctx context.Context, jobDescription string, limit int) (*Result, error) {
	start := time.Now()

	terms := p.parser.Extract(ctx, jobDescription)
	query := BuildQuery(terms)
	p.logger.Info("Searching Google for profiles",
		logger.String("query", query),
		logger.Int("limit", limit))

	var mu sync.Mutex
	seen := make(map[string]bool)
	var urls []string

	c := colly.NewCollector(colly.UserAgent(p.userAgent))
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: p.delay}); err != nil {
		return nil, fmt.Errorf("set rate limit: %w", err)
	}

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !IsProfileURL(href) {
			return
		}
		cleaned := CleanProfileURL(href)

		mu.Lock()
		defer mu.Unlock()
		if !seen[cleaned] {
			seen[cleaned] = true
			urls = append(urls, cleaned)
		}
	})

	var visitErr error
	for page := 0; page < maxSearchPages; page++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		mu.Lock()
		found := len(urls)
		mu.Unlock()
		if found >= limit {
			break
		}

		if err := c.Visit(p.searchURL(query, page*resultsPerPage)); err != nil {
			visitErr = err
			break
		}
		c.Wait()
	}

	mu.Lock()
	defer mu.Unlock()
	if len(urls) == 0 {
		if visitErr != nil {
			return nil, fmt.Errorf("google search: %w", visitErr)
		}
		p.logger.Warn("Google search returned no profile URLs", logger.String("query", query))
	}
	if len(urls) > limit {
		urls = urls[:limit]
	}

	return &Result{
		Method:      models.MethodGoogleCrawler,
		Query:       query,
		Keywords:    terms,
		ProfileURLs: urls,
		SearchTime:  time.Since(start).Seconds(),
	}, nil
}

func (p *GoogleProvider) searchURL(query string, startIdx int) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", resultsPerPage))
	params.Set("start", fmt.Sprintf("%d", startIdx))
	params.Set("hl", "en")
	params.Set("gl", "us")
	return p.baseURL + "?" + params.Encode()
}
