package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
	"github.com/north-cloud/sourcing/internal/profile"
)

const rapidAPITimeout = 30 * time.Second

// RapidAPIProvider queries a hosted LinkedIn search API and returns full
// profiles, so no extraction phase is needed for its results.
type RapidAPIProvider struct {
	client  *http.Client
	parser  *Parser
	baseURL string
	apiKey  string
	apiHost string
	logger  logger.Logger
}

func NewRapidAPIProvider(parser *Parser, baseURL, apiKey, apiHost string, log logger.Logger) *RapidAPIProvider {
	return &RapidAPIProvider{
		client:  &http.Client{Timeout: rapidAPITimeout},
		parser:  parser,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		apiHost: apiHost,
		logger:  log,
	}
}

type rapidAPIResponse struct {
	Profiles []struct {
		Name            string   `json:"name"`
		Headline        string   `json:"headline"`
		Location        string   `json:"location"`
		Summary         string   `json:"summary"`
		LinkedInURL     string   `json:"linkedin_url"`
		CurrentCompany  string   `json:"current_company"`
		CurrentPosition string   `json:"current_position"`
		Skills          []string `json:"skills"`
	} `json:"profiles"`
}

// Search queries the API with keywords extracted from the description.
func (p *RapidAPIProvider) Search(ctx context.Context, jobDescription string, limit int) (*Result, error) {
	start := time.Now()

	terms := p.parser.Extract(ctx, jobDescription)
	query := strings.Join(terms, " ")

	params := url.Values{}
	params.Set("keywords", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rapidapi request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", p.apiKey)
	req.Header.Set("X-RapidAPI-Host", p.apiHost)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rapidapi search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rapidapi search: unexpected status %d", resp.StatusCode)
	}

	var body rapidAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parse rapidapi response: %w", err)
	}

	profiles := make([]*profile.Profile, 0, len(body.Profiles))
	urls := make([]string, 0, len(body.Profiles))
	for _, entry := range body.Profiles {
		if entry.LinkedInURL == "" || !IsProfileURL(entry.LinkedInURL) {
			continue
		}
		if len(profiles) >= limit {
			break
		}
		profiles = append(profiles, &profile.Profile{
			Name:            entry.Name,
			Headline:        entry.Headline,
			Location:        entry.Location,
			Summary:         entry.Summary,
			LinkedInURL:     CleanProfileURL(entry.LinkedInURL),
			CurrentCompany:  entry.CurrentCompany,
			CurrentPosition: entry.CurrentPosition,
			Skills:          entry.Skills,
		})
		urls = append(urls, CleanProfileURL(entry.LinkedInURL))
	}

	p.logger.Info("RapidAPI search complete",
		logger.String("keywords", query),
		logger.Int("profiles", len(profiles)))

	return &Result{
		Method:      models.MethodRapidAPI,
		Query:       query,
		Keywords:    terms,
		Profiles:    profiles,
		ProfileURLs: urls,
		SearchTime:  time.Since(start).Seconds(),
	}, nil
}
