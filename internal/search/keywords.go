package search

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/north-cloud/sourcing/internal/ai"
	"github.com/north-cloud/sourcing/internal/logger"
)

const maxFallbackTerms = 4

// JobFields is the structured reading of a free-text job description used
// to build search queries.
type JobFields struct {
	JobTitle string `json:"job_title"`
	Location string `json:"location"`
}

// Terms returns the non-empty fields as search terms.
func (f JobFields) Terms() []string {
	var terms []string
	if strings.TrimSpace(f.JobTitle) != "" {
		terms = append(terms, strings.TrimSpace(f.JobTitle))
	}
	if strings.TrimSpace(f.Location) != "" {
		terms = append(terms, strings.TrimSpace(f.Location))
	}
	return terms
}

// Parser extracts search terms from a job description. It asks the language
// model for a structured reading and falls back to a keyword heuristic when
// the model is unavailable or returns garbage.
type Parser struct {
	generator ai.ContentGenerator
	logger    logger.Logger
}

func NewParser(generator ai.ContentGenerator, log logger.Logger) *Parser {
	return &Parser{generator: generator, logger: log}
}

// Extract returns search terms for the description. It never fails; the
// heuristic fallback always yields at least one term for non-empty input.
func (p *Parser) Extract(ctx context.Context, jobDescription string) []string {
	if p.generator != nil {
		if fields, err := p.extractWithModel(ctx, jobDescription); err == nil {
			if terms := fields.Terms(); len(terms) > 0 {
				return terms
			}
		} else {
			p.logger.Warn("Job field extraction failed, using heuristic keywords",
				logger.Error(err))
		}
	}
	return heuristicKeywords(jobDescription)
}

func (p *Parser) extractWithModel(ctx context.Context, jobDescription string) (*JobFields, error) {
	prompt := `Extract the job title and location from the job description below.

Return only a JSON object in this exact format:
{
  "job_title": "extracted_job_title",
  "location": "extracted_location"
}

Job Description:
` + jobDescription

	response, err := p.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var fields JobFields
	if err := json.Unmarshal([]byte(ai.ExtractJSON(response)), &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z+#.-]{2,}`)

// stopwords excluded from heuristic keyword selection.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "our": true,
	"you": true, "are": true, "will": true, "have": true, "this": true,
	"that": true, "who": true, "your": true, "about": true, "team": true,
	"work": true, "working": true, "years": true, "experience": true,
	"looking": true, "candidate": true, "candidates": true, "role": true,
	"strong": true, "skills": true, "ability": true, "join": true,
}

// heuristicKeywords picks the most frequent non-stopword terms from the
// description, preserving first-seen order.
func heuristicKeywords(jobDescription string) []string {
	counts := make(map[string]int)
	var order []string

	for _, word := range wordPattern.FindAllString(jobDescription, -1) {
		word = strings.TrimRight(word, ".-")
		if len(word) < 3 {
			continue
		}
		key := strings.ToLower(word)
		if stopwords[key] {
			continue
		}
		if counts[key] == 0 {
			order = append(order, word)
		}
		counts[key]++
	}

	// Frequency-ordered selection, ties broken by first appearance.
	terms := make([]string, 0, maxFallbackTerms)
	for len(terms) < maxFallbackTerms {
		best := ""
		bestCount := 0
		for _, word := range order {
			key := strings.ToLower(word)
			if counts[key] > bestCount {
				best = word
				bestCount = counts[key]
			}
		}
		if best == "" {
			break
		}
		terms = append(terms, best)
		counts[strings.ToLower(best)] = 0
	}
	return terms
}
