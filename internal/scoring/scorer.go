// Package scoring evaluates candidate profiles against a job description
// using a fixed rubric judged by a language model.
//
// Scoring failures never abort a batch: a candidate whose evaluation cannot
// be parsed or validated degrades to a zero score across all categories and
// pass=false.
package scoring

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/north-cloud/sourcing/internal/ai"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/models"
	"github.com/north-cloud/sourcing/internal/profile"
)

//go:embed prompt.md
var rubric string

// DefaultThreshold is the total score required to pass.
const DefaultThreshold = 85

// mismatchTolerance is how far the reported aggregate may diverge from the
// sum of category scores before a warning is logged.
const mismatchTolerance = 3

// ScoredCandidate is a profile with its rubric evaluation attached.
type ScoredCandidate struct {
	Profile   *profile.Profile
	Score     float64
	Breakdown models.ScoreBreakdown
	Reasoning *models.ScoreReasoning
	Passed    bool
}

// Result summarizes one scoring batch.
type Result struct {
	Total       int
	Passed      []*ScoredCandidate
	Failed      []*ScoredCandidate
	Scored      []*ScoredCandidate
	ScoringTime float64
}

// Scorer scores candidates against a job description.
type Scorer struct {
	generator ai.ContentGenerator
	threshold float64
	logger    logger.Logger
}

func NewScorer(generator ai.ContentGenerator, threshold int, log logger.Logger) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{
		generator: generator,
		threshold: float64(threshold),
		logger:    log,
	}
}

// Score evaluates one candidate. It always returns a usable candidate;
// evaluation failures are logged and reported as a zero-score rejection.
func (s *Scorer) Score(ctx context.Context, p *profile.Profile, jobDescription string) *ScoredCandidate {
	response, err := s.generator.GenerateContent(ctx, s.buildPrompt(p, jobDescription))
	if err != nil {
		s.logger.Error("Scoring request failed",
			logger.String("candidate", p.Name),
			logger.Error(err))
		return s.rejected(p)
	}

	evaluation, err := parseEvaluation(response)
	if err != nil {
		s.logger.Error("Invalid scoring response",
			logger.String("candidate", p.Name),
			logger.Error(err))
		return s.rejected(p)
	}

	computed := evaluation.breakdown.Sum()
	if diff := computed - evaluation.score; diff > mismatchTolerance || diff < -mismatchTolerance {
		s.logger.Warn("Score mismatch detected",
			logger.String("candidate", p.Name),
			logger.Float64("computed", computed),
			logger.Float64("received", evaluation.score))
	}

	final := evaluation.score
	if final > 100 {
		final = 100
	}
	passed := final >= s.threshold

	s.logger.Info("Candidate scored",
		logger.String("candidate", p.Name),
		logger.Float64("score", final),
		logger.Bool("passed", passed))

	return &ScoredCandidate{
		Profile:   p,
		Score:     final,
		Breakdown: evaluation.breakdown,
		Reasoning: evaluation.reasoning,
		Passed:    passed,
	}
}

// ScoreBatch evaluates candidates sequentially and partitions them into
// passed and failed sets.
func (s *Scorer) ScoreBatch(ctx context.Context, profiles []*profile.Profile, jobDescription string) *Result {
	start := time.Now()
	result := &Result{Total: len(profiles)}

	for _, p := range profiles {
		if ctx.Err() != nil {
			break
		}
		candidate := s.Score(ctx, p, jobDescription)
		result.Scored = append(result.Scored, candidate)
		if candidate.Passed {
			result.Passed = append(result.Passed, candidate)
		} else {
			result.Failed = append(result.Failed, candidate)
		}
	}

	result.ScoringTime = time.Since(start).Seconds()
	s.logger.Info("Scoring batch complete",
		logger.Int("total", result.Total),
		logger.Int("passed", len(result.Passed)),
		logger.Float64("elapsed_seconds", result.ScoringTime))
	return result
}

func (s *Scorer) rejected(p *profile.Profile) *ScoredCandidate {
	return &ScoredCandidate{Profile: p, Score: 0, Passed: false}
}

type evaluation struct {
	score     float64
	breakdown models.ScoreBreakdown
	reasoning *models.ScoreReasoning
}

// evaluationResponse mirrors the JSON contract in prompt.md. Pointer fields
// distinguish a missing value from a legitimate zero so schema violations
// are caught at the model boundary.
type evaluationResponse struct {
	ScoreBreakdown *struct {
		Education        *float64 `json:"education"`
		CareerTrajectory *float64 `json:"career_trajectory"`
		CompanyRelevance *float64 `json:"company_relevance"`
		ExperienceMatch  *float64 `json:"experience_match"`
		LocationMatch    *float64 `json:"location_match"`
		Tenure           *float64 `json:"tenure"`
	} `json:"score_breakdown"`
	Score     *float64               `json:"score"`
	Reasoning *models.ScoreReasoning `json:"reasoning"`
}

func parseEvaluation(raw string) (*evaluation, error) {
	cleaned := ai.ExtractJSON(raw)

	var resp evaluationResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("parse scoring response: %w", err)
	}

	if resp.Score == nil {
		return nil, fmt.Errorf("scoring response missing score")
	}
	b := resp.ScoreBreakdown
	if b == nil {
		return nil, fmt.Errorf("scoring response missing score_breakdown")
	}
	for name, v := range map[string]*float64{
		"education":         b.Education,
		"career_trajectory": b.CareerTrajectory,
		"company_relevance": b.CompanyRelevance,
		"experience_match":  b.ExperienceMatch,
		"location_match":    b.LocationMatch,
		"tenure":            b.Tenure,
	} {
		if v == nil {
			return nil, fmt.Errorf("scoring response missing score_breakdown.%s", name)
		}
	}

	return &evaluation{
		score: *resp.Score,
		breakdown: models.ScoreBreakdown{
			Education:        *b.Education,
			CareerTrajectory: *b.CareerTrajectory,
			CompanyRelevance: *b.CompanyRelevance,
			ExperienceMatch:  *b.ExperienceMatch,
			LocationMatch:    *b.LocationMatch,
			Tenure:           *b.Tenure,
		},
		reasoning: resp.Reasoning,
	}, nil
}

func (s *Scorer) buildPrompt(p *profile.Profile, jobDescription string) string {
	var sb strings.Builder
	sb.WriteString(rubric)
	sb.WriteString("\n\nCandidate:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "- Headline: %s\n", orNA(p.Headline))
	fmt.Fprintf(&sb, "- Location: %s\n", orNA(p.Location))
	fmt.Fprintf(&sb, "- Summary: %s\n", orNA(p.Summary))
	sb.WriteString("\nEducation:\n")
	sb.WriteString(formatEducation(p.Education))
	sb.WriteString("\n\nExperience:\n")
	sb.WriteString(formatExperience(p.Experience))
	sb.WriteString("\n\nJob Description:\n")
	sb.WriteString(jobDescription)
	return sb.String()
}

func formatExperience(entries []profile.Experience) string {
	if len(entries) == 0 {
		return "N/A"
	}
	parts := make([]string, 0, len(entries))
	for _, exp := range entries {
		parts = append(parts, fmt.Sprintf(
			"Title: %s\nCompany: %s\nDuration: %s\nDescription: %s",
			exp.Title, orNA(exp.Company), orNA(exp.Duration), orNA(exp.Description)))
	}
	return strings.Join(parts, "\n\n")
}

func formatEducation(entries []profile.Education) string {
	if len(entries) == 0 {
		return "N/A"
	}
	parts := make([]string, 0, len(entries))
	for _, edu := range entries {
		parts = append(parts, fmt.Sprintf(
			"School: %s\nDegree: %s\nField of Study: %s\nYears: %s",
			edu.School, orNA(edu.Degree), orNA(edu.Field), orNA(edu.Years)))
	}
	return strings.Join(parts, "\n\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
