package models

import "fmt"

// ScoreBreakdown holds the per-category rubric scores for one candidate.
// Category maximums: education 20, career_trajectory 20, company_relevance 15,
// experience_match 25, location_match 10, tenure 10.
type ScoreBreakdown struct {
	Education        float64 `json:"education"`
	CareerTrajectory float64 `json:"career_trajectory"`
	CompanyRelevance float64 `json:"company_relevance"`
	ExperienceMatch  float64 `json:"experience_match"`
	LocationMatch    float64 `json:"location_match"`
	Tenure           float64 `json:"tenure"`
}

// Sum returns the total of all category scores.
func (b ScoreBreakdown) Sum() float64 {
	return b.Education + b.CareerTrajectory + b.CompanyRelevance +
		b.ExperienceMatch + b.LocationMatch + b.Tenure
}

// ScoreReasoning holds the per-category rationale for one candidate.
type ScoreReasoning struct {
	Education        string `json:"education"`
	CareerTrajectory string `json:"career_trajectory"`
	CompanyRelevance string `json:"company_relevance"`
	ExperienceMatch  string `json:"experience_match"`
	LocationMatch    string `json:"location_match"`
	Tenure           string `json:"tenure"`
}

// Candidate is one scored entry in the final job result payload.
type Candidate struct {
	Name            string          `json:"name"`
	LinkedInURL     string          `json:"linkedin_url"`
	FitScore        float64         `json:"fit_score"`
	ScoreBreakdown  ScoreBreakdown  `json:"score_breakdown"`
	Reasoning       *ScoreReasoning `json:"reasoning,omitempty"`
	OutreachMessage string          `json:"outreach_message"`
	Headline        string          `json:"headline,omitempty"`
	Location        string          `json:"location,omitempty"`
	Passed          bool            `json:"passed"`
}

// JobResult is the persisted output of a completed sourcing job.
type JobResult struct {
	JobID            string      `json:"job_id"`
	TotalCandidates  int         `json:"total_candidates"`
	PassedCandidates int         `json:"passed_candidates"`
	FailedCandidates int         `json:"failed_candidates"`
	PassRate         string      `json:"pass_rate"`
	SearchMethod     string      `json:"search_method"`
	SearchTime       float64     `json:"search_time"`
	ScoringTime      float64     `json:"scoring_time"`
	SearchQuery      string      `json:"search_query,omitempty"`
	KeywordsUsed     []string    `json:"keywords_used,omitempty"`
	Candidates       []Candidate `json:"candidates"`
}

// FormatPassRate renders a pass rate as a percentage string, or "0%" when no
// candidates were scored.
func FormatPassRate(passed, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(passed)/float64(total)*100)
}
