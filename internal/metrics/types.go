package metrics

import "time"

// RecentJob represents a recently completed sourcing job
type RecentJob struct {
	JobID           string    `json:"job_id"`
	SearchMethod    string    `json:"search_method"`
	TotalCandidates int       `json:"total_candidates"`
	Passed          int       `json:"passed"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Stats represents aggregated pipeline statistics
type Stats struct {
	TotalCompleted int64         `json:"total_completed"`
	TotalFailed    int64         `json:"total_failed"`
	TotalScored    int64         `json:"total_scored"`
	TotalPassed    int64         `json:"total_passed"`
	Methods        []MethodStats `json:"methods"`
	LastCompleted  time.Time     `json:"last_completed"`
}

// MethodStats represents statistics for a specific search method
type MethodStats struct {
	Name      string `json:"name"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Scored    int64  `json:"scored"`
	Passed    int64  `json:"passed"`
}
