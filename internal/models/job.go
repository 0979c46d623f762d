package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a sourcing job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Search methods accepted by the pipeline.
const (
	MethodRapidAPI       = "rapid_api"
	MethodGoogleCrawler  = "google_crawler"
	MethodGoogleTwoPhase = "google_two_phase"
)

// Methods returns all supported search method names.
func Methods() []string {
	return []string{MethodRapidAPI, MethodGoogleCrawler, MethodGoogleTwoPhase}
}

// ValidMethod reports whether m names a supported search method.
func ValidMethod(m string) bool {
	switch m {
	case MethodRapidAPI, MethodGoogleCrawler, MethodGoogleTwoPhase:
		return true
	}
	return false
}

// JobRequest represents the request payload for submitting a sourcing job.
type JobRequest struct {
	JobDescription string `binding:"required" json:"job_description"`
	SearchMethod   string `json:"search_method"`
	MaxCandidates  int    `json:"max_candidates"`
}

// Job represents a sourcing job as tracked in the status store.
type Job struct {
	ID             string     `json:"job_id"`
	Fingerprint    string     `json:"fingerprint"`
	JobDescription string     `json:"job_description"`
	SearchMethod   string     `json:"search_method"`
	MaxCandidates  int        `json:"max_candidates"`
	Status         JobStatus  `json:"status"`
	Progress       string     `json:"progress,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewJob constructs a queued job with a fresh identifier.
func NewJob(description, method string, limit int, fingerprint string) *Job {
	return &Job{
		ID:             uuid.New().String(),
		Fingerprint:    fingerprint,
		JobDescription: description,
		SearchMethod:   method,
		MaxCandidates:  limit,
		Status:         StatusQueued,
		CreatedAt:      time.Now().UTC(),
	}
}

// Task is the envelope pushed onto the work queue for a job.
type Task struct {
	JobID          string    `json:"job_id"`
	Fingerprint    string    `json:"fingerprint"`
	JobDescription string    `json:"job_description"`
	SearchMethod   string    `json:"search_method"`
	MaxCandidates  int       `json:"max_candidates"`
	Attempt        int       `json:"attempt"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}
