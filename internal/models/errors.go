package models

import "errors"

// Common errors
var (
	// ErrJobNotFound is returned when a job is not present in the status store
	ErrJobNotFound = errors.New("job not found")

	// ErrResultNotFound is returned when no result payload exists for a job
	ErrResultNotFound = errors.New("result not found")

	// ErrDescriptionTooShort is returned when a job description has fewer
	// than ten characters after trimming
	ErrDescriptionTooShort = errors.New("job description must be at least 10 characters")

	// ErrInvalidMethod is returned when a search method is not recognized
	ErrInvalidMethod = errors.New("unknown search method")

	// ErrInvalidLimit is returned when the candidate limit is out of range
	ErrInvalidLimit = errors.New("max_candidates out of range")
)
