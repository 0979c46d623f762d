// Package profile defines the structured LinkedIn profile model shared by
// the search, extraction, and scoring stages.
package profile

import (
	"regexp"
	"strings"
)

// Profile is a structured LinkedIn profile as extracted from raw page HTML
// or returned by a search provider.
type Profile struct {
	Name            string       `json:"name"`
	Headline        string       `json:"headline,omitempty"`
	LinkedInURL     string       `json:"linkedin_url"`
	Location        string       `json:"location,omitempty"`
	Summary         string       `json:"summary,omitempty"`
	Experience      []Experience `json:"experience,omitempty"`
	Education       []Education  `json:"education,omitempty"`
	Skills          []string     `json:"skills,omitempty"`
	Connections     string       `json:"connections,omitempty"`
	CurrentCompany  string       `json:"current_company,omitempty"`
	CurrentPosition string       `json:"current_position,omitempty"`
}

// Experience is one role in a profile's work history.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is one entry in a profile's education history.
type Education struct {
	School string `json:"school"`
	Degree string `json:"degree,omitempty"`
	Field  string `json:"field,omitempty"`
	Years  string `json:"years,omitempty"`
}

var (
	invalidChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Slug derives a filesystem-safe identifier from a profile URL. It is the
// join key between raw HTML artifacts and structured profile artifacts, so
// it must be stable across repeated calls for the same URL. Unparseable
// URLs degrade to "unknown" rather than failing.
func Slug(profileURL string) string {
	clean := strings.TrimSpace(profileURL)
	clean = strings.TrimRight(clean, "/")
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.TrimRight(clean, "/")

	var slug string
	switch {
	case strings.Contains(clean, "/in/"):
		parts := strings.Split(clean, "/in/")
		slug = parts[len(parts)-1]
	case strings.Contains(clean, "/pub/"):
		parts := strings.Split(clean, "/pub/")
		slug = strings.SplitN(parts[len(parts)-1], "/", 2)[0]
	default:
		parts := strings.Split(clean, "/")
		slug = parts[len(parts)-1]
	}

	slug = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(slug), "/"))
	slug = invalidChars.ReplaceAllString(slug, "-")
	slug = dashRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return "unknown"
	}
	return slug
}
