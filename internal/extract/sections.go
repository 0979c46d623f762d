package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/north-cloud/sourcing/internal/profile"
)

// Section kinds recognized on a profile page.
const (
	sectionHeader     = "profile_header"
	sectionAbout      = "about"
	sectionExperience = "experience"
	sectionEducation  = "education"
	sectionSkills     = "skills"
	sectionProjects   = "projects"
)

// minSectionSize filters out decorative sections that carry no profile data.
const minSectionSize = 100

// classifySection decides what kind of profile section an HTML fragment is,
// preferring explicit element ids over keyword heuristics.
func classifySection(sectionHTML string) string {
	lower := strings.ToLower(sectionHTML)

	switch {
	case strings.Contains(lower, `id="experience"`),
		strings.Contains(lower, "experience") && (strings.Contains(lower, "company") || strings.Contains(lower, "title")):
		return sectionExperience
	case strings.Contains(lower, `id="education"`),
		strings.Contains(lower, "education") && (strings.Contains(lower, "school") || strings.Contains(lower, "degree")):
		return sectionEducation
	case strings.Contains(lower, `id="skills"`), strings.Contains(lower, "skills"):
		return sectionSkills
	case strings.Contains(lower, `id="about"`), strings.Contains(lower, "about"):
		return sectionAbout
	case strings.Contains(lower, `id="projects"`), strings.Contains(lower, "projects"):
		return sectionProjects
	}
	return sectionHeader
}

const basePromptFormat = "You are a LinkedIn profile data extraction expert. " +
	"Extract structured data from this LinkedIn profile HTML section. " +
	"Return only valid JSON without any markdown formatting or explanations.\n\nHTML:\n%s\n\n"

var sectionFormats = map[string]string{
	sectionHeader: "Extract profile header data in this JSON format:\n" +
		"{\n" +
		`  "name": "Full Name",` + "\n" +
		`  "headline": "Job Title/Headline",` + "\n" +
		`  "location": "City, State, Country",` + "\n" +
		`  "connections": "X connections"` + "\n" +
		"}",
	sectionAbout: "Extract the about/summary section in this JSON format:\n" +
		"{\n" +
		`  "summary": "Full about text/summary"` + "\n" +
		"}",
	sectionExperience: "Extract all work experience entries in this JSON format:\n" +
		"{\n" +
		`  "experience": [` + "\n" +
		"    {\n" +
		`      "title": "Job Title",` + "\n" +
		`      "company": "Company Name",` + "\n" +
		`      "duration": "X yrs Y mos",` + "\n" +
		`      "location": "City, State",` + "\n" +
		`      "description": "Job description if available"` + "\n" +
		"    }\n" +
		"  ]\n" +
		"}",
	sectionEducation: "Extract all education entries in this JSON format:\n" +
		"{\n" +
		`  "education": [` + "\n" +
		"    {\n" +
		`      "school": "School Name",` + "\n" +
		`      "degree": "Degree Type",` + "\n" +
		`      "field_of_study": "Field of Study",` + "\n" +
		`      "years": "Start Year - End Year"` + "\n" +
		"    }\n" +
		"  ]\n" +
		"}",
	sectionSkills: "Extract all skills in this JSON format:\n" +
		"{\n" +
		`  "skills": ["skill1", "skill2", "skill3"]` + "\n" +
		"}",
}

// sectionPrompt builds the extraction prompt for one section. Unknown
// section kinds get a generic instruction.
func sectionPrompt(kind, sectionHTML string) string {
	base := fmt.Sprintf(basePromptFormat, sectionHTML)
	format, ok := sectionFormats[kind]
	if !ok {
		format = "Extract any relevant profile information from this section and return it as JSON."
	}
	return base + format
}

type headerPayload struct {
	Name        string `json:"name"`
	Headline    string `json:"headline"`
	Location    string `json:"location"`
	Connections string `json:"connections"`
}

type aboutPayload struct {
	Summary string `json:"summary"`
}

type experiencePayload struct {
	Experience []struct {
		Title       string `json:"title"`
		Company     string `json:"company"`
		Duration    string `json:"duration"`
		DateRange   string `json:"date_range"`
		Location    string `json:"location"`
		Description string `json:"description"`
	} `json:"experience"`
}

type educationPayload struct {
	Education []struct {
		School       string `json:"school"`
		Degree       string `json:"degree"`
		FieldOfStudy string `json:"field_of_study"`
		Field        string `json:"field"`
		Years        string `json:"years"`
		DateRange    string `json:"date_range"`
	} `json:"education"`
}

type skillsPayload struct {
	Skills []string `json:"skills"`
}

// mergeSection folds one section's extracted JSON into the profile. Only
// non-empty values overwrite, so a weak extraction for one section cannot
// blank out data recovered from another.
func mergeSection(p *profile.Profile, kind, rawJSON string) error {
	switch kind {
	case sectionHeader:
		var payload headerPayload
		if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
			return fmt.Errorf("parse %s payload: %w", kind, err)
		}
		if payload.Name != "" {
			p.Name = payload.Name
		}
		if payload.Headline != "" {
			p.Headline = payload.Headline
		}
		if payload.Location != "" {
			p.Location = payload.Location
		}
		if payload.Connections != "" {
			p.Connections = payload.Connections
		}

	case sectionAbout:
		var payload aboutPayload
		if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
			return fmt.Errorf("parse %s payload: %w", kind, err)
		}
		if payload.Summary != "" {
			p.Summary = payload.Summary
		}

	case sectionExperience:
		var payload experiencePayload
		if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
			return fmt.Errorf("parse %s payload: %w", kind, err)
		}
		for _, entry := range payload.Experience {
			duration := entry.Duration
			if duration == "" {
				duration = entry.DateRange
			}
			p.Experience = append(p.Experience, profile.Experience{
				Title:       entry.Title,
				Company:     entry.Company,
				Duration:    duration,
				Location:    entry.Location,
				Description: entry.Description,
			})
		}

	case sectionEducation:
		var payload educationPayload
		if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
			return fmt.Errorf("parse %s payload: %w", kind, err)
		}
		for _, entry := range payload.Education {
			field := entry.FieldOfStudy
			if field == "" {
				field = entry.Field
			}
			years := entry.Years
			if years == "" {
				years = entry.DateRange
			}
			p.Education = append(p.Education, profile.Education{
				School: entry.School,
				Degree: entry.Degree,
				Field:  field,
				Years:  years,
			})
		}

	case sectionSkills:
		var payload skillsPayload
		if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
			return fmt.Errorf("parse %s payload: %w", kind, err)
		}
		p.Skills = append(p.Skills, payload.Skills...)
	}
	return nil
}
