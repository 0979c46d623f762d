package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/north-cloud/sourcing/internal/models"
)

func TestFormatPassRate(t *testing.T) {
	tests := []struct {
		name   string
		passed int
		total  int
		want   string
	}{
		{"no candidates", 0, 0, "0%"},
		{"all passed", 4, 4, "100.0%"},
		{"one third", 1, 3, "33.3%"},
		{"none passed", 0, 5, "0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, models.FormatPassRate(tt.passed, tt.total))
		})
	}
}

func TestScoreBreakdownSum(t *testing.T) {
	b := models.ScoreBreakdown{
		Education:        18,
		CareerTrajectory: 15,
		CompanyRelevance: 12,
		ExperienceMatch:  20,
		LocationMatch:    10,
		Tenure:           8,
	}
	assert.InDelta(t, 83.0, b.Sum(), 0.001)
}

func TestValidMethod(t *testing.T) {
	assert.True(t, models.ValidMethod(models.MethodRapidAPI))
	assert.True(t, models.ValidMethod(models.MethodGoogleCrawler))
	assert.True(t, models.ValidMethod(models.MethodGoogleTwoPhase))
	assert.False(t, models.ValidMethod("bing"))
	assert.False(t, models.ValidMethod(""))
}
