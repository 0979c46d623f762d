// Package outreach drafts a personalized connection message for each scored
// candidate. Generation fans out one goroutine per candidate and joins all of
// them; a per-candidate failure yields a generic fallback message so every
// candidate ends up with a non-empty message.
package outreach

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/north-cloud/sourcing/internal/ai"
	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/scoring"
)

// FallbackMessage is used when generation fails for a candidate.
const FallbackMessage = "Hi, I'd like to connect with you regarding an opportunity that matches your background."

// Generator drafts outreach messages. The language model is optional; when
// absent, messages come from the built-in template.
type Generator struct {
	generator ai.ContentGenerator
	logger    logger.Logger
}

func NewGenerator(gen ai.ContentGenerator, log logger.Logger) *Generator {
	return &Generator{generator: gen, logger: log}
}

// Generate drafts one message per candidate, keyed by profile URL. All
// candidates are attempted regardless of individual failures, and the result
// holds exactly one entry per distinct profile URL. Candidates sharing a URL
// are generated once rather than racing for the same key.
func (g *Generator) Generate(ctx context.Context, candidates []*scoring.ScoredCandidate, jobDescription string) map[string]string {
	messages := make(map[string]string, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup

	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		if seen[candidate.Profile.LinkedInURL] {
			continue
		}
		seen[candidate.Profile.LinkedInURL] = true

		wg.Add(1)
		go func(c *scoring.ScoredCandidate) {
			defer wg.Done()

			message := g.generateOne(ctx, c, jobDescription)
			mu.Lock()
			messages[c.Profile.LinkedInURL] = message
			mu.Unlock()
		}(candidate)
	}
	wg.Wait()

	g.logger.Debug("Generated outreach messages", logger.Int("count", len(messages)))
	return messages
}

func (g *Generator) generateOne(ctx context.Context, c *scoring.ScoredCandidate, jobDescription string) string {
	if g.generator != nil {
		message, err := g.generator.GenerateContent(ctx, outreachPrompt(c, jobDescription))
		if err == nil && strings.TrimSpace(message) != "" {
			return strings.TrimSpace(message)
		}
		if err != nil {
			g.logger.Error("Outreach generation failed",
				logger.String("candidate", c.Profile.Name),
				logger.Error(err))
		}
		return FallbackMessage
	}
	return templateMessage(c)
}

// templateMessage builds the message from profile fields alone.
func templateMessage(c *scoring.ScoredCandidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s! I came across your profile and was impressed by your background", c.Profile.Name)
	if c.Profile.Headline != "" {
		fmt.Fprintf(&sb, " as a %s", c.Profile.Headline)
	}
	if c.Profile.Location != "" {
		fmt.Fprintf(&sb, " in %s", c.Profile.Location)
	}
	sb.WriteString(". I have an exciting opportunity that matches your expertise. Would you be open to a brief conversation?")
	return sb.String()
}

func outreachPrompt(c *scoring.ScoredCandidate, jobDescription string) string {
	var sb strings.Builder
	sb.WriteString("Write a short, friendly LinkedIn connection message (under 80 words) ")
	sb.WriteString("inviting the candidate below to discuss a role. ")
	sb.WriteString("Mention one specific detail from their background. ")
	sb.WriteString("Return only the message text.\n\n")
	fmt.Fprintf(&sb, "Candidate: %s\n", c.Profile.Name)
	if c.Profile.Headline != "" {
		fmt.Fprintf(&sb, "Headline: %s\n", c.Profile.Headline)
	}
	if c.Profile.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", c.Profile.Location)
	}
	fmt.Fprintf(&sb, "\nRole:\n%s\n", jobDescription)
	return sb.String()
}
