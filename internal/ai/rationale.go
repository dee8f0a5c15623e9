package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hospimatch/matching-service/internal/model"
)

// rationalePrompt asks for a short qualitative explanation of the numeric
// match. The numeric score is computed locally and passed in; the model is
// never allowed to invent one.
const rationalePrompt = `You are an assistant for a hospitality recruitment marketplace.
A candidate has been matched against a job posting with the compatibility score below.
Write a short recruiter-facing rationale (3 sentences maximum, plain text, no markdown)
explaining the strengths and gaps of this match. Do not restate the numbers.

### JOB
Title: %s
Required skills: %s
Required languages: %s
Required experience: %d years
Location: %s (remote: %s)

### CANDIDATE
Skills: %s
Languages: %s
Location: %s
Experience entries: %d

### SCORE
Overall: %d/100 (skills %d, experience %d, language %d, location %d, availability %d)
`

// RationaleGenerator produces a qualitative explanation for a scored match
// through the fallback chain. Scoring stays numeric and local; when every
// provider fails, the caller keeps the number and drops the prose.
type RationaleGenerator struct {
	orch  *Orchestrator
	order []ProviderID
	opts  Options
}

// NewRationaleGenerator returns a generator using the given fallback order
// (empty means the registry default).
func NewRationaleGenerator(orch *Orchestrator, order []ProviderID) *RationaleGenerator {
	return &RationaleGenerator{
		orch:  orch,
		order: order,
		opts:  Options{MaxTokens: 256, Temperature: 0.4},
	}
}

// Explain generates the rationale for one scored pair. The returned provider
// identifies which backend produced the text.
func (g *RationaleGenerator) Explain(ctx context.Context, c *model.CandidateSnapshot, j *model.JobSnapshot, score model.MatchScore) (string, ProviderID, error) {
	prompt := buildRationalePrompt(c, j, score)

	text, provider, err := g.orch.GenerateWithFallback(ctx, g.order, prompt, g.opts)
	if err != nil {
		return "", "", err
	}
	return cleanCompletion(text), provider, nil
}

func buildRationalePrompt(c *model.CandidateSnapshot, j *model.JobSnapshot, score model.MatchScore) string {
	return fmt.Sprintf(rationalePrompt,
		j.Title,
		joinOrNone(j.RequiredSkills),
		joinOrNone(j.RequiredLanguages),
		j.RequiredExperienceYears,
		orUnknown(j.Location),
		string(j.Remote),
		joinOrNone(skillNames(c.Skills)),
		joinOrNone(languageNames(c.Languages)),
		orUnknown(c.Location),
		len(c.Experiences),
		score.Value,
		score.Breakdown.Skills,
		score.Breakdown.Experience,
		score.Breakdown.Language,
		score.Breakdown.Location,
		score.Breakdown.Availability,
	)
}

func skillNames(skills []model.Skill) []string {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	return names
}

func languageNames(langs []model.Language) []string {
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		names = append(names, l.Name)
	}
	return names
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

// cleanCompletion strips code fences and surrounding whitespace some models
// wrap answers in.
func cleanCompletion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// WithDeadline derives a context bounded to the enrichment budget, so a
// slow chain can never hold up the caller's numeric path.
func WithDeadline(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}
