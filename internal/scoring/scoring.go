// Package scoring computes the compatibility score between a candidate and
// a job. It is transport- and storage-agnostic: pure functions over
// snapshots, no I/O, and it never returns an error — missing data degrades
// to a neutral sub-score instead of failing.
//
// Five weighted factors, each normalised to [0,100]:
//
//	skills 35 · experience 25 · language 15 · location 15 · availability 10
//
// The final score is the rounded weighted sum, clamped to [0,100]. Premium
// candidates get an additive boost of at most 5 points, only when a
// recruiter is browsing candidates, and never past 100.
package scoring

import (
	"math"
	"strings"
	"time"

	"hospimatch/matching-service/internal/model"
)

// Factor weights. They sum to 100 so the weighted sum is already on the
// final scale.
const (
	weightSkills       = 35
	weightExperience   = 25
	weightLanguage     = 15
	weightLocation     = 15
	weightAvailability = 10

	maxPremiumBoost = 5

	hoursPerYear = 24 * 365.25
)

// Engine scores candidate/job pairs. The clock is injectable so open-ended
// experience durations stay reproducible in tests.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an Engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineAt returns an Engine with a fixed clock.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Score computes the MatchScore for one candidate/job pair.
// Same inputs and clock always produce the same output.
func (e *Engine) Score(c *model.CandidateSnapshot, j *model.JobSnapshot, browse model.BrowseContext) model.MatchScore {
	b := model.ScoreBreakdown{
		Skills:       skillsSubScore(c, j),
		Experience:   e.experienceSubScore(c, j),
		Language:     languageSubScore(c, j),
		Location:     locationSubScore(c, j),
		Availability: availabilitySubScore(c, j),
	}

	weighted := b.Skills*weightSkills +
		b.Experience*weightExperience +
		b.Language*weightLanguage +
		b.Location*weightLocation +
		b.Availability*weightAvailability

	value := clamp(int(math.Round(float64(weighted) / 100)))

	boost := 0
	if browse == model.RecruiterBrowsing && c.Premium {
		boost = maxPremiumBoost
		if room := 100 - value; room < boost {
			boost = room
		}
	}

	return model.MatchScore{
		Value:        value + boost,
		Breakdown:    b,
		PremiumBoost: boost,
	}
}

// skillsSubScore is the fraction of required skills the candidate covers.
// A skill counts as matched when either name contains the other,
// case-insensitively.
func skillsSubScore(c *model.CandidateSnapshot, j *model.JobSnapshot) int {
	if len(j.RequiredSkills) == 0 {
		return 100
	}

	matched := 0
	for _, required := range j.RequiredSkills {
		req := normalize(required)
		if req == "" {
			matched++ // a blank requirement constrains nothing
			continue
		}
		for _, skill := range c.Skills {
			if overlaps(normalize(skill.Name), req) {
				matched++
				break
			}
		}
	}

	return ratioScore(matched, len(j.RequiredSkills))
}

// experienceSubScore accumulates the duration of candidate experiences whose
// title relates to the job title and compares it to the required years.
func (e *Engine) experienceSubScore(c *model.CandidateSnapshot, j *model.JobSnapshot) int {
	if j.RequiredExperienceYears <= 0 {
		return 100
	}

	now := e.now()
	title := normalize(j.Title)

	var years float64
	for _, exp := range c.Experiences {
		if title != "" && !overlaps(normalize(exp.Title), title) {
			continue
		}
		end := now
		if exp.End != nil {
			end = *exp.End
		}
		if d := end.Sub(exp.Start); d > 0 {
			years += d.Hours() / hoursPerYear
		}
	}

	if years >= float64(j.RequiredExperienceYears) {
		return 100
	}
	return clamp(int(math.Round(years / float64(j.RequiredExperienceYears) * 100)))
}

// languageSubScore is the fraction of required languages the candidate speaks.
func languageSubScore(c *model.CandidateSnapshot, j *model.JobSnapshot) int {
	if len(j.RequiredLanguages) == 0 {
		return 100
	}

	matched := 0
	for _, required := range j.RequiredLanguages {
		req := normalize(required)
		for _, lang := range c.Languages {
			if normalize(lang.Name) == req {
				matched++
				break
			}
		}
	}

	return ratioScore(matched, len(j.RequiredLanguages))
}

// locationSubScore compares location strings. Missing data on either side is
// neutral (50), never a penalty.
func locationSubScore(c *model.CandidateSnapshot, j *model.JobSnapshot) int {
	if j.Remote == model.RemoteFull {
		return 100
	}

	cand := normalize(c.Location)
	job := normalize(j.Location)
	if cand == "" || job == "" {
		return 50
	}

	if cand == job || strings.Contains(cand, job) || strings.Contains(job, cand) {
		return 100
	}
	if sharesToken(cand, job) {
		return 75
	}
	if j.Remote == model.RemoteHybrid {
		return 50
	}
	return 25
}

// availabilitySubScore compares the candidate's earliest start against the
// job's desired start date.
func availabilitySubScore(c *model.CandidateSnapshot, j *model.JobSnapshot) int {
	if j.DesiredStartDate == nil {
		return 100
	}
	if c.Availability.Immediate {
		return 100
	}
	if c.Availability.AvailableFrom == nil {
		return 50
	}

	delay := c.Availability.AvailableFrom.Sub(*j.DesiredStartDate)
	switch {
	case delay <= 0:
		return 100
	case delay <= 7*24*time.Hour:
		return 90
	case delay <= 14*24*time.Hour:
		return 80
	case delay <= 30*24*time.Hour:
		return 60
	default:
		return 30
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// overlaps reports a case-insensitive substring relationship in either
// direction. Inputs must already be normalized.
func overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// sharesToken reports whether two normalized location strings share a
// city/region token.
func sharesToken(a, b string) bool {
	seen := make(map[string]bool)
	for _, tok := range locationTokens(a) {
		seen[tok] = true
	}
	for _, tok := range locationTokens(b) {
		if seen[tok] {
			return true
		}
	}
	return false
}

func locationTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '/'
	})
}

func ratioScore(matched, required int) int {
	score := int(math.Round(float64(matched) / float64(required) * 100))
	if score > 100 {
		return 100
	}
	return score
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
