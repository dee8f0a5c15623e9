// Package model defines the read-only projections and score types shared
// across the matching service. Snapshots are fetched per call and never
// mutated by the core.
package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned by profile lookups when a candidate or job
// snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// BrowseContext tells the scoring engine who is looking at whom.
// The premium boost only applies when a recruiter browses candidates.
type BrowseContext int

const (
	CandidateBrowsing BrowseContext = iota
	RecruiterBrowsing
)

// RemoteMode mirrors the remote_mode enum in PostgreSQL.
type RemoteMode string

const (
	RemoteNone   RemoteMode = "none"
	RemoteHybrid RemoteMode = "hybrid"
	RemoteFull   RemoteMode = "full"
)

// Skill is a named skill with a free-form proficiency level.
type Skill struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// Experience is one past or current position of a candidate.
// End is nil for an ongoing position.
type Experience struct {
	Title   string     `json:"title"`
	Company string     `json:"company,omitempty"`
	Start   time.Time  `json:"start"`
	End     *time.Time `json:"end,omitempty"`
}

// Language is a spoken language with a free-form proficiency level.
type Language struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// Availability describes when a candidate can start.
type Availability struct {
	Immediate     bool       `json:"immediate"`
	AvailableFrom *time.Time `json:"availableFrom,omitempty"`
}

// CandidateSnapshot is the immutable candidate view used as scoring input.
type CandidateSnapshot struct {
	ID           string       `json:"id"`
	Skills       []Skill      `json:"skills"`
	Experiences  []Experience `json:"experiences"`
	Languages    []Language   `json:"languages"`
	Location     string       `json:"location"`
	Availability Availability `json:"availability"`
	Premium      bool         `json:"premium"`
	Boosted      bool         `json:"boosted"`
	Verified     bool         `json:"verified"`
	Active       bool         `json:"active"`
}

// JobSnapshot is the immutable job view used as scoring input.
type JobSnapshot struct {
	ID                      string     `json:"id"`
	RecruiterID             string     `json:"recruiterId"`
	Title                   string     `json:"title"`
	RequiredSkills          []string   `json:"requiredSkills"`
	RequiredLanguages       []string   `json:"requiredLanguages"`
	RequiredExperienceYears int        `json:"requiredExperienceYears"`
	Location                string     `json:"location"`
	Remote                  RemoteMode `json:"remote"`
	DesiredStartDate        *time.Time `json:"desiredStartDate,omitempty"`
	Active                  bool       `json:"active"`
	ExpiresAt               *time.Time `json:"expiresAt,omitempty"`
}

// Available reports whether the job can still receive applications.
func (j *JobSnapshot) Available(now time.Time) bool {
	if !j.Active {
		return false
	}
	return j.ExpiresAt == nil || j.ExpiresAt.After(now)
}

// ScoreBreakdown holds the five per-factor sub-scores, each in [0,100].
type ScoreBreakdown struct {
	Skills       int `json:"skills"`
	Experience   int `json:"experience"`
	Language     int `json:"language"`
	Location     int `json:"location"`
	Availability int `json:"availability"`
}

// MatchScore is the compatibility score for one (candidate, job) pair.
// Value is in [0,100] and already includes PremiumBoost when one applied.
type MatchScore struct {
	Value        int            `json:"value"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
	PremiumBoost int            `json:"premiumBoost"`
}

// MatchingResult is the audit record a caller may persist alongside a
// fresh score. It is never authoritative; scores are recomputed per request.
type MatchingResult struct {
	CandidateID string     `json:"candidateId"`
	JobID       string     `json:"jobId"`
	Score       MatchScore `json:"score"`
	CreatedAt   time.Time  `json:"createdAt"`
}
