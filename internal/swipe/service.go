// Package swipe owns the swipe ledger: one live record per (candidate, job)
// pair, upserted on every interaction. A re-swipe changes intent — it
// overwrites the previous action, it never duplicates the record, and
// records are never hard-deleted.
package swipe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hospimatch/matching-service/internal/application"
)

// Action is the direction of a swipe.
type Action string

const (
	ActionLeft     Action = "left"
	ActionRight    Action = "right"
	ActionFavorite Action = "favorite"
)

// ParseAction converts a raw string to an Action, returning an error for
// unknown values.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionLeft, ActionRight, ActionFavorite:
		return a, nil
	}
	return "", fmt.Errorf("unknown swipe action %q", s)
}

// Record is the latest interaction for one (candidate, job) pair.
type Record struct {
	CandidateID string    `json:"candidateId"`
	JobID       string    `json:"jobId"`
	Action      Action    `json:"action"`
	Reason      *string   `json:"reason,omitempty"`
	SwipedAt    time.Time `json:"swipedAt"`
}

// Store persists swipe records. Upsert must be atomic on the pair key and
// report the action the pair held before this call ("" on first swipe), so
// the like-counter guard cannot race.
type Store interface {
	Upsert(ctx context.Context, candidateID, jobID string, action Action, reason *string) (rec *Record, prev Action, err error)
}

// Applications creates the formal application an affirmative swipe implies.
type Applications interface {
	CreateFromSwipe(ctx context.Context, candidateID, jobID string) (*application.Application, bool, error)
}

// Counters mutates the job-owned counters.
type Counters interface {
	IncrementLikes(ctx context.Context, jobID string) error
	IncrementViews(ctx context.Context, jobID string) error
}

// Service records swipes and drives their side effects.
type Service struct {
	store    Store
	apps     Applications
	counters Counters
	log      *zap.Logger
}

// NewService returns a configured Service.
func NewService(store Store, apps Applications, counters Counters, log *zap.Logger) *Service {
	return &Service{store: store, apps: apps, counters: counters, log: log}
}

// RecordSwipe upserts the ledger entry for the pair and runs the side
// effects of the resulting action:
//
//   - right: create-or-noop an Application
//   - favorite: create-or-noop an Application and bump the job's like
//     counter, once per distinct favoriting candidate (re-favoriting the
//     same pair does not double-count)
//   - left: ledger entry only; the job disappears from the candidate's
//     future ranked listings
//
// Application-creation failures (unavailable job, missing snapshot) are
// returned to the caller; the ledger entry stands either way.
func (s *Service) RecordSwipe(ctx context.Context, candidateID, jobID string, action Action, reason string) (*Record, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return nil, err
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	rec, prev, err := s.store.Upsert(ctx, candidateID, jobID, action, reasonPtr)
	if err != nil {
		return nil, fmt.Errorf("upsert swipe: %w", err)
	}

	if action == ActionLeft {
		return rec, nil
	}

	// right or favorite: both imply an application.
	_, created, err := s.apps.CreateFromSwipe(ctx, candidateID, jobID)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("swipe created application",
			zap.String("candidateId", candidateID),
			zap.String("jobId", jobID),
			zap.String("action", string(action)))
	}

	if action == ActionFavorite && prev != ActionFavorite {
		if err := s.counters.IncrementLikes(ctx, jobID); err != nil {
			s.log.Warn("increment like count failed",
				zap.String("jobId", jobID), zap.Error(err))
		}
	}

	return rec, nil
}

// RecordJobView bumps the job's view counter. Called by the gateway once
// per job-detail render; the core is the only writer of job counters.
func (s *Service) RecordJobView(ctx context.Context, jobID string) error {
	return s.counters.IncrementViews(ctx, jobID)
}
