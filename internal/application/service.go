package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hospimatch/matching-service/internal/model"
	"hospimatch/matching-service/internal/notify"
	"hospimatch/matching-service/internal/scoring"
)

// Application is the formal record of a candidate pursuing a job. Exactly
// one exists per (candidate, job) pair, independent of the swipe that may
// have created it.
type Application struct {
	ID              string          `json:"id"`
	CandidateID     string          `json:"candidateId"`
	JobID           string          `json:"jobId"`
	Status          Status          `json:"status"`
	PersonalMessage *string         `json:"personalMessage"`
	RecruiterNotes  *string         `json:"recruiterNotes"`
	RejectionReason *string         `json:"rejectionReason"`
	MatchingScore   int             `json:"matchingScore"`
	HistoryLog      json.RawMessage `json:"historyLog"`
	CreatedAt       time.Time       `json:"createdAt"`
	StatusUpdatedAt time.Time       `json:"statusUpdatedAt"`
}

// StatusUpdate carries one transition to the store. Nil note fields preserve
// the stored values; non-nil ones overwrite.
type StatusUpdate struct {
	Status          Status
	RecruiterNotes  *string
	RejectionReason *string
	HistoryEntry    json.RawMessage
}

// Store is the persistence contract for applications. Insert must be an
// atomic conditional insert on the unique (candidate, job) pair; UpdateStatus
// must be a compare-and-swap on the expected current status.
type Store interface {
	Insert(ctx context.Context, app *Application) (created bool, err error)
	GetByID(ctx context.Context, id string) (*Application, error)
	GetByPair(ctx context.Context, candidateID, jobID string) (*Application, error)
	UpdateStatus(ctx context.Context, id string, expected Status, upd StatusUpdate) (*Application, error)
	ListForCandidate(ctx context.Context, candidateID string) ([]Application, error)
	ListForJob(ctx context.Context, jobID string) ([]Application, error)
}

// Profiles is the read-only snapshot source.
type Profiles interface {
	GetCandidateSnapshot(ctx context.Context, id string) (*model.CandidateSnapshot, error)
	GetJobSnapshot(ctx context.Context, id string) (*model.JobSnapshot, error)
}

// Counters mutates the job-owned counters. Increments are independent
// atomic writes, outside the pair-level idempotency guard.
type Counters interface {
	IncrementApplications(ctx context.Context, jobID string) error
}

// Audit persists non-authoritative MatchingResult rows.
type Audit interface {
	SaveMatchingResult(ctx context.Context, res *model.MatchingResult) error
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when an application does not exist.
	ErrNotFound = errors.New("application not found")

	// ErrAlreadyApplied marks an idempotent duplicate creation. Callers
	// treat it as a benign no-op, not a failure.
	ErrAlreadyApplied = errors.New("already applied")

	// ErrJobUnavailable is returned when the target job is inactive or
	// expired. Hard failure for application creation.
	ErrJobUnavailable = errors.New("job unavailable")

	// ErrConflict is returned after losing a concurrent update race twice.
	// Callers may retry.
	ErrConflict = errors.New("concurrent update conflict")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ─── Service ─────────────────────────────────────────────────────────────────

// Service owns the application lifecycle: idempotent creation and the
// recruiter-driven status state machine with its notification side effects.
// It is transport-agnostic.
type Service struct {
	store    Store
	profiles Profiles
	counters Counters
	audit    Audit
	engine   *scoring.Engine
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

// NewService returns a configured Service.
func NewService(store Store, profiles Profiles, counters Counters, audit Audit, engine *scoring.Engine, notifier notify.Notifier, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		counters: counters,
		audit:    audit,
		engine:   engine,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Apply creates an application directly (candidate-initiated, no swipe).
// A duplicate returns the existing application together with
// ErrAlreadyApplied so the caller can report "already applied" as a success.
func (s *Service) Apply(ctx context.Context, candidateID, jobID, personalMessage string) (*Application, error) {
	var msg *string
	if personalMessage != "" {
		msg = &personalMessage
	}

	app, created, err := s.create(ctx, candidateID, jobID, msg)
	if err != nil {
		return nil, err
	}
	if !created {
		return app, ErrAlreadyApplied
	}
	return app, nil
}

// CreateFromSwipe creates an application for a right/favorite swipe.
// Idempotent: an existing application is returned with created=false and no
// error, keeping the swipe path retry-safe.
func (s *Service) CreateFromSwipe(ctx context.Context, candidateID, jobID string) (*Application, bool, error) {
	return s.create(ctx, candidateID, jobID, nil)
}

func (s *Service) create(ctx context.Context, candidateID, jobID string, personalMessage *string) (*Application, bool, error) {
	job, err := s.profiles.GetJobSnapshot(ctx, jobID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, false, fmt.Errorf("job %s: %w", jobID, model.ErrNotFound)
		}
		return nil, false, fmt.Errorf("fetch job snapshot: %w", err)
	}
	if !job.Available(s.now()) {
		return nil, false, ErrJobUnavailable
	}

	cand, err := s.profiles.GetCandidateSnapshot(ctx, candidateID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, false, fmt.Errorf("candidate %s: %w", candidateID, model.ErrNotFound)
		}
		return nil, false, fmt.Errorf("fetch candidate snapshot: %w", err)
	}

	score := s.engine.Score(cand, job, model.CandidateBrowsing)
	now := s.now().UTC()

	app := &Application{
		ID:              uuid.New().String(),
		CandidateID:     candidateID,
		JobID:           jobID,
		Status:          StatusUnseen,
		PersonalMessage: personalMessage,
		MatchingScore:   score.Value,
		HistoryLog:      json.RawMessage("[]"),
		CreatedAt:       now,
		StatusUpdatedAt: now,
	}

	created, err := s.store.Insert(ctx, app)
	if err != nil {
		return nil, false, fmt.Errorf("insert application: %w", err)
	}
	if !created {
		existing, err := s.store.GetByPair(ctx, candidateID, jobID)
		if err != nil {
			return nil, false, fmt.Errorf("fetch existing application: %w", err)
		}
		return existing, false, nil
	}

	// Post-creation side effects are all non-fatal: the application exists.
	if err := s.counters.IncrementApplications(ctx, jobID); err != nil {
		s.log.Warn("increment application count failed",
			zap.String("jobId", jobID), zap.Error(err))
	}
	if err := s.audit.SaveMatchingResult(ctx, &model.MatchingResult{
		CandidateID: candidateID,
		JobID:       jobID,
		Score:       score,
		CreatedAt:   now,
	}); err != nil {
		s.log.Warn("persist matching result failed",
			zap.String("candidateId", candidateID), zap.String("jobId", jobID), zap.Error(err))
	}
	if err := s.notifier.Send(ctx, job.RecruiterID, notify.KindApplicationReceived, map[string]string{
		"applicationId": app.ID,
		"candidateId":   candidateID,
		"jobId":         jobID,
	}); err != nil {
		s.log.Warn("notify recruiter failed",
			zap.String("jobId", jobID), zap.Error(err))
	}

	return app, true, nil
}

// UpdateOptions carries the optional fields of a status update. Nil fields
// preserve the stored values.
type UpdateOptions struct {
	RecruiterNotes  *string
	RejectionReason *string
}

// UpdateStatus moves an application to a new status. Any non-initial status
// is reachable from any other; leaving rejected/hired is audited as a
// reopen. statusUpdatedAt is refreshed on every change and a history entry
// is appended. The candidate notification is fire-and-forget: its failure
// is logged, never rolled back. A lost concurrent race is retried once.
func (s *Service) UpdateStatus(ctx context.Context, applicationID string, newStatus Status, opts UpdateOptions) (*Application, error) {
	if _, err := ParseStatus(string(newStatus)); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	if IsInitial(newStatus) {
		return nil, &ValidationError{Msg: fmt.Sprintf("status %s is assigned at creation and cannot be set", newStatus)}
	}

	updated, err := s.transition(ctx, applicationID, newStatus, opts)
	if errors.Is(err, ErrConflict) {
		updated, err = s.transition(ctx, applicationID, newStatus, opts)
	}
	if err != nil {
		return nil, err
	}

	if kind, ok := NotificationFor(newStatus); ok {
		if err := s.notifier.Send(ctx, updated.CandidateID, kind, map[string]string{
			"applicationId": updated.ID,
			"jobId":         updated.JobID,
			"status":        string(newStatus),
		}); err != nil {
			s.log.Warn("notify candidate failed",
				zap.String("applicationId", updated.ID), zap.Error(err))
		}
	}

	return updated, nil
}

func (s *Service) transition(ctx context.Context, applicationID string, newStatus Status, opts UpdateOptions) (*Application, error) {
	current, err := s.store.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	reopened := IsReopen(current.Status, newStatus)
	if reopened {
		s.log.Warn("reopening a closed application",
			zap.String("applicationId", applicationID),
			zap.String("from", string(current.Status)),
			zap.String("to", string(newStatus)))
	}

	entry, _ := json.Marshal(map[string]any{
		"from":     string(current.Status),
		"to":       string(newStatus),
		"at":       s.now().UTC().Format(time.RFC3339),
		"reopened": reopened,
	})

	return s.store.UpdateStatus(ctx, applicationID, current.Status, StatusUpdate{
		Status:          newStatus,
		RecruiterNotes:  opts.RecruiterNotes,
		RejectionReason: opts.RejectionReason,
		HistoryEntry:    entry,
	})
}

// Get returns one application by ID.
func (s *Service) Get(ctx context.Context, applicationID string) (*Application, error) {
	return s.store.GetByID(ctx, applicationID)
}

// ListForCandidate returns a candidate's applications, newest first.
func (s *Service) ListForCandidate(ctx context.Context, candidateID string) ([]Application, error) {
	return s.store.ListForCandidate(ctx, candidateID)
}

// ListForJob returns a job's applications, newest first.
func (s *Service) ListForJob(ctx context.Context, jobID string) ([]Application, error) {
	return s.store.ListForJob(ctx, jobID)
}
