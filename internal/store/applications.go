package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hospimatch/matching-service/internal/application"
)

const applicationColumns = `id, candidate_id, job_id, status, personal_message,
	recruiter_notes, rejection_reason, matching_score, history_log,
	created_at, status_updated_at`

// Applications persists applications and their transition history.
type Applications struct {
	pool *pgxpool.Pool
}

// NewApplications returns an Applications store.
func NewApplications(pool *pgxpool.Pool) *Applications {
	return &Applications{pool: pool}
}

// Insert writes a new application. The unique index on (candidate_id,
// job_id) makes the insert idempotent: a duplicate is a silent no-op and
// created reports false.
func (a *Applications) Insert(ctx context.Context, app *application.Application) (bool, error) {
	tag, err := a.pool.Exec(ctx,
		`INSERT INTO applications
		     (id, candidate_id, job_id, status, personal_message,
		      matching_score, history_log, created_at, status_updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (candidate_id, job_id) DO NOTHING`,
		app.ID, app.CandidateID, app.JobID, string(app.Status), app.PersonalMessage,
		app.MatchingScore, app.HistoryLog, app.CreatedAt, app.StatusUpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert application: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID returns one application.
func (a *Applications) GetByID(ctx context.Context, id string) (*application.Application, error) {
	row := a.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row)
}

// GetByPair returns the application for one (candidate, job) pair.
func (a *Applications) GetByPair(ctx context.Context, candidateID, jobID string) (*application.Application, error) {
	row := a.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE candidate_id = $1 AND job_id = $2`, candidateID, jobID)
	return scanApplication(row)
}

// UpdateStatus applies one transition, guarded by a compare-and-swap on the
// expected current status. The history entry is appended to the jsonb log
// in the same statement; nil note fields keep the stored values.
func (a *Applications) UpdateStatus(ctx context.Context, id string, expected application.Status, upd application.StatusUpdate) (*application.Application, error) {
	row := a.pool.QueryRow(ctx,
		`UPDATE applications
		 SET status            = $1,
		     recruiter_notes   = COALESCE($2, recruiter_notes),
		     rejection_reason  = COALESCE($3, rejection_reason),
		     history_log       = history_log || $4::jsonb,
		     status_updated_at = NOW()
		 WHERE id = $5 AND status = $6
		 RETURNING `+applicationColumns,
		string(upd.Status), upd.RecruiterNotes, upd.RejectionReason,
		fmt.Sprintf("[%s]", upd.HistoryEntry), id, string(expected),
	)
	app, err := scanApplication(row)
	if errors.Is(err, application.ErrNotFound) {
		// Zero rows: either the row is gone or another writer moved the
		// status first. Tell them apart so the caller can retry the race.
		var exists bool
		if probeErr := a.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, id,
		).Scan(&exists); probeErr != nil {
			return nil, fmt.Errorf("update status: %w", probeErr)
		}
		if exists {
			return nil, application.ErrConflict
		}
		return nil, application.ErrNotFound
	}
	return app, err
}

// ListForCandidate returns the candidate's applications, most recently
// updated first.
func (a *Applications) ListForCandidate(ctx context.Context, candidateID string) ([]application.Application, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE candidate_id = $1
		 ORDER BY status_updated_at DESC`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list applications for candidate: %w", err)
	}
	return scanApplications(rows)
}

// ListForJob returns the job's applications, most recently updated first.
func (a *Applications) ListForJob(ctx context.Context, jobID string) ([]application.Application, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE job_id = $1
		 ORDER BY status_updated_at DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list applications for job: %w", err)
	}
	return scanApplications(rows)
}

func scanApplication(row pgx.Row) (*application.Application, error) {
	var (
		app    application.Application
		status string
	)
	err := row.Scan(
		&app.ID, &app.CandidateID, &app.JobID, &status, &app.PersonalMessage,
		&app.RecruiterNotes, &app.RejectionReason, &app.MatchingScore, &app.HistoryLog,
		&app.CreatedAt, &app.StatusUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.Status = application.Status(status)
	return &app, nil
}

func scanApplications(rows pgx.Rows) ([]application.Application, error) {
	defer rows.Close()

	var apps []application.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}
