package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hospimatch/matching-service/internal/swipe"
)

// Swipes persists the swipe ledger.
type Swipes struct {
	pool *pgxpool.Pool
}

// NewSwipes returns a Swipes store.
func NewSwipes(pool *pgxpool.Pool) *Swipes {
	return &Swipes{pool: pool}
}

// Upsert writes the live record for the pair in one atomic statement and
// reports the action the pair held before the call, empty on first swipe.
func (s *Swipes) Upsert(ctx context.Context, candidateID, jobID string, action swipe.Action, reason *string) (*swipe.Record, swipe.Action, error) {
	query := `
		WITH prev AS (
			SELECT action FROM swipes
			WHERE candidate_id = $1 AND job_id = $2
		)
		INSERT INTO swipes (candidate_id, job_id, action, reason, swiped_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (candidate_id, job_id)
		DO UPDATE SET action = EXCLUDED.action, reason = EXCLUDED.reason, swiped_at = NOW()
		RETURNING candidate_id, job_id, action, reason, swiped_at,
		          COALESCE((SELECT action FROM prev), '')`

	var (
		rec            swipe.Record
		recAction      string
		previousAction string
	)
	err := s.pool.QueryRow(ctx, query, candidateID, jobID, string(action), reason).Scan(
		&rec.CandidateID, &rec.JobID, &recAction, &rec.Reason, &rec.SwipedAt,
		&previousAction,
	)
	if err != nil {
		return nil, "", fmt.Errorf("upsert swipe: %w", err)
	}
	rec.Action = swipe.Action(recAction)
	return &rec, swipe.Action(previousAction), nil
}
