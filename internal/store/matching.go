package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hospimatch/matching-service/internal/model"
)

// MatchingResults persists the non-authoritative score audit trail. Rows are
// written after facts (a score shown, an application created), never read on
// the hot path.
type MatchingResults struct {
	pool *pgxpool.Pool
}

// NewMatchingResults returns a MatchingResults store.
func NewMatchingResults(pool *pgxpool.Pool) *MatchingResults {
	return &MatchingResults{pool: pool}
}

// SaveMatchingResult appends one audit row.
func (m *MatchingResults) SaveMatchingResult(ctx context.Context, res *model.MatchingResult) error {
	_, err := m.pool.Exec(ctx,
		`INSERT INTO matching_results
		     (candidate_id, job_id, score, breakdown, premium_boost, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		res.CandidateID, res.JobID, res.Score.Value, res.Score.Breakdown,
		res.Score.PremiumBoost, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save matching result: %w", err)
	}
	return nil
}
