package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RankingPool answers the ranking coordinator's pool and exclusion queries,
// and owns the expiry sweep the scheduler runs.
type RankingPool struct {
	pool *pgxpool.Pool
}

// NewRankingPool returns a RankingPool store.
func NewRankingPool(pool *pgxpool.Pool) *RankingPool {
	return &RankingPool{pool: pool}
}

// ActiveJobIDs returns active, non-expired job IDs, newest first.
func (r *RankingPool) ActiveJobIDs(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT id FROM jobs
		WHERE is_active = true AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC`
	if limit > 0 {
		return r.queryIDs(ctx, query+` LIMIT $1`, limit)
	}
	return r.queryIDs(ctx, query)
}

// VerifiedCandidateIDs returns verified, active candidate IDs, newest first.
func (r *RankingPool) VerifiedCandidateIDs(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT id FROM candidates
		WHERE is_verified = true AND is_active = true
		ORDER BY created_at DESC`
	if limit > 0 {
		return r.queryIDs(ctx, query+` LIMIT $1`, limit)
	}
	return r.queryIDs(ctx, query)
}

// ExcludedJobIDs returns the jobs the candidate dismissed or already applied
// to, as a set.
func (r *RankingPool) ExcludedJobIDs(ctx context.Context, candidateID string) (map[string]struct{}, error) {
	ids, err := r.queryIDs(ctx, `
		SELECT job_id FROM swipes WHERE candidate_id = $1 AND action = 'left'
		UNION
		SELECT job_id FROM applications WHERE candidate_id = $1`,
		candidateID)
	if err != nil {
		return nil, err
	}
	excluded := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		excluded[id] = struct{}{}
	}
	return excluded, nil
}

// ExpireJobs deactivates every job whose expiry has passed and returns how
// many rows it touched. Safe to run repeatedly.
func (r *RankingPool) ExpireJobs(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs
		 SET is_active = false
		 WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("expire jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RankingPool) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
