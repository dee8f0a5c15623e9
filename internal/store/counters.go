package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"hospimatch/matching-service/internal/model"
)

// Counters mutates the denormalized per-job counters. Each increment is a
// single atomic UPDATE; there is no read-modify-write window.
type Counters struct {
	pool *pgxpool.Pool
}

// NewCounters returns a Counters store.
func NewCounters(pool *pgxpool.Pool) *Counters {
	return &Counters{pool: pool}
}

// IncrementLikes bumps the job's like counter.
func (c *Counters) IncrementLikes(ctx context.Context, jobID string) error {
	return c.increment(ctx, "like_count", jobID)
}

// IncrementViews bumps the job's view counter.
func (c *Counters) IncrementViews(ctx context.Context, jobID string) error {
	return c.increment(ctx, "view_count", jobID)
}

// IncrementApplications bumps the job's application counter.
func (c *Counters) IncrementApplications(ctx context.Context, jobID string) error {
	return c.increment(ctx, "application_count", jobID)
}

func (c *Counters) increment(ctx context.Context, column, jobID string) error {
	// column is one of the three fixed names above, never user input.
	tag, err := c.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE jobs SET %s = %s + 1 WHERE id = $1`, column, column),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
