// Package store implements the persistence contracts declared by the
// service packages on top of a pgx connection pool. One small type per
// concern; services only ever see their own narrow interface.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hospimatch/matching-service/internal/model"
)

// Profiles reads candidate and job snapshots. The profile tables are owned
// by the account/posting subsystems; this core only reads them.
type Profiles struct {
	pool *pgxpool.Pool
}

// NewProfiles returns a Profiles store.
func NewProfiles(pool *pgxpool.Pool) *Profiles {
	return &Profiles{pool: pool}
}

// GetCandidateSnapshot fetches one candidate projection.
func (p *Profiles) GetCandidateSnapshot(ctx context.Context, id string) (*model.CandidateSnapshot, error) {
	var c model.CandidateSnapshot
	err := p.pool.QueryRow(ctx,
		`SELECT id, skills, experiences, languages, COALESCE(location, ''),
		        available_immediately, available_from,
		        is_premium, is_boosted, is_verified, is_active
		 FROM candidates
		 WHERE id = $1`,
		id,
	).Scan(
		&c.ID, &c.Skills, &c.Experiences, &c.Languages, &c.Location,
		&c.Availability.Immediate, &c.Availability.AvailableFrom,
		&c.Premium, &c.Boosted, &c.Verified, &c.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("getCandidateSnapshot: %w", err)
	}
	return &c, nil
}

// GetJobSnapshot fetches one job projection.
func (p *Profiles) GetJobSnapshot(ctx context.Context, id string) (*model.JobSnapshot, error) {
	var (
		j      model.JobSnapshot
		remote string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, recruiter_id, COALESCE(title, ''), required_skills, required_languages,
		        required_experience_years, COALESCE(location, ''), remote_mode,
		        desired_start_date, is_active, expires_at
		 FROM jobs
		 WHERE id = $1`,
		id,
	).Scan(
		&j.ID, &j.RecruiterID, &j.Title, &j.RequiredSkills, &j.RequiredLanguages,
		&j.RequiredExperienceYears, &j.Location, &remote,
		&j.DesiredStartDate, &j.Active, &j.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("getJobSnapshot: %w", err)
	}
	j.Remote = model.RemoteMode(remote)
	return &j, nil
}
