package ranking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospimatch/matching-service/internal/model"
	"hospimatch/matching-service/internal/ranking"
	"hospimatch/matching-service/internal/scoring"
)

// ─── Fakes ───────────────────────────────────────────────────────────────────

type fakeProfiles struct {
	candidates map[string]*model.CandidateSnapshot
	jobs       map[string]*model.JobSnapshot
	jobDelay   map[string]time.Duration // per-job artificial latency
}

func (f *fakeProfiles) GetCandidateSnapshot(_ context.Context, id string) (*model.CandidateSnapshot, error) {
	if c, ok := f.candidates[id]; ok {
		return c, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeProfiles) GetJobSnapshot(ctx context.Context, id string) (*model.JobSnapshot, error) {
	if delay, ok := f.jobDelay[id]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, model.ErrNotFound
}

type fakePool struct {
	jobIDs       []string
	candidateIDs []string
	err          error
}

func (f *fakePool) ActiveJobIDs(_ context.Context, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.jobIDs) {
		return f.jobIDs[:limit], nil
	}
	return f.jobIDs, nil
}

func (f *fakePool) VerifiedCandidateIDs(_ context.Context, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.candidateIDs) {
		return f.candidateIDs[:limit], nil
	}
	return f.candidateIDs, nil
}

type fakeExclusions struct {
	byCandidate map[string][]string
}

func (f *fakeExclusions) ExcludedJobIDs(_ context.Context, candidateID string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, id := range f.byCandidate[candidateID] {
		out[id] = struct{}{}
	}
	return out, nil
}

// ─── Fixtures ────────────────────────────────────────────────────────────────

func parisCandidate(id string) *model.CandidateSnapshot {
	return &model.CandidateSnapshot{
		ID:       id,
		Location: "Paris",
		Skills:   []model.Skill{{Name: "Service"}},
		Active:   true,
		Verified: true,
	}
}

// jobFor builds a job whose score depends on location so tests can shape
// the ordering.
func jobFor(id, location string) *model.JobSnapshot {
	return &model.JobSnapshot{
		ID:       id,
		Title:    "Serveur",
		Location: location,
		Active:   true,
	}
}

func newCoordinator(profiles *fakeProfiles, pool *fakePool, exclusions *fakeExclusions, cfg ranking.Config) *ranking.Coordinator {
	return ranking.NewCoordinator(pool, exclusions, profiles, scoring.NewEngine(), cfg, zap.NewNop())
}

// ─── Job ranking ─────────────────────────────────────────────────────────────

func TestRankJobsForCandidate_OrderedByScoreThenID(t *testing.T) {
	profiles := &fakeProfiles{
		candidates: map[string]*model.CandidateSnapshot{"cand-1": parisCandidate("cand-1")},
		jobs: map[string]*model.JobSnapshot{
			"job-paris":  jobFor("job-paris", "Paris"),     // location 100
			"job-lyon":   jobFor("job-lyon", "Lyon"),       // location 25
			"job-paris2": jobFor("job-paris2", "Paris"),    // ties with job-paris
		},
	}
	pool := &fakePool{jobIDs: []string{"job-lyon", "job-paris2", "job-paris"}}
	coord := newCoordinator(profiles, pool, &fakeExclusions{}, ranking.Config{})

	ranked, err := coord.RankJobsForCandidate(context.Background(), "cand-1", 0)

	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "job-paris", ranked[0].Job.ID, "equal scores break ties by job ID")
	assert.Equal(t, "job-paris2", ranked[1].Job.ID)
	assert.Equal(t, "job-lyon", ranked[2].Job.ID)
	assert.Greater(t, ranked[0].Score.Value, ranked[2].Score.Value)
}

func TestRankJobsForCandidate_Deterministic(t *testing.T) {
	profiles := &fakeProfiles{
		candidates: map[string]*model.CandidateSnapshot{"cand-1": parisCandidate("cand-1")},
		jobs:       map[string]*model.JobSnapshot{},
	}
	var ids []string
	for _, id := range []string{"job-a", "job-b", "job-c", "job-d", "job-e"} {
		profiles.jobs[id] = jobFor(id, "Paris")
		ids = append(ids, id)
	}
	pool := &fakePool{jobIDs: ids}
	coord := newCoordinator(profiles, pool, &fakeExclusions{}, ranking.Config{Workers: 3})

	first, err := coord.RankJobsForCandidate(context.Background(), "cand-1", 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := coord.RankJobsForCandidate(context.Background(), "cand-1", 0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRankJobsForCandidate_ExcludesSwipedAndApplied(t *testing.T) {
	profiles := &fakeProfiles{
		candidates: map[string]*model.CandidateSnapshot{"cand-1": parisCandidate("cand-1")},
		jobs: map[string]*model.JobSnapshot{
			"job-1": jobFor("job-1", "Paris"),
			"job-2": jobFor("job-2", "Paris"),
			"job-3": jobFor("job-3", "Paris"),
		},
	}
	pool := &fakePool{jobIDs: []string{"job-1", "job-2", "job-3"}}
	exclusions := &fakeExclusions{byCandidate: map[string][]string{
		"cand-1": {"job-1", "job-3"}, // swiped left on job-1, applied to job-3
	}}
	coord := newCoordinator(profiles, pool, exclusions, ranking.Config{})

	ranked, err := coord.RankJobsForCandidate(context.Background(), "cand-1", 0)

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "job-2", ranked[0].Job.ID)
}

func TestRankJobsForCandidate_SkipsFailingMembers(t *testing.T) {
	profiles := &fakeProfiles{
		candidates: map[string]*model.CandidateSnapshot{"cand-1": parisCandidate("cand-1")},
		jobs: map[string]*model.JobSnapshot{
			"job-1": jobFor("job-1", "Paris"),
			// job-ghost has no snapshot
			"job-3": jobFor("job-3", "Paris"),
		},
	}
	pool := &fakePool{jobIDs: []string{"job-1", "job-ghost", "job-3"}}
	coord := newCoordinator(profiles, pool, &fakeExclusions{}, ranking.Config{})

	ranked, err := coord.RankJobsForCandidate(context.Background(), "cand-1", 0)

	require.NoError(t, err, "a failing pool member is skipped, not fatal")
	assert.Len(t, ranked, 2)
}

func TestRankJobsForCandidate_PerCallTimeoutSkipsSlowMember(t *testing.T) {
	profiles := &fakeProfiles{
		candidates: map[string]*model.CandidateSnapshot{"cand-1": parisCandidate("cand-1")},
		jobs: map[string]*model.JobSnapshot{
			"job-fast": jobFor("job-fast", "Paris"),
			"job-slow": jobFor("job-slow", "Paris"),
		},
		jobDelay: map[string]time.Duration{"job-slow": 200 * time.Millisecond},
	}
	pool := &fakePool{jobIDs: []string{"job-fast", "job-slow"}}
	coord := newCoordinator(profiles, pool, &fakeExclusions{}, ranking.Config{
		Workers:        2,
		PerCallTimeout: 25 * time.Millisecond,
		BatchTimeout:   time.Second,
	})

	ranked, err := coord.RankJobsForCandidate(context.Background(), "cand-1", 0)

	require.NoError(t, err)
	require.Len(t, ranked, 1, "the slow member is dropped, the batch survives")
	assert.Equal(t, "job-fast", ranked[0].Job.ID)
}

func TestRankJobsForCandidate_UnknownCandidate(t *testing.T) {
	coord := newCoordinator(&fakeProfiles{}, &fakePool{}, &fakeExclusions{}, ranking.Config{})

	_, err := coord.RankJobsForCandidate(context.Background(), "cand-ghost", 0)

	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRankJobsForCandidate_PoolError(t *testing.T) {
	profiles := &fakeProfiles{
		candidates: map[string]*model.CandidateSnapshot{"cand-1": parisCandidate("cand-1")},
	}
	pool := &fakePool{err: errors.New("db down")}
	coord := newCoordinator(profiles, pool, &fakeExclusions{}, ranking.Config{})

	_, err := coord.RankJobsForCandidate(context.Background(), "cand-1", 0)

	assert.Error(t, err)
}

// ─── Candidate ranking ───────────────────────────────────────────────────────

func TestRankCandidatesForJob_TieBreakKeysLayeredOverScore(t *testing.T) {
	// plain-higher scores strictly higher than everyone else on raw score;
	// boosted and premium candidates score lower but outrank it.
	candidates := map[string]*model.CandidateSnapshot{
		"cand-plain": {
			ID: "cand-plain", Location: "Paris", Active: true, Verified: true,
			Skills: []model.Skill{{Name: "Service"}, {Name: "Caisse"}},
		},
		"cand-boosted": {
			ID: "cand-boosted", Location: "Lyon", Active: true, Verified: true,
			Boosted: true,
		},
		"cand-premium": {
			ID: "cand-premium", Location: "Lyon", Active: true, Verified: true,
			Premium: true,
		},
		"cand-boost-inactive": {
			ID: "cand-boost-inactive", Location: "Lyon", Active: false, Verified: true,
			Boosted: true,
		},
	}
	job := &model.JobSnapshot{
		ID: "job-1", Title: "Caissier", Location: "Paris",
		RequiredSkills: []string{"service", "caisse"},
		Active:         true,
	}
	profiles := &fakeProfiles{candidates: candidates, jobs: map[string]*model.JobSnapshot{"job-1": job}}
	pool := &fakePool{candidateIDs: []string{"cand-plain", "cand-boosted", "cand-premium", "cand-boost-inactive"}}
	coord := newCoordinator(profiles, pool, &fakeExclusions{}, ranking.Config{})

	ranked, err := coord.RankCandidatesForJob(context.Background(), "job-1", 0)

	require.NoError(t, err)
	require.Len(t, ranked, 4)
	assert.Equal(t, "cand-boosted", ranked[0].Candidate.ID, "boosted-and-active outranks raw score")
	assert.Equal(t, "cand-premium", ranked[1].Candidate.ID, "premium is the second tie-break key")
	// The remaining two are ordered by raw score.
	assert.Equal(t, "cand-plain", ranked[2].Candidate.ID)
	assert.Equal(t, "cand-boost-inactive", ranked[3].Candidate.ID, "boost without active status does not jump the queue")
	assert.Greater(t, ranked[2].Score.Value, ranked[3].Score.Value)
}

func TestRankCandidatesForJob_PremiumBoostApplied(t *testing.T) {
	candidates := map[string]*model.CandidateSnapshot{
		"cand-premium": {ID: "cand-premium", Location: "Lyon", Active: true, Verified: true, Premium: true},
	}
	job := &model.JobSnapshot{ID: "job-1", Title: "Serveur", Location: "Paris", Active: true}
	profiles := &fakeProfiles{candidates: candidates, jobs: map[string]*model.JobSnapshot{"job-1": job}}
	pool := &fakePool{candidateIDs: []string{"cand-premium"}}
	coord := newCoordinator(profiles, pool, &fakeExclusions{}, ranking.Config{})

	ranked, err := coord.RankCandidatesForJob(context.Background(), "job-1", 0)

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 5, ranked[0].Score.PremiumBoost, "recruiter-facing ranking applies the premium boost")
}
