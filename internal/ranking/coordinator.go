// Package ranking fans scoring out over a candidate or job pool and returns
// a deterministically ordered result. Fan-out is bounded so the profile
// store is never overwhelmed; a slow or failing pool member is skipped and
// logged, never fatal to the batch.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hospimatch/matching-service/internal/model"
	"hospimatch/matching-service/internal/scoring"
)

// Pool supplies the eligible member identifiers.
type Pool interface {
	// ActiveJobIDs returns IDs of active, non-expired jobs.
	ActiveJobIDs(ctx context.Context, limit int) ([]string, error)
	// VerifiedCandidateIDs returns IDs of verified, active candidates.
	VerifiedCandidateIDs(ctx context.Context, limit int) ([]string, error)
}

// Exclusions lists the jobs a candidate must never be shown again: anything
// they swiped left on, or already hold an application for.
type Exclusions interface {
	ExcludedJobIDs(ctx context.Context, candidateID string) (map[string]struct{}, error)
}

// Profiles is the read-only snapshot source.
type Profiles interface {
	GetCandidateSnapshot(ctx context.Context, id string) (*model.CandidateSnapshot, error)
	GetJobSnapshot(ctx context.Context, id string) (*model.JobSnapshot, error)
}

// Config bounds the fan-out.
type Config struct {
	Workers        int           // concurrent snapshot+score calls
	PerCallTimeout time.Duration // per pool member; expired members are skipped
	BatchTimeout   time.Duration // whole batch; partial results are returned
}

// DefaultConfig is used where a field is left zero.
var DefaultConfig = Config{
	Workers:        8,
	PerCallTimeout: 2 * time.Second,
	BatchTimeout:   10 * time.Second,
}

// RankedJob is one scored job in a candidate-facing listing.
type RankedJob struct {
	Job   *model.JobSnapshot `json:"job"`
	Score model.MatchScore   `json:"score"`
}

// RankedCandidate is one scored candidate in a recruiter-facing listing.
type RankedCandidate struct {
	Candidate *model.CandidateSnapshot `json:"candidate"`
	Score     model.MatchScore         `json:"score"`
}

// Coordinator runs the ranking fan-out.
type Coordinator struct {
	pool       Pool
	exclusions Exclusions
	profiles   Profiles
	engine     *scoring.Engine
	cfg        Config
	log        *zap.Logger
}

// NewCoordinator returns a configured Coordinator. Zero Config fields fall
// back to DefaultConfig.
func NewCoordinator(pool Pool, exclusions Exclusions, profiles Profiles, engine *scoring.Engine, cfg Config, log *zap.Logger) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if cfg.PerCallTimeout <= 0 {
		cfg.PerCallTimeout = DefaultConfig.PerCallTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultConfig.BatchTimeout
	}
	return &Coordinator{
		pool:       pool,
		exclusions: exclusions,
		profiles:   profiles,
		engine:     engine,
		cfg:        cfg,
		log:        log,
	}
}

// RankJobsForCandidate scores the eligible job pool for one candidate and
// returns it ordered by (score desc, job ID asc). Jobs the candidate swiped
// left on or already applied to never appear.
func (c *Coordinator) RankJobsForCandidate(ctx context.Context, candidateID string, poolSize int) ([]RankedJob, error) {
	cand, err := c.profiles.GetCandidateSnapshot(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate snapshot: %w", err)
	}

	excluded, err := c.exclusions.ExcludedJobIDs(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("fetch exclusions: %w", err)
	}

	ids, err := c.pool.ActiveJobIDs(ctx, poolSize)
	if err != nil {
		return nil, fmt.Errorf("fetch job pool: %w", err)
	}

	eligible := ids[:0:0]
	for _, id := range ids {
		if _, skip := excluded[id]; !skip {
			eligible = append(eligible, id)
		}
	}

	results := make([]*RankedJob, len(eligible))
	c.forEach(ctx, eligible, func(callCtx context.Context, i int, id string) {
		job, err := c.profiles.GetJobSnapshot(callCtx, id)
		if err != nil {
			c.log.Warn("skipping job in ranking batch",
				zap.String("jobId", id), zap.Error(err))
			return
		}
		score := c.engine.Score(cand, job, model.CandidateBrowsing)
		results[i] = &RankedJob{Job: job, Score: score}
	})

	ranked := make([]RankedJob, 0, len(results))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, *r)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score.Value != ranked[j].Score.Value {
			return ranked[i].Score.Value > ranked[j].Score.Value
		}
		return ranked[i].Job.ID < ranked[j].Job.ID
	})

	return ranked, nil
}

// RankCandidatesForJob scores the verified candidate pool for one job.
// Ordering layers tie-break keys on top of the numeric score: boosted and
// active candidates first, then premium candidates, then score descending,
// then candidate ID ascending so ties are reproducible.
func (c *Coordinator) RankCandidatesForJob(ctx context.Context, jobID string, poolSize int) ([]RankedCandidate, error) {
	job, err := c.profiles.GetJobSnapshot(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch job snapshot: %w", err)
	}

	ids, err := c.pool.VerifiedCandidateIDs(ctx, poolSize)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate pool: %w", err)
	}

	results := make([]*RankedCandidate, len(ids))
	c.forEach(ctx, ids, func(callCtx context.Context, i int, id string) {
		cand, err := c.profiles.GetCandidateSnapshot(callCtx, id)
		if err != nil {
			c.log.Warn("skipping candidate in ranking batch",
				zap.String("candidateId", id), zap.Error(err))
			return
		}
		score := c.engine.Score(cand, job, model.RecruiterBrowsing)
		results[i] = &RankedCandidate{Candidate: cand, Score: score}
	})

	ranked := make([]RankedCandidate, 0, len(results))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, *r)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		aBoost := a.Candidate.Boosted && a.Candidate.Active
		bBoost := b.Candidate.Boosted && b.Candidate.Active
		if aBoost != bBoost {
			return aBoost
		}
		if a.Candidate.Premium != b.Candidate.Premium {
			return a.Candidate.Premium
		}
		if a.Score.Value != b.Score.Value {
			return a.Score.Value > b.Score.Value
		}
		return a.Candidate.ID < b.Candidate.ID
	})

	return ranked, nil
}

// forEach runs fn over ids with bounded concurrency, a per-call timeout and
// an overall batch deadline. fn signals a skipped member by leaving its
// result slot empty; errors never abort the batch.
func (c *Coordinator) forEach(ctx context.Context, ids []string, fn func(ctx context.Context, i int, id string)) {
	batchCtx, cancel := context.WithTimeout(ctx, c.cfg.BatchTimeout)
	defer cancel()

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Workers)

	for i, id := range ids {
		if batchCtx.Err() != nil {
			c.log.Warn("ranking batch deadline reached, returning partial results",
				zap.Int("remaining", len(ids)-i))
			break
		}
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(batchCtx, c.cfg.PerCallTimeout)
			defer cancel()
			fn(callCtx, i, id)
			return nil
		})
	}

	_ = g.Wait()
}
