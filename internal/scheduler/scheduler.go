// Package scheduler wires up the cron job that periodically deactivates
// jobs whose expiry deadline has passed, so expired postings drop out of
// ranking pools and reject new applications.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs one expiry pass and reports how many jobs it deactivated.
type Sweeper interface {
	ExpireJobs(ctx context.Context) (int64, error)
}

// Scheduler wraps robfig/cron and manages the expiry sweep loop.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string // cron spec, e.g. "@every 1h"
	log     *zap.Logger
}

// New creates a Scheduler that sweeps every interval.
func New(sweeper Sweeper, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		spec:    fmt.Sprintf("@every %s", interval),
		log:     log,
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so a restart never leaves stale jobs active until the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("expiry scheduler started", zap.String("spec", s.spec))

	// Run immediately on startup (non-blocking)
	go s.runSweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("expiry scheduler stopped")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	expired, err := s.sweeper.ExpireJobs(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.log.Info("expiry sweep complete", zap.Int64("deactivated", expired))
	}
}
