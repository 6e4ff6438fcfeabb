// Package scheduler runs periodic maintenance jobs against the multisig.
//
// The expiry sweeper closes Open proposals whose voting window has ended
// without passing, so stored state catches up with the lazily computed
// status that queries already report.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tutu-network/multisig/internal/infra/metrics"
)

// ExpiredCloser closes every expired Open proposal on behalf of caller.
// Implemented by governance.Engine.
type ExpiredCloser interface {
	SweepExpired(ctx context.Context, caller string) ([]uint64, error)
}

// Sweeper runs an ExpiredCloser on a cron schedule.
type Sweeper struct {
	target   ExpiredCloser
	caller   string
	schedule string
	cron     *cron.Cron
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper that closes proposals as caller.
// Schedules use standard cron syntax or descriptors such as "@every 1m".
func NewSweeper(target ExpiredCloser, caller, schedule string, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		target:   target,
		caller:   caller,
		schedule: schedule,
		cron:     cron.New(),
		log:      log.With().Str("component", "sweeper").Logger(),
	}
}

// Start schedules the sweep and stops it when ctx is done.
// An empty schedule disables the sweeper.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.log.Info().Msg("sweep schedule not configured, skipping sweeper")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.log.Info().Str("schedule", s.schedule).Msg("sweeper started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce performs one sweep and returns the closed proposal ids.
func (s *Sweeper) RunOnce(ctx context.Context) []uint64 {
	closed, err := s.target.SweepExpired(ctx, s.caller)
	metrics.SweeperClosed.Add(float64(len(closed)))
	if err != nil {
		s.log.Error().Err(err).Int("closed", len(closed)).Msg("sweep failed")
		return closed
	}
	if len(closed) > 0 {
		s.log.Info().Uints64("proposal_ids", closed).Msg("expired proposals closed")
	} else {
		s.log.Debug().Msg("sweep completed, nothing to close")
	}
	return closed
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.log.Info().Msg("sweeper stopped")
	}
}

// IsRunning reports whether the schedule is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when not scheduled.
func (s *Sweeper) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
