// Package health runs periodic health checks for the multisig daemon.
// Each check may carry a recovery action that runs when it fails.
package health

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tutu-network/multisig/internal/infra/metrics"
)

// DefaultInterval is how often checks run when none is configured.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      zerolog.Logger

	// now returns the current time. Injectable for testing.
	now func() time.Time
}

// NewChecker creates a checker that runs checks every interval.
func NewChecker(interval time.Duration, log zerolog.Logger, checks ...Check) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Checker{
		checks:   checks,
		interval: interval,
		log:      log.With().Str("component", "health").Logger(),
		now:      time.Now,
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunAll(ctx)
		}
	}
}

// RunAll runs every check once and records the results.
func (c *Checker) RunAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{Name: check.Name, CheckedAt: c.now(), Healthy: true}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			c.log.Warn().Err(err).Str("check", check.Name).Msg("health check failed")
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.log.Error().Err(rerr).Str("check", check.Name).Msg("recovery failed")
				}
			}
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(boolGauge(s.Healthy))
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ─── Check Implementations ──────────────────────────────────────────────────

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping() error
}

// StoreCheck verifies the state database answers.
func StoreCheck(db Pinger) Check {
	return Check{
		Name:    "sqlite",
		CheckFn: func(ctx context.Context) error { return db.Ping() },
		// SQLite recovers on its own via the WAL.
	}
}

// DataDirCheck verifies the data directory exists and is a directory,
// recreating it when missing.
func DataDirCheck(dir string) Check {
	return Check{
		Name: "data_dir",
		CheckFn: func(ctx context.Context) error {
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("check data dir: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return nil
		},
		RecoverFn: func(ctx context.Context) error {
			return os.MkdirAll(dir, 0700)
		},
	}
}

// ContractsCheck verifies every required contract is registered for dispatch.
func ContractsCheck(registered func() []string, required ...string) Check {
	return Check{
		Name: "contracts",
		CheckFn: func(ctx context.Context) error {
			have := registered()
			for _, addr := range required {
				if !slices.Contains(have, addr) {
					return fmt.Errorf("contract %q is not registered", addr)
				}
			}
			return nil
		},
	}
}
