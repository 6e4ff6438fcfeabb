package governance

import (
	"fmt"

	"github.com/tutu-network/multisig/internal/domain"
)

// ExpirationPolicy computes proposal deadlines from the configured voting period.
// The duration kind (height or time) is fixed at construction; an execution
// window, when configured, must use the same kind.
type ExpirationPolicy struct {
	maxVoting domain.Duration
	window    *domain.Duration
}

// NewExpirationPolicy validates the voting period and optional execution window.
func NewExpirationPolicy(maxVoting domain.Duration, executionWindow *domain.Duration) (*ExpirationPolicy, error) {
	if maxVoting.IsZero() {
		return nil, fmt.Errorf("%w: max voting period must be positive", domain.ErrInvalidConfiguration)
	}
	if executionWindow != nil {
		if executionWindow.Kind != maxVoting.Kind {
			return nil, fmt.Errorf("%w: execution window %s and voting period %s use different units",
				domain.ErrInvalidConfiguration, executionWindow, maxVoting)
		}
		if executionWindow.IsZero() {
			return nil, fmt.Errorf("%w: execution window must be positive", domain.ErrInvalidConfiguration)
		}
		w := *executionWindow
		executionWindow = &w
	}
	return &ExpirationPolicy{maxVoting: maxVoting, window: executionWindow}, nil
}

// MaxVotingPeriod returns the configured voting period.
func (p *ExpirationPolicy) MaxVotingPeriod() domain.Duration { return p.maxVoting }

// ExecutionWindow returns the configured execution window, or nil.
func (p *ExpirationPolicy) ExecutionWindow() *domain.Duration { return p.window }

// Deadline returns the expiry for a proposal created at createdAt.
// A custom latest must be of the same kind and no later than the default.
func (p *ExpirationPolicy) Deadline(createdAt domain.BlockInfo, latest *domain.Expiration) (domain.Expiration, error) {
	limit := p.maxVoting.After(createdAt)
	if latest == nil {
		return limit, nil
	}
	if latest.Kind != limit.Kind {
		return domain.Expiration{}, fmt.Errorf("%w: got %s, want a deadline by %s", domain.ErrWrongExpiration, latest, limit)
	}
	c, err := latest.Compare(limit)
	if err != nil {
		return domain.Expiration{}, err
	}
	if c > 0 {
		return domain.Expiration{}, fmt.Errorf("%w: %s is later than %s", domain.ErrWrongExpiration, latest, limit)
	}
	return *latest, nil
}

// IsExpired reports whether now is at or past the deadline.
func (p *ExpirationPolicy) IsExpired(deadline domain.Expiration, now domain.BlockInfo) bool {
	return deadline.IsExpired(now)
}

// ExecutionLapsed reports whether the execution window after the voting
// deadline has closed. Without a configured window it never lapses.
func (p *ExpirationPolicy) ExecutionLapsed(deadline domain.Expiration, now domain.BlockInfo) bool {
	if p.window == nil {
		return false
	}
	end, err := deadline.Plus(*p.window)
	if err != nil {
		return false
	}
	return end.IsExpired(now)
}
