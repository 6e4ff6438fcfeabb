package governance

import (
	"fmt"
	"math/bits"

	"github.com/tutu-network/multisig/internal/domain"
)

// Outcome is the verdict of a threshold evaluation.
type Outcome int

const (
	Pending  Outcome = iota // More ballots could still change the result
	Passed                  // Threshold satisfied
	Rejected                // Threshold can no longer be satisfied
)

// String returns a human-readable outcome.
func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Passed:
		return "passed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Policy evaluates a weighted tally under one configured threshold rule.
// It is a pure function of the tally and its own immutable parameters.
type Policy struct {
	threshold domain.Threshold
	veto      domain.Percent // 0 = no veto threshold; veto folds into no
	total     uint64
}

// NewPolicy validates the threshold against the registry total weight.
func NewPolicy(t domain.Threshold, veto domain.Percent, totalWeight uint64) (*Policy, error) {
	if totalWeight == 0 {
		return nil, fmt.Errorf("%w: total weight is zero", domain.ErrInvalidConfiguration)
	}
	switch t.Kind {
	case domain.AbsoluteCount:
		if t.Weight == 0 {
			return nil, fmt.Errorf("%w: absolute count weight must be positive", domain.ErrInvalidConfiguration)
		}
		if t.Weight > totalWeight {
			return nil, fmt.Errorf("%w: absolute count %d exceeds total weight %d",
				domain.ErrInvalidConfiguration, t.Weight, totalWeight)
		}
	case domain.AbsolutePercentage:
		if err := validPercent("percentage", t.Percentage); err != nil {
			return nil, err
		}
	case domain.ThresholdQuorum:
		if err := validPercent("threshold", t.Percentage); err != nil {
			return nil, err
		}
		if err := validPercent("quorum", t.Quorum); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown threshold kind %d", domain.ErrInvalidConfiguration, t.Kind)
	}
	if veto > domain.PercentScale {
		return nil, fmt.Errorf("%w: veto threshold %s exceeds 100%%", domain.ErrInvalidConfiguration, veto)
	}
	return &Policy{threshold: t, veto: veto, total: totalWeight}, nil
}

func validPercent(name string, p domain.Percent) error {
	if p == 0 || p > domain.PercentScale {
		return fmt.Errorf("%w: %s %s must be in (0, 1]", domain.ErrInvalidConfiguration, name, p)
	}
	return nil
}

// Threshold returns the configured rule.
func (p *Policy) Threshold() domain.Threshold { return p.threshold }

// VetoThreshold returns the configured veto threshold (0 when unset).
func (p *Policy) VetoThreshold() domain.Percent { return p.veto }

// TotalWeight returns the denominator used by every comparison.
func (p *Policy) TotalWeight() uint64 { return p.total }

// Evaluate returns Passed or Rejected once the outcome is decided,
// Pending while outstanding weight could still change it.
func (p *Policy) Evaluate(t domain.Tally) Outcome {
	t = p.effective(t)
	if p.vetoed(t) {
		return Rejected
	}

	participating := t.Participating()
	var remaining uint64
	if participating < p.total {
		remaining = p.total - participating
	}
	bestYes := t.Yes + remaining

	switch p.threshold.Kind {
	case domain.AbsoluteCount:
		if t.Yes >= p.threshold.Weight {
			return Passed
		}
		if bestYes < p.threshold.Weight {
			return Rejected
		}
	case domain.AbsolutePercentage:
		if atLeast(t.Yes, p.threshold.Percentage, p.total) {
			return Passed
		}
		if !atLeast(bestYes, p.threshold.Percentage, p.total) {
			return Rejected
		}
	case domain.ThresholdQuorum:
		// Below quorum the outcome stays pending until expiry.
		if participating == 0 || !atLeast(participating, p.threshold.Quorum, p.total) {
			return Pending
		}
		if atLeast(t.Yes, p.threshold.Percentage, participating) {
			return Passed
		}
		// Every outstanding voter voting yes maximizes yes/participating.
		if !atLeast(bestYes, p.threshold.Percentage, p.total) {
			return Rejected
		}
	}
	return Pending
}

// EvaluateFinal is used at expiry: no more ballots can arrive, so Pending becomes Rejected.
func (p *Policy) EvaluateFinal(t domain.Tally) Outcome {
	if o := p.Evaluate(t); o != Pending {
		return o
	}
	return Rejected
}

// effective folds veto weight into no when no veto threshold is configured.
func (p *Policy) effective(t domain.Tally) domain.Tally {
	if p.veto == 0 {
		t.No += t.Veto
		t.Veto = 0
	}
	return t
}

func (p *Policy) vetoed(t domain.Tally) bool {
	return p.veto > 0 && t.Veto > 0 && atLeast(t.Veto, p.veto, p.total)
}

// atLeast reports weight/base ≥ pct/PercentScale, i.e.
// weight·PercentScale ≥ pct·base, in 128-bit integer arithmetic.
func atLeast(weight uint64, pct domain.Percent, base uint64) bool {
	lhsHi, lhsLo := bits.Mul64(weight, domain.PercentScale)
	rhsHi, rhsLo := bits.Mul64(uint64(pct), base)
	if lhsHi != rhsHi {
		return lhsHi > rhsHi
	}
	return lhsLo >= rhsLo
}
