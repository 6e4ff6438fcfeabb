package governance

import (
	"context"
	"fmt"

	"github.com/tutu-network/multisig/internal/domain"
)

// ─── Queries ────────────────────────────────────────────────────────────────
// Read-only and side-effect free. Status is reported as of now: an Open
// proposal past its deadline reads as its final outcome without any write.

// Proposal returns a proposal with its status as of now.
func (e *Engine) Proposal(ctx context.Context, id uint64) (*domain.Proposal, error) {
	p, err := e.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = e.currentStatus(*p, e.clock.Now())
	return p, nil
}

// Proposals lists proposals in id order, filtered on status as of now.
func (e *Engine) Proposals(ctx context.Context, filter domain.ProposalFilter) ([]domain.Proposal, error) {
	limit := clampLimit(filter.Limit)
	want := filter.Status

	// Status is filtered here, not in the store, because it is computed as of now.
	scan := filter
	scan.Status = nil
	scan.Limit = 0

	now := e.clock.Now()
	out := make([]domain.Proposal, 0, limit)
	for p, err := range e.ledger.List(ctx, scan) {
		if err != nil {
			return nil, fmt.Errorf("list proposals: %w", err)
		}
		p.Status = e.currentStatus(p, now)
		if want != nil && p.Status != *want {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Ballot returns one voter's ballot on a proposal.
func (e *Engine) Ballot(ctx context.Context, proposalID uint64, voter string) (*domain.Ballot, error) {
	if _, err := e.ledger.Get(ctx, proposalID); err != nil {
		return nil, err
	}
	return e.store.GetBallot(ctx, proposalID, voter)
}

// Ballots lists a proposal's ballots ascending by voter address.
func (e *Engine) Ballots(ctx context.Context, proposalID uint64, startAfter string, limit int) ([]domain.Ballot, error) {
	if _, err := e.ledger.Get(ctx, proposalID); err != nil {
		return nil, err
	}
	return e.store.ListBallots(ctx, proposalID, startAfter, clampLimit(limit))
}

// Voter returns a registered voter.
func (e *Engine) Voter(addr string) (domain.Voter, error) {
	w, ok := e.registry.Weight(addr)
	if !ok {
		return domain.Voter{}, fmt.Errorf("%s: %w", addr, domain.ErrVoterNotFound)
	}
	return domain.Voter{Addr: addr, Weight: w}, nil
}

// Voters lists voters ascending by address.
func (e *Engine) Voters(startAfter string, limit int) []domain.Voter {
	return e.registry.Voters(startAfter, clampLimit(limit))
}

// ThresholdInfo returns the configured voting rules.
func (e *Engine) ThresholdInfo() ThresholdInfo {
	info := ThresholdInfo{
		Threshold:            e.policy.Threshold(),
		TotalWeight:          e.registry.TotalWeight(),
		MaxVotingPeriod:      e.expiry.MaxVotingPeriod(),
		ExecutionWindow:      e.expiry.ExecutionWindow(),
		ImplicitProposerVote: e.implicitVote,
	}
	if v := e.policy.VetoThreshold(); v > 0 {
		info.VetoThreshold = &v
	}
	return info
}

// Execution returns the execution record of an executed proposal.
func (e *Engine) Execution(ctx context.Context, proposalID uint64) (*domain.Execution, error) {
	if _, err := e.ledger.Get(ctx, proposalID); err != nil {
		return nil, err
	}
	return e.store.GetExecution(ctx, proposalID)
}

// currentStatus lazily applies expiry to an Open proposal.
func (e *Engine) currentStatus(p domain.Proposal, now domain.BlockInfo) domain.Status {
	if p.Status != domain.StatusOpen || !e.expiry.IsExpired(p.Expires, now) {
		return p.Status
	}
	policy, err := e.policyFor(p)
	if err != nil {
		return p.Status
	}
	if policy.EvaluateFinal(p.Tally) == Passed {
		return domain.StatusPassed
	}
	return domain.StatusRejected
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}
