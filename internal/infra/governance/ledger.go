package governance

import (
	"context"
	"fmt"
	"iter"

	"github.com/tutu-network/multisig/internal/domain"
)

// Ledger owns proposal records and per-proposal, per-voter ballots on top of
// a ProposalStore. Every check re-reads stored state; nothing is cached.
type Ledger struct {
	store    domain.ProposalStore
	registry *Registry
	expiry   *ExpirationPolicy
}

// NewLedger binds a store to the registry and expiration policy.
func NewLedger(store domain.ProposalStore, registry *Registry, expiry *ExpirationPolicy) *Ledger {
	return &Ledger{store: store, registry: registry, expiry: expiry}
}

// NewProposal is the caller-supplied part of a proposal.
type NewProposal struct {
	Title       string
	Description string
	Actions     []domain.Action
	Proposer    string
	Expires     domain.Expiration
	Threshold   domain.Threshold
}

// Create allocates the next id and stores the proposal Open with a zero tally.
func (l *Ledger) Create(ctx context.Context, np NewProposal, submittedAt domain.BlockInfo) (uint64, error) {
	if _, ok := l.registry.Weight(np.Proposer); !ok {
		return 0, fmt.Errorf("%w: %s is not a voter", domain.ErrUnauthorized, np.Proposer)
	}

	id, err := l.store.NextProposalID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate proposal id: %w", err)
	}

	p := domain.Proposal{
		ID:          id,
		Title:       np.Title,
		Description: np.Description,
		Actions:     np.Actions,
		Proposer:    np.Proposer,
		SubmittedAt: submittedAt,
		Expires:     np.Expires,
		Threshold:   np.Threshold,
		TotalWeight: l.registry.TotalWeight(),
		Status:      domain.StatusOpen,
	}
	if err := l.store.InsertProposal(ctx, p); err != nil {
		return 0, fmt.Errorf("insert proposal %d: %w", id, err)
	}
	return id, nil
}

// RecordBallot upserts voter's ballot and returns the proposal with its new tally.
// A re-vote replaces the previous ballot's contribution, never adds to it.
func (l *Ledger) RecordBallot(ctx context.Context, proposalID uint64, voter string, opt domain.VoteOption, now domain.BlockInfo) (*domain.Proposal, error) {
	p, err := l.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	weight, ok := l.registry.Weight(voter)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a voter", domain.ErrUnauthorized, voter)
	}
	if l.expiry.IsExpired(p.Expires, now) {
		return nil, fmt.Errorf("proposal %d: %w", proposalID, domain.ErrExpired)
	}
	if p.Status != domain.StatusOpen {
		return nil, fmt.Errorf("proposal %d is %s: %w", proposalID, p.Status, domain.ErrAlreadyResolved)
	}

	prev, err := l.store.UpsertBallot(ctx, domain.Ballot{
		ProposalID: proposalID,
		Voter:      voter,
		Option:     opt,
		Weight:     weight,
		CastAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("record ballot: %w", err)
	}
	if prev != nil {
		p.Tally.Sub(prev.Option, prev.Weight)
	}
	p.Tally.Add(opt, weight)

	if err := l.store.UpdateProposal(ctx, *p); err != nil {
		return nil, fmt.Errorf("update tally: %w", err)
	}
	return p, nil
}

// Get returns a stored proposal.
func (l *Ledger) Get(ctx context.Context, id uint64) (*domain.Proposal, error) {
	return l.store.GetProposal(ctx, id)
}

// List lazily yields stored proposals in id order.
func (l *Ledger) List(ctx context.Context, filter domain.ProposalFilter) iter.Seq2[domain.Proposal, error] {
	return l.store.Proposals(ctx, filter)
}
