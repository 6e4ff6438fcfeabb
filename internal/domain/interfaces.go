package domain

import (
	"context"
	"iter"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the governance engine depends on them.

// Transactor runs fn inside one all-or-nothing unit of work.
// Nested calls join the outer unit through ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProposalStore persists proposals, ballots and execution records.
// Implemented by infra/sqlite.DB.
type ProposalStore interface {
	Transactor

	// NextProposalID returns the id the next inserted proposal will get (first is 1).
	NextProposalID(ctx context.Context) (uint64, error)
	InsertProposal(ctx context.Context, p Proposal) error

	// GetProposal returns ErrProposalNotFound for unknown ids.
	GetProposal(ctx context.Context, id uint64) (*Proposal, error)

	// UpdateProposal rewrites status, tally and closed_at.
	UpdateProposal(ctx context.Context, p Proposal) error

	// Proposals lazily yields stored proposals in id order. Restartable.
	Proposals(ctx context.Context, filter ProposalFilter) iter.Seq2[Proposal, error]

	// UpsertBallot stores b and returns the ballot it replaced, if any.
	UpsertBallot(ctx context.Context, b Ballot) (*Ballot, error)
	GetBallot(ctx context.Context, proposalID uint64, voter string) (*Ballot, error)
	ListBallots(ctx context.Context, proposalID uint64, startAfter string, limit int) ([]Ballot, error)

	InsertExecution(ctx context.Context, e Execution) error
	GetExecution(ctx context.Context, proposalID uint64) (*Execution, error)

	// Pin stores value under key unless key is already set, and returns
	// the stored value either way.
	Pin(ctx context.Context, key, value string) (string, error)
}

// Dispatcher hands a passed proposal's action batch to the execution substrate.
// Dispatch must be atomic: either every action applies or none does.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) ([]DispatchResponse, error)
}

// Clock supplies the current block.
type Clock interface {
	Now() BlockInfo
}

// Signer signs execution receipts with the multisig identity.
type Signer interface {
	Sign(message []byte) []byte
}
