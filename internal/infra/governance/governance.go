// Package governance implements a fixed-membership, weighted multisig.
//
// A fixed set of voters, each with a static weight, jointly authorizes
// batches of downstream actions. A proposal bundles actions; voters cast
// weighted ballots; once the configured threshold is met within the voting
// window any caller may execute it, which dispatches the batch exactly once,
// atomically, as the multisig's own identity.
//
// Lifecycle: Open → {Passed, Rejected}; Passed → Executed.
// Rejected and Executed are terminal. Close turns an expired, never-passed
// Open proposal into Rejected.
package governance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/metrics"
)

// ─── Constants ──────────────────────────────────────────────────────────────

const (
	// DefaultPageLimit is used when a listing does not ask for a size.
	DefaultPageLimit = 10

	// MaxPageLimit caps any listing.
	MaxPageLimit = 30

	// DefaultIdentity is the multisig address when none is configured.
	DefaultIdentity = "multisig"

	// fingerprintKey pins the voter registry and threshold to the store.
	fingerprintKey = "multisig.fingerprint"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config is the immutable multisig configuration.
type Config struct {
	Voters          []domain.Voter
	Threshold       domain.Threshold
	VetoThreshold   domain.Percent   // 0 = veto ballots count as no
	MaxVotingPeriod domain.Duration  // Default and upper bound of a proposal's voting window
	ExecutionWindow *domain.Duration // Optional; Execute fails with ErrExpired after expires+window

	// ImplicitProposerVote records a Yes ballot for the proposer at Propose.
	ImplicitProposerVote bool
}

// ThresholdInfo is the read-only view of the voting rules.
type ThresholdInfo struct {
	Threshold            domain.Threshold `json:"threshold"`
	TotalWeight          uint64           `json:"total_weight"`
	VetoThreshold        *domain.Percent  `json:"veto_threshold,omitempty"`
	MaxVotingPeriod      domain.Duration  `json:"max_voting_period"`
	ExecutionWindow      *domain.Duration `json:"execution_window,omitempty"`
	ImplicitProposerVote bool             `json:"implicit_proposer_vote"`
}

// ProposeRequest is the caller-supplied content of a new proposal.
type ProposeRequest struct {
	Title       string
	Description string
	Actions     []domain.Action
	Latest      *domain.Expiration // Optional, no later than the default deadline
}

// ExecuteResult is returned by a successful Execute.
type ExecuteResult struct {
	Proposal  domain.Proposal  `json:"proposal"`
	Execution domain.Execution `json:"execution"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l.With().Str("component", "governance").Logger() }
}

// WithIdentity sets the address actions are dispatched as, and the key that
// signs execution receipts. signer may be nil.
func WithIdentity(addr string, signer domain.Signer) Option {
	return func(e *Engine) {
		if addr != "" {
			e.identity = addr
		}
		e.signer = signer
	}
}

// ─── Engine ─────────────────────────────────────────────────────────────────

// Engine orchestrates Propose / Vote / Execute / Close.
// Mutating calls are serialized by mu and each one re-reads stored state
// inside a single store transaction.
type Engine struct {
	mu sync.Mutex

	registry *Registry
	policy   *Policy
	expiry   *ExpirationPolicy
	ledger   *Ledger

	store      domain.ProposalStore
	dispatcher domain.Dispatcher
	clock      domain.Clock

	identity     string
	signer       domain.Signer
	implicitVote bool
	log          zerolog.Logger

	// newID returns execution ids. Injectable for testing.
	newID func() string
}

// NewEngine validates cfg and wires the collaborators.
// Any invariant violation prevents construction. The first engine opened on
// a store pins its voters and threshold there; a later engine with different
// ones fails with ErrInvalidConfiguration.
func NewEngine(cfg Config, store domain.ProposalStore, dispatcher domain.Dispatcher, clock domain.Clock, opts ...Option) (*Engine, error) {
	if store == nil || dispatcher == nil || clock == nil {
		return nil, fmt.Errorf("%w: store, dispatcher and clock are required", domain.ErrInvalidConfiguration)
	}

	registry, err := NewRegistry(cfg.Voters)
	if err != nil {
		return nil, err
	}
	policy, err := NewPolicy(cfg.Threshold, cfg.VetoThreshold, registry.TotalWeight())
	if err != nil {
		return nil, err
	}
	expiry, err := NewExpirationPolicy(cfg.MaxVotingPeriod, cfg.ExecutionWindow)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		registry:     registry,
		policy:       policy,
		expiry:       expiry,
		ledger:       NewLedger(store, registry, expiry),
		store:        store,
		dispatcher:   dispatcher,
		clock:        clock,
		identity:     DefaultIdentity,
		implicitVote: cfg.ImplicitProposerVote,
		log:          zerolog.Nop(),
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	want := e.fingerprint()
	got, err := store.Pin(context.Background(), fingerprintKey, want)
	if err != nil {
		return nil, fmt.Errorf("pin configuration: %w", err)
	}
	if got != want {
		return nil, fmt.Errorf("%w: voters or threshold differ from the ones this store was created with",
			domain.ErrInvalidConfiguration)
	}
	return e, nil
}

// fingerprint hashes the voter registry and the voting rules.
func (e *Engine) fingerprint() string {
	b, _ := json.Marshal(struct {
		Voters    []domain.Voter   `json:"voters"`
		Threshold domain.Threshold `json:"threshold"`
		Veto      domain.Percent   `json:"veto"`
	}{e.registry.Voters("", e.registry.Len()), e.policy.Threshold(), e.policy.VetoThreshold()})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Identity returns the address dispatched actions run as.
func (e *Engine) Identity() string { return e.identity }

// Now returns the current block from the clock.
func (e *Engine) Now() domain.BlockInfo { return e.clock.Now() }

// ─── Proposal Lifecycle ─────────────────────────────────────────────────────

// Propose creates a proposal, records the proposer's founding Yes ballot
// (when configured) and evaluates the threshold immediately, so a proposer
// whose weight alone meets it gets a Passed proposal back.
func (e *Engine) Propose(ctx context.Context, caller string, req ProposeRequest) (*domain.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.registry.Weight(caller); !ok {
		return nil, fmt.Errorf("propose: %w: %s is not a voter", domain.ErrUnauthorized, caller)
	}
	if len(req.Actions) == 0 {
		return nil, fmt.Errorf("propose: %w", domain.ErrEmptyProposal)
	}

	now := e.clock.Now()
	expires, err := e.expiry.Deadline(now, req.Latest)
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}
	if expires.IsExpired(now) {
		return nil, fmt.Errorf("propose: %w: %s is already past", domain.ErrWrongExpiration, expires)
	}

	var (
		p     *domain.Proposal
		moved bool
	)
	err = e.store.InTx(ctx, func(ctx context.Context) error {
		id, err := e.ledger.Create(ctx, NewProposal{
			Title:       req.Title,
			Description: req.Description,
			Actions:     req.Actions,
			Proposer:    caller,
			Expires:     expires,
			Threshold:   e.policy.Threshold(),
		}, now)
		if err != nil {
			return err
		}

		if e.implicitVote {
			p, err = e.ledger.RecordBallot(ctx, id, caller, domain.VoteYes, now)
		} else {
			p, err = e.ledger.Get(ctx, id)
		}
		if err != nil {
			return err
		}
		moved, err = e.applyOutcome(ctx, p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	metrics.ProposalsCreated.Inc()
	if moved {
		metrics.StatusTransitions.WithLabelValues(p.Status.String()).Inc()
	}
	if e.implicitVote {
		metrics.BallotsCast.WithLabelValues(domain.VoteYes.String()).Inc()
	}
	e.log.Info().
		Uint64("proposal_id", p.ID).
		Str("proposer", caller).
		Int("actions", len(p.Actions)).
		Str("expires", p.Expires.String()).
		Str("status", p.Status.String()).
		Msg("proposal created")
	return p, nil
}

// Vote records caller's ballot and re-evaluates the threshold.
// Voting again before resolution replaces the earlier ballot.
func (e *Engine) Vote(ctx context.Context, caller string, id uint64, opt domain.VoteOption) (*domain.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var (
		p     *domain.Proposal
		moved bool
	)
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = e.ledger.RecordBallot(ctx, id, caller, opt, now)
		if err != nil {
			return err
		}
		moved, err = e.applyOutcome(ctx, p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}

	metrics.BallotsCast.WithLabelValues(opt.String()).Inc()
	if moved {
		metrics.StatusTransitions.WithLabelValues(p.Status.String()).Inc()
	}
	e.log.Info().
		Uint64("proposal_id", id).
		Str("voter", caller).
		Str("option", opt.String()).
		Str("status", p.Status.String()).
		Msg("ballot recorded")
	return p, nil
}

// Execute dispatches a Passed proposal's actions as one atomic batch and
// marks it Executed. The status change, the dispatch and the execution
// record commit together; if dispatch fails nothing is applied and the
// proposal stays Passed, so Execute may be retried.
func (e *Engine) Execute(ctx context.Context, caller string, id uint64) (*ExecuteResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var res ExecuteResult
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		p, err := e.store.GetProposal(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != domain.StatusPassed {
			return fmt.Errorf("proposal %d is %s: %w", id, e.currentStatus(*p, now), domain.ErrWrongStatus)
		}
		if e.expiry.ExecutionLapsed(p.Expires, now) {
			return fmt.Errorf("proposal %d execution window closed: %w", id, domain.ErrExpired)
		}

		p.Status = domain.StatusExecuted
		if err := e.store.UpdateProposal(ctx, *p); err != nil {
			return fmt.Errorf("mark executed: %w", err)
		}

		start := time.Now()
		responses, err := e.dispatcher.Dispatch(ctx, domain.DispatchRequest{
			ProposalID: id,
			Sender:     e.identity,
			Block:      now,
			Actions:    p.Actions,
		})
		metrics.DispatchLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("proposal %d: %w: %w", id, domain.ErrDispatchFailed, err)
		}

		exec := domain.Execution{
			ID:         e.newID(),
			ProposalID: id,
			Executor:   caller,
			Sender:     e.identity,
			Block:      now,
			Responses:  responses,
		}
		if e.signer != nil {
			exec.Signature = hex.EncodeToString(e.signer.Sign(ReceiptMessage(exec)))
		}
		if err := e.store.InsertExecution(ctx, exec); err != nil {
			return fmt.Errorf("record execution: %w", err)
		}

		res = ExecuteResult{Proposal: *p, Execution: exec}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDispatchFailed) {
			metrics.DispatchFailures.Inc()
			e.log.Warn().Err(err).Uint64("proposal_id", id).Str("caller", caller).Msg("dispatch failed, proposal stays passed")
		}
		return nil, fmt.Errorf("execute: %w", err)
	}

	metrics.ProposalsExecuted.Inc()
	metrics.StatusTransitions.WithLabelValues(domain.StatusExecuted.String()).Inc()
	e.log.Info().
		Uint64("proposal_id", id).
		Str("executor", caller).
		Str("execution_id", res.Execution.ID).
		Int("actions", len(res.Proposal.Actions)).
		Msg("proposal executed")
	return &res, nil
}

// Close finalizes an expired, never-passed Open proposal as Rejected.
// No further ballots or execution are possible afterwards.
func (e *Engine) Close(ctx context.Context, caller string, id uint64) (*domain.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var p *domain.Proposal
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = e.store.GetProposal(ctx, id)
		if err != nil {
			return err
		}
		switch p.Status {
		case domain.StatusRejected, domain.StatusExecuted:
			return fmt.Errorf("proposal %d is %s: %w", id, p.Status, domain.ErrAlreadyResolved)
		case domain.StatusPassed:
			return fmt.Errorf("proposal %d is %s: %w", id, p.Status, domain.ErrWrongStatus)
		}
		if !e.expiry.IsExpired(p.Expires, now) {
			return fmt.Errorf("proposal %d expires at %s: %w", id, p.Expires, domain.ErrNotExpired)
		}
		policy, err := e.policyFor(*p)
		if err != nil {
			return err
		}
		if policy.EvaluateFinal(p.Tally) == Passed {
			return fmt.Errorf("proposal %d has passed: %w", id, domain.ErrWrongStatus)
		}

		p.Status = domain.StatusRejected
		p.ClosedAt = &now
		return e.store.UpdateProposal(ctx, *p)
	})
	if err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}

	metrics.StatusTransitions.WithLabelValues(domain.StatusRejected.String()).Inc()
	e.log.Info().Uint64("proposal_id", id).Str("caller", caller).Msg("proposal closed")
	return p, nil
}

// SweepExpired closes every expired Open proposal on behalf of caller and
// returns the ids it closed.
func (e *Engine) SweepExpired(ctx context.Context, caller string) ([]uint64, error) {
	now := e.clock.Now()
	open := domain.StatusOpen

	var due []uint64
	for p, err := range e.ledger.List(ctx, domain.ProposalFilter{Status: &open}) {
		if err != nil {
			return nil, fmt.Errorf("sweep: %w", err)
		}
		if e.expiry.IsExpired(p.Expires, now) {
			due = append(due, p.ID)
		}
	}

	closed := make([]uint64, 0, len(due))
	for _, id := range due {
		if _, err := e.Close(ctx, caller, id); err != nil {
			if errors.Is(err, domain.ErrAlreadyResolved) || errors.Is(err, domain.ErrWrongStatus) {
				continue
			}
			return closed, err
		}
		closed = append(closed, id)
	}
	return closed, nil
}

// applyOutcome persists an Open → Passed/Rejected transition when the tally
// decides it, and reports whether one happened.
func (e *Engine) applyOutcome(ctx context.Context, p *domain.Proposal) (bool, error) {
	policy, err := e.policyFor(*p)
	if err != nil {
		return false, err
	}
	switch policy.Evaluate(p.Tally) {
	case Passed:
		p.Status = domain.StatusPassed
	case Rejected:
		p.Status = domain.StatusRejected
	default:
		return false, nil
	}
	if err := e.store.UpdateProposal(ctx, *p); err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return true, nil
}

// policyFor returns the policy a proposal is decided under: the threshold
// and total weight recorded when it was created.
func (e *Engine) policyFor(p domain.Proposal) (*Policy, error) {
	if p.Threshold == e.policy.Threshold() && p.TotalWeight == e.policy.TotalWeight() {
		return e.policy, nil
	}
	policy, err := NewPolicy(p.Threshold, e.policy.VetoThreshold(), p.TotalWeight)
	if err != nil {
		return nil, fmt.Errorf("proposal %d threshold: %w", p.ID, err)
	}
	return policy, nil
}

// ReceiptMessage is the canonical byte string signed for an execution.
func ReceiptMessage(exec domain.Execution) []byte {
	msg, _ := json.Marshal(struct {
		ID         string                    `json:"id"`
		ProposalID uint64                    `json:"proposal_id"`
		Sender     string                    `json:"sender"`
		Height     uint64                    `json:"height"`
		Responses  []domain.DispatchResponse `json:"responses"`
	}{exec.ID, exec.ProposalID, exec.Sender, exec.Block.Height, exec.Responses})
	return msg
}
