package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.
// Callers classify with errors.Is; call sites wrap with fmt.Errorf("%w").

var (
	// Governance errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrAlreadyResolved  = errors.New("proposal voting is already resolved")
	ErrExpired          = errors.New("proposal voting period has expired")
	ErrNotExpired       = errors.New("proposal voting period has not expired yet")
	ErrWrongStatus      = errors.New("proposal is in the wrong status for this operation")
	ErrEmptyProposal    = errors.New("proposal must contain at least one action")
	ErrWrongExpiration  = errors.New("proposal expiration must be of the configured kind and not later than the default")

	// Construction errors
	ErrInvalidConfiguration = errors.New("invalid multisig configuration")

	// Dispatch errors
	ErrDispatchFailed  = errors.New("action dispatch failed")
	ErrUnknownContract = errors.New("no contract registered at address")
	ErrInvalidAction   = errors.New("invalid action message")

	// Contract errors
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrOverflow          = errors.New("arithmetic overflow")

	// Query errors
	ErrVoterNotFound     = errors.New("voter not found")
	ErrBallotNotFound    = errors.New("ballot not found")
	ErrExecutionNotFound = errors.New("execution record not found")
)
