package domain

import (
	"context"
	"encoding/json"
)

// Action is an opaque envelope: the engine only counts and orders actions,
// the dispatcher routes Msg to the contract registered at Contract.
type Action struct {
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

// DispatchRequest is one atomic batch, run as the multisig's own identity.
type DispatchRequest struct {
	ProposalID uint64
	Sender     string
	Block      BlockInfo
	Actions    []Action
}

// DispatchResponse is contract output, passed through to callers unmodified.
type DispatchResponse struct {
	Contract string          `json:"contract"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ContractEnv is what a contract sees of the dispatching call.
type ContractEnv struct {
	Contract   string
	Sender     string
	ProposalID uint64
	Block      BlockInfo
}

// Contract is a downstream action target.
type Contract interface {
	Execute(ctx context.Context, env ContractEnv, msg json.RawMessage) (json.RawMessage, error)
}
