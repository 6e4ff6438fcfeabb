// Package counter implements a trivial contract for exercising the multisig:
// anyone may increment it, only its owner may reset it.
package counter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/sqlite"
)

// IncrementMsg adds one to the count.
type IncrementMsg struct{}

// ResetMsg sets the count. Owner only.
type ResetMsg struct {
	Count int64 `json:"count"`
}

// ExecuteMsg is the action envelope. Exactly one field must be set.
type ExecuteMsg struct {
	Increment *IncrementMsg `json:"increment,omitempty"`
	Reset     *ResetMsg     `json:"reset,omitempty"`
}

// State is the count query response.
type State struct {
	Owner string `json:"owner"`
	Count int64  `json:"count"`
}

// Contract is a counter deployed at one address.
type Contract struct {
	db   *sqlite.DB
	addr string
}

// New binds the contract at addr to db.
func New(db *sqlite.DB, addr string) *Contract {
	return &Contract{db: db, addr: addr}
}

// Address returns the contract address actions are routed by.
func (c *Contract) Address() string { return c.addr }

// Init creates the counter on first start. Later calls are no-ops.
func (c *Contract) Init(ctx context.Context, owner string, start int64) error {
	return c.db.InitCounter(ctx, c.addr, owner, start)
}

// Execute implements domain.Contract.
func (c *Contract) Execute(ctx context.Context, env domain.ContractEnv, raw json.RawMessage) (json.RawMessage, error) {
	var msg ExecuteMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err)
	}

	st, err := c.State(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case msg.Increment != nil && msg.Reset == nil:
		if st.Count == math.MaxInt64 {
			return nil, fmt.Errorf("increment %s: %w", c.addr, domain.ErrOverflow)
		}
		st.Count++
	case msg.Reset != nil && msg.Increment == nil:
		if env.Sender != st.Owner {
			return nil, fmt.Errorf("%w: %s does not own %s", domain.ErrUnauthorized, env.Sender, c.addr)
		}
		st.Count = msg.Reset.Count
	default:
		return nil, fmt.Errorf("%w: counter message must set exactly one of increment or reset", domain.ErrInvalidAction)
	}

	if err := c.db.SetCounter(ctx, c.addr, st.Count); err != nil {
		return nil, fmt.Errorf("store count: %w", err)
	}
	return json.Marshal(st)
}

// State returns the owner and current count.
func (c *Contract) State(ctx context.Context) (*State, error) {
	owner, count, err := c.db.GetCounter(ctx, c.addr)
	if errors.Is(err, sqlite.ErrNoRecord) {
		return nil, fmt.Errorf("%w: counter %s is not initialized", domain.ErrUnknownContract, c.addr)
	}
	if err != nil {
		return nil, err
	}
	return &State{Owner: owner, Count: count}, nil
}
