// Package dispatch routes a passed proposal's actions to downstream contracts.
//
// A batch runs inside one store transaction. Actions apply in order; the
// first failure aborts the batch and rolls back every earlier action.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/metrics"
)

// Router implements domain.Dispatcher over an address → contract table.
type Router struct {
	mu        sync.RWMutex
	tx        domain.Transactor
	contracts map[string]domain.Contract
	log       zerolog.Logger
}

// NewRouter creates a router whose batches run in tx.
func NewRouter(tx domain.Transactor, log zerolog.Logger) *Router {
	return &Router{
		tx:        tx,
		contracts: make(map[string]domain.Contract),
		log:       log.With().Str("component", "dispatch").Logger(),
	}
}

// Register binds a contract to an address. Re-registering replaces it.
func (r *Router) Register(addr string, c domain.Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[addr] = c
}

// Contracts returns the registered addresses, sorted.
func (r *Router) Contracts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addrs := make([]string, 0, len(r.contracts))
	for addr := range r.contracts {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// Dispatch applies req.Actions as req.Sender, all or nothing.
func (r *Router) Dispatch(ctx context.Context, req domain.DispatchRequest) ([]domain.DispatchResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Resolve every target up front so an unknown address fails before any write.
	targets := make([]domain.Contract, len(req.Actions))
	for i, a := range req.Actions {
		c, ok := r.contracts[a.Contract]
		if !ok {
			return nil, fmt.Errorf("action %d: %w: %q", i, domain.ErrUnknownContract, a.Contract)
		}
		targets[i] = c
	}

	responses := make([]domain.DispatchResponse, 0, len(req.Actions))
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		for i, a := range req.Actions {
			env := domain.ContractEnv{
				Contract:   a.Contract,
				Sender:     req.Sender,
				ProposalID: req.ProposalID,
				Block:      req.Block,
			}
			data, err := targets[i].Execute(ctx, env, a.Msg)
			if err != nil {
				return fmt.Errorf("action %d (%s): %w", i, a.Contract, err)
			}
			responses = append(responses, domain.DispatchResponse{Contract: a.Contract, Data: data})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range req.Actions {
		metrics.ActionsDispatched.WithLabelValues(a.Contract).Inc()
	}
	r.log.Debug().
		Uint64("proposal_id", req.ProposalID).
		Int("actions", len(req.Actions)).
		Msg("batch dispatched")
	return responses, nil
}
