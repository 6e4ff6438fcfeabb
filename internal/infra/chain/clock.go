// Package chain supplies block info ("now") to the governance engine.
//
// A standalone daemon has no host chain, so BlockClock derives a height
// from wall time: one block every blockTime since genesis, and each block's
// time is the instant it started. Height and time therefore never decrease.
package chain

import (
	"fmt"
	"sync"
	"time"

	"github.com/tutu-network/multisig/internal/domain"
)

// BlockClock derives block info from wall time.
type BlockClock struct {
	genesis   time.Time
	blockTime time.Duration

	// now returns the current time. Injectable for testing.
	now func() time.Time
}

// NewBlockClock creates a clock whose block 1 starts at genesis.
func NewBlockClock(genesis time.Time, blockTime time.Duration) (*BlockClock, error) {
	if blockTime <= 0 {
		return nil, fmt.Errorf("block time must be positive, got %s", blockTime)
	}
	if genesis.IsZero() {
		return nil, fmt.Errorf("genesis time is required")
	}
	return &BlockClock{genesis: genesis.UTC(), blockTime: blockTime, now: time.Now}, nil
}

// Now returns the current block.
func (c *BlockClock) Now() domain.BlockInfo {
	return c.At(c.now())
}

// At returns the block in progress at t. Times before genesis map to block 1.
func (c *BlockClock) At(t time.Time) domain.BlockInfo {
	elapsed := t.Sub(c.genesis)
	if elapsed < 0 {
		elapsed = 0
	}
	n := elapsed / c.blockTime
	return domain.BlockInfo{
		Height: uint64(n) + 1,
		Time:   c.genesis.Add(n * c.blockTime),
	}
}

// BlockTime returns the configured block interval.
func (c *BlockClock) BlockTime() time.Duration { return c.blockTime }

// ─── Manual Clock ───────────────────────────────────────────────────────────

// ManualClock is advanced explicitly. Used by tests and replay tooling.
type ManualClock struct {
	mu    sync.Mutex
	block domain.BlockInfo
}

// NewManualClock starts at the given block.
func NewManualClock(start domain.BlockInfo) *ManualClock {
	return &ManualClock{block: start}
}

// Now returns the current block.
func (c *ManualClock) Now() domain.BlockInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

// Advance moves forward by blocks heights and d of wall time.
func (c *ManualClock) Advance(blocks uint64, d time.Duration) domain.BlockInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block.Height += blocks
	if d > 0 {
		c.block.Time = c.block.Time.Add(d)
	}
	return c.block
}
