package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tutu-network/multisig/internal/domain"
)

func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestNewBlockClock_Validation(t *testing.T) {
	_, err := NewBlockClock(fixedTime(), 0)
	assert.Error(t, err)
	_, err = NewBlockClock(time.Time{}, time.Second)
	assert.Error(t, err)
}

func TestBlockClock_Heights(t *testing.T) {
	c, err := NewBlockClock(fixedTime(), 5*time.Second)
	require.NoError(t, err)

	tests := []struct {
		offset time.Duration
		height uint64
		start  time.Duration
	}{
		{-time.Hour, 1, 0},
		{0, 1, 0},
		{4 * time.Second, 1, 0},
		{5 * time.Second, 2, 5 * time.Second},
		{61 * time.Second, 13, 60 * time.Second},
	}
	for _, tt := range tests {
		b := c.At(fixedTime().Add(tt.offset))
		assert.Equal(t, tt.height, b.Height, "offset %s", tt.offset)
		assert.Equal(t, fixedTime().Add(tt.start), b.Time, "offset %s", tt.offset)
	}
}

func TestBlockClock_NowUsesInjectedTime(t *testing.T) {
	c, err := NewBlockClock(fixedTime(), time.Second)
	require.NoError(t, err)
	c.now = func() time.Time { return fixedTime().Add(10 * time.Second) }

	assert.Equal(t, uint64(11), c.Now().Height)
}

func TestBlockClock_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		blockTime := time.Duration(rapid.Int64Range(1, int64(time.Minute)).Draw(t, "blockTime"))
		a := time.Duration(rapid.Int64Range(-int64(time.Hour), int64(24*time.Hour)).Draw(t, "a"))
		b := time.Duration(rapid.Int64Range(0, int64(24*time.Hour)).Draw(t, "delta"))

		c, err := NewBlockClock(fixedTime(), blockTime)
		if err != nil {
			t.Fatal(err)
		}
		first := c.At(fixedTime().Add(a))
		second := c.At(fixedTime().Add(a + b))
		if second.Height < first.Height || second.Time.Before(first.Time) {
			t.Fatalf("clock went backwards: %+v then %+v", first, second)
		}
	})
}

func TestManualClock_Advance(t *testing.T) {
	c := NewManualClock(domain.BlockInfo{Height: 1, Time: fixedTime()})

	b := c.Advance(3, time.Minute)
	assert.Equal(t, uint64(4), b.Height)
	assert.Equal(t, fixedTime().Add(time.Minute), b.Time)
	assert.Equal(t, b, c.Now())

	b = c.Advance(1, 0)
	assert.Equal(t, uint64(5), b.Height)
	assert.Equal(t, fixedTime().Add(time.Minute), b.Time)
}
