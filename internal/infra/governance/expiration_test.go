package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/multisig/internal/domain"
)

func fixedTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestNewExpirationPolicy_Validation(t *testing.T) {
	_, err := NewExpirationPolicy(domain.HeightDuration(0), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	w := domain.TimeDuration(time.Hour)
	_, err = NewExpirationPolicy(domain.HeightDuration(10), &w)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration, "mixed units")

	zero := domain.HeightDuration(0)
	_, err = NewExpirationPolicy(domain.HeightDuration(10), &zero)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	ok := domain.HeightDuration(5)
	p, err := NewExpirationPolicy(domain.HeightDuration(10), &ok)
	require.NoError(t, err)
	ok.Height = 99
	assert.Equal(t, uint64(5), p.ExecutionWindow().Height, "window is copied")
}

func TestDeadline_Height(t *testing.T) {
	p, err := NewExpirationPolicy(domain.HeightDuration(3), nil)
	require.NoError(t, err)
	now := domain.BlockInfo{Height: 10, Time: fixedTime()}

	d, err := p.Deadline(now, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.AtHeight(13), d)

	custom := domain.AtHeight(12)
	d, err = p.Deadline(now, &custom)
	require.NoError(t, err)
	assert.Equal(t, custom, d)

	late := domain.AtHeight(14)
	_, err = p.Deadline(now, &late)
	assert.ErrorIs(t, err, domain.ErrWrongExpiration)

	wrongKind := domain.AtTime(fixedTime())
	_, err = p.Deadline(now, &wrongKind)
	assert.ErrorIs(t, err, domain.ErrWrongExpiration)

	never := domain.Never()
	_, err = p.Deadline(now, &never)
	assert.ErrorIs(t, err, domain.ErrWrongExpiration)
}

func TestDeadline_Time(t *testing.T) {
	p, err := NewExpirationPolicy(domain.TimeDuration(time.Hour), nil)
	require.NoError(t, err)
	now := domain.BlockInfo{Height: 10, Time: fixedTime()}

	d, err := p.Deadline(now, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.AtTime(fixedTime().Add(time.Hour)), d)

	custom := domain.AtTime(fixedTime().Add(30 * time.Minute))
	d, err = p.Deadline(now, &custom)
	require.NoError(t, err)
	assert.Equal(t, custom, d)
}

func TestIsExpired_Boundary(t *testing.T) {
	p, err := NewExpirationPolicy(domain.HeightDuration(3), nil)
	require.NoError(t, err)
	deadline := domain.AtHeight(13)

	assert.False(t, p.IsExpired(deadline, domain.BlockInfo{Height: 12}))
	assert.True(t, p.IsExpired(deadline, domain.BlockInfo{Height: 13}), "expiry is inclusive")
	assert.True(t, p.IsExpired(deadline, domain.BlockInfo{Height: 14}))
}

func TestExecutionLapsed(t *testing.T) {
	noWindow, err := NewExpirationPolicy(domain.HeightDuration(3), nil)
	require.NoError(t, err)
	assert.False(t, noWindow.ExecutionLapsed(domain.AtHeight(13), domain.BlockInfo{Height: 1000}))

	w := domain.HeightDuration(5)
	p, err := NewExpirationPolicy(domain.HeightDuration(3), &w)
	require.NoError(t, err)
	assert.False(t, p.ExecutionLapsed(domain.AtHeight(13), domain.BlockInfo{Height: 17}))
	assert.True(t, p.ExecutionLapsed(domain.AtHeight(13), domain.BlockInfo{Height: 18}))
}
