package counter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/sqlite"
)

func newTestCounter(t *testing.T) *Contract {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err, "Open()")
	t.Cleanup(func() { db.Close() })

	c := New(db, "counter")
	require.NoError(t, c.Init(context.Background(), "multisig", 0))
	return c
}

func run(c *Contract, sender, msg string) (json.RawMessage, error) {
	env := domain.ContractEnv{Contract: c.Address(), Sender: sender}
	return c.Execute(context.Background(), env, json.RawMessage(msg))
}

func TestIncrement(t *testing.T) {
	c := newTestCounter(t)

	for range 3 {
		_, err := run(c, "anyone", `{"increment":{}}`)
		require.NoError(t, err)
	}

	st, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Count)
}

func TestReset_OwnerOnly(t *testing.T) {
	c := newTestCounter(t)
	_, err := run(c, "anyone", `{"increment":{}}`)
	require.NoError(t, err)

	_, err = run(c, "alice", `{"reset":{"count":10}}`)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	data, err := run(c, "multisig", `{"reset":{"count":10}}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"multisig","count":10}`, string(data))
}

func TestInit_Idempotent(t *testing.T) {
	c := newTestCounter(t)
	_, err := run(c, "anyone", `{"increment":{}}`)
	require.NoError(t, err)

	require.NoError(t, c.Init(context.Background(), "someone-else", 99))
	st, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "multisig", st.Owner)
	assert.Equal(t, int64(1), st.Count)
}

func TestExecute_Invalid(t *testing.T) {
	c := newTestCounter(t)

	for _, msg := range []string{`{}`, `[]`, `{"increment":{},"reset":{"count":1}}`} {
		_, err := run(c, "multisig", msg)
		assert.ErrorIs(t, err, domain.ErrInvalidAction, msg)
	}
}

func TestExecute_Uninitialized(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = run(New(db, "ghost"), "multisig", `{"increment":{}}`)
	assert.ErrorIs(t, err, domain.ErrUnknownContract)
}
