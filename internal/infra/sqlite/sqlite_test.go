package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/multisig/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err, "Open()")
	t.Cleanup(func() { db.Close() })
	return db
}

func fixedTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func sampleProposal(id uint64) domain.Proposal {
	return domain.Proposal{
		ID:          id,
		Title:       "mint",
		Description: "mint 100 to alice",
		Actions: []domain.Action{
			{Contract: "token", Msg: json.RawMessage(`{"mint":{"recipient":"alice","amount":"100"}}`)},
		},
		Proposer:    "alice",
		SubmittedAt: domain.BlockInfo{Height: 10, Time: fixedTime()},
		Expires:     domain.AtHeight(20),
		Threshold:   domain.Threshold{Kind: domain.AbsoluteCount, Weight: 2},
		TotalWeight: 3,
		Status:      domain.StatusOpen,
	}
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, "state.db"))
	assert.NoError(t, err, "state.db should exist")
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping())
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.InsertProposal(ctx, sampleProposal(1)))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	p, err := db.GetProposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "mint", p.Title)
}

// ─── Proposals ──────────────────────────────────────────────────────────────

func TestNextProposalID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.NextProposalID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	require.NoError(t, db.InsertProposal(ctx, sampleProposal(1)))
	id, err = db.NextProposalID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestProposal_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	want := sampleProposal(1)
	want.Expires = domain.AtTime(fixedTime().Add(time.Hour))
	want.Threshold = domain.Threshold{Kind: domain.ThresholdQuorum, Percentage: 5000, Quorum: 3333}
	require.NoError(t, db.InsertProposal(ctx, want))

	got, err := db.GetProposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Proposer, got.Proposer)
	assert.Equal(t, want.SubmittedAt, got.SubmittedAt)
	assert.Equal(t, want.Expires, got.Expires)
	assert.Equal(t, want.Threshold, got.Threshold)
	assert.Equal(t, want.TotalWeight, got.TotalWeight)
	assert.Equal(t, domain.StatusOpen, got.Status)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "token", got.Actions[0].Contract)
	assert.JSONEq(t, string(want.Actions[0].Msg), string(got.Actions[0].Msg))
	assert.Nil(t, got.ClosedAt)
}

func TestGetProposal_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetProposal(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
}

func TestUpdateProposal(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.InsertProposal(ctx, sampleProposal(1)))

	p, err := db.GetProposal(ctx, 1)
	require.NoError(t, err)
	closed := domain.BlockInfo{Height: 21, Time: fixedTime().Add(time.Minute)}
	p.Status = domain.StatusRejected
	p.Tally = domain.Tally{Yes: 1, No: 1, Abstain: 0, Veto: 1}
	p.ClosedAt = &closed
	require.NoError(t, db.UpdateProposal(ctx, *p))

	got, err := db.GetProposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, p.Tally, got.Tally)
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, closed, *got.ClosedAt)

	p.ID = 99
	assert.ErrorIs(t, db.UpdateProposal(ctx, *p), domain.ErrProposalNotFound)
}

func collect(t *testing.T, db *DB, filter domain.ProposalFilter) []uint64 {
	t.Helper()
	var ids []uint64
	for p, err := range db.Proposals(context.Background(), filter) {
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return ids
}

func TestProposals_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for id := uint64(1); id <= 5; id++ {
		p := sampleProposal(id)
		if id%2 == 0 {
			p.Status = domain.StatusPassed
		}
		require.NoError(t, db.InsertProposal(ctx, p))
	}

	passed := domain.StatusPassed
	tests := []struct {
		name   string
		filter domain.ProposalFilter
		want   []uint64
	}{
		{"all", domain.ProposalFilter{}, []uint64{1, 2, 3, 4, 5}},
		{"start after", domain.ProposalFilter{StartAfter: 2}, []uint64{3, 4, 5}},
		{"limit", domain.ProposalFilter{Limit: 2}, []uint64{1, 2}},
		{"reverse", domain.ProposalFilter{Reverse: true, Limit: 3}, []uint64{5, 4, 3}},
		{"reverse start before", domain.ProposalFilter{Reverse: true, StartBefore: 4}, []uint64{3, 2, 1}},
		{"status", domain.ProposalFilter{Status: &passed}, []uint64{2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(t, db, tt.filter))
		})
	}
}

func TestProposals_EarlyBreakReleasesConnection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for id := uint64(1); id <= 3; id++ {
		require.NoError(t, db.InsertProposal(ctx, sampleProposal(id)))
	}

	for p, err := range db.Proposals(ctx, domain.ProposalFilter{}) {
		require.NoError(t, err)
		if p.ID == 1 {
			break
		}
	}

	// With a single connection this would block if rows were left open.
	_, err := db.GetProposal(ctx, 2)
	assert.NoError(t, err)
}

// ─── Ballots ────────────────────────────────────────────────────────────────

func TestUpsertBallot_ReturnsPrevious(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.InsertProposal(ctx, sampleProposal(1)))

	first := domain.Ballot{ProposalID: 1, Voter: "bob", Option: domain.VoteNo, Weight: 2,
		CastAt: domain.BlockInfo{Height: 11, Time: fixedTime()}}
	prev, err := db.UpsertBallot(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, prev)

	second := first
	second.Option = domain.VoteYes
	second.CastAt.Height = 12
	prev, err = db.UpsertBallot(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, domain.VoteNo, prev.Option)

	got, err := db.GetBallot(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.VoteYes, got.Option)
	assert.Equal(t, uint64(12), got.CastAt.Height)
}

func TestGetBallot_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetBallot(context.Background(), 1, "nobody")
	assert.ErrorIs(t, err, domain.ErrBallotNotFound)
}

func TestListBallots_Paging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.InsertProposal(ctx, sampleProposal(1)))
	for _, voter := range []string{"carol", "alice", "dave", "bob"} {
		_, err := db.UpsertBallot(ctx, domain.Ballot{ProposalID: 1, Voter: voter, Option: domain.VoteYes, Weight: 1})
		require.NoError(t, err)
	}

	page, err := db.ListBallots(ctx, 1, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "alice", page[0].Voter)
	assert.Equal(t, "bob", page[1].Voter)

	page, err = db.ListBallots(ctx, 1, "bob", 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "carol", page[0].Voter)
	assert.Equal(t, "dave", page[1].Voter)

	page, err = db.ListBallots(ctx, 2, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

// ─── Executions ─────────────────────────────────────────────────────────────

func TestExecution_RoundTripAndUnique(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.InsertProposal(ctx, sampleProposal(1)))

	exec := domain.Execution{
		ID:         "exec-1",
		ProposalID: 1,
		Executor:   "carol",
		Sender:     "multisig",
		Block:      domain.BlockInfo{Height: 15, Time: fixedTime()},
		Responses:  []domain.DispatchResponse{{Contract: "token", Data: json.RawMessage(`{"balance":"100"}`)}},
		Signature:  "abcd",
	}
	require.NoError(t, db.InsertExecution(ctx, exec))

	got, err := db.GetExecution(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, exec.ID, got.ID)
	assert.Equal(t, exec.Block, got.Block)
	assert.Equal(t, "abcd", got.Signature)
	require.Len(t, got.Responses, 1)
	assert.Equal(t, "token", got.Responses[0].Contract)

	exec.ID = "exec-2"
	assert.Error(t, db.InsertExecution(ctx, exec), "second execution of one proposal must fail")

	_, err = db.GetExecution(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

// ─── Transactions ───────────────────────────────────────────────────────────

func TestInTx_CommitAndRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.InTx(ctx, func(ctx context.Context) error {
		return db.InsertProposal(ctx, sampleProposal(1))
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.InTx(ctx, func(ctx context.Context) error {
		if err := db.InsertProposal(ctx, sampleProposal(2)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetProposal(ctx, 1)
	assert.NoError(t, err)
	_, err = db.GetProposal(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound, "rolled back insert must not persist")
}

func TestInTx_NestedJoinsOuter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(ctx context.Context) error {
		inner := db.InTx(ctx, func(ctx context.Context) error {
			return db.InsertProposal(ctx, sampleProposal(1))
		})
		require.NoError(t, inner)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetProposal(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound, "inner work must roll back with the outer tx")
}

func TestInTx_PanicRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = db.InTx(ctx, func(ctx context.Context) error {
			_ = db.InsertProposal(ctx, sampleProposal(1))
			panic("boom")
		})
	})

	_, err := db.GetProposal(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
}

// ─── Contracts ──────────────────────────────────────────────────────────────

func TestToken_Storage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetTokenInfo(ctx, "token")
	assert.ErrorIs(t, err, ErrNoRecord)

	require.NoError(t, db.InitToken(ctx, TokenInfo{Contract: "token", Name: "Gov", Symbol: "GOV", Decimals: 6, Minter: "multisig"}))
	require.NoError(t, db.InitToken(ctx, TokenInfo{Contract: "token", Name: "Other", Symbol: "OTH", Minter: "x"}))

	info, err := db.GetTokenInfo(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "GOV", info.Symbol, "re-init keeps the first row")
	assert.Equal(t, uint8(6), info.Decimals)

	bal, err := db.TokenBalance(ctx, "token", "alice")
	require.NoError(t, err)
	assert.Zero(t, bal)

	require.NoError(t, db.SetTokenBalance(ctx, "token", "alice", 50))
	require.NoError(t, db.SetTokenBalance(ctx, "token", "alice", 70))
	require.NoError(t, db.SetTotalSupply(ctx, "token", 70))

	bal, err = db.TokenBalance(ctx, "token", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(70), bal)

	info, err = db.GetTokenInfo(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, int64(70), info.TotalSupply)
}

func TestCounter_Storage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, _, err := db.GetCounter(ctx, "counter")
	assert.ErrorIs(t, err, ErrNoRecord)
	assert.ErrorIs(t, db.SetCounter(ctx, "counter", 1), ErrNoRecord)

	require.NoError(t, db.InitCounter(ctx, "counter", "multisig", 5))
	require.NoError(t, db.SetCounter(ctx, "counter", 6))

	owner, count, err := db.GetCounter(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "multisig", owner)
	assert.Equal(t, int64(6), count)
}

// ─── Settings ───────────────────────────────────────────────────────────────

func TestPin_FirstValueWins(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)

	got, err := db.Pin(ctx, "chain.genesis", "2026-03-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", got)

	got, err = db.Pin(ctx, "chain.genesis", "2026-03-02T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", got)
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()
	got, err = db.Pin(ctx, "chain.genesis", "later")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", got, "survives reopen")

	got, err = db.Pin(ctx, "other", "x")
	require.NoError(t, err)
	assert.Equal(t, "x", got, "keys are independent")
}

func TestPin_JoinsOuterTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.InTx(ctx, func(ctx context.Context) error {
		if _, err := db.Pin(ctx, "k", "v1"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := db.Pin(ctx, "k", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", got, "rolled-back pin leaves no row")
}
