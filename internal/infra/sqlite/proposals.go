package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/tutu-network/multisig/internal/domain"
)

// ─── Proposal Repository ────────────────────────────────────────────────────

const proposalColumns = `id, title, description, actions, proposer,
	submitted_height, submitted_time, expires, threshold, total_weight,
	status, tally_yes, tally_no, tally_abstain, tally_veto, closed_height, closed_time`

// NextProposalID returns the id the next inserted proposal will get.
// Ids are dense, start at 1 and are never reused.
func (d *DB) NextProposalID(ctx context.Context) (uint64, error) {
	var maxID sql.NullInt64
	if err := d.conn(ctx).QueryRowContext(ctx, `SELECT MAX(id) FROM proposals`).Scan(&maxID); err != nil {
		return 0, err
	}
	return uint64(maxID.Int64) + 1, nil
}

// InsertProposal stores a new proposal.
func (d *DB) InsertProposal(ctx context.Context, p domain.Proposal) error {
	actions, err := json.Marshal(p.Actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	expires, err := json.Marshal(p.Expires)
	if err != nil {
		return fmt.Errorf("encode expiration: %w", err)
	}
	threshold, err := json.Marshal(p.Threshold)
	if err != nil {
		return fmt.Errorf("encode threshold: %w", err)
	}
	closedHeight, closedTime := nullableBlock(p.ClosedAt)

	_, err = d.conn(ctx).ExecContext(ctx,
		`INSERT INTO proposals (`+proposalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(p.ID), p.Title, p.Description, string(actions), p.Proposer,
		int64(p.SubmittedAt.Height), unixNano(p.SubmittedAt.Time),
		string(expires), string(threshold), int64(p.TotalWeight),
		p.Status.String(),
		int64(p.Tally.Yes), int64(p.Tally.No), int64(p.Tally.Abstain), int64(p.Tally.Veto),
		closedHeight, closedTime,
	)
	return err
}

// GetProposal retrieves a proposal by id.
func (d *DB) GetProposal(ctx context.Context, id uint64) (*domain.Proposal, error) {
	row := d.conn(ctx).QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, int64(id))
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal %d: %w", id, domain.ErrProposalNotFound)
	}
	return p, err
}

// UpdateProposal rewrites the mutable part of a proposal: status, tally and closed_at.
func (d *DB) UpdateProposal(ctx context.Context, p domain.Proposal) error {
	closedHeight, closedTime := nullableBlock(p.ClosedAt)
	result, err := d.conn(ctx).ExecContext(ctx,
		`UPDATE proposals SET status = ?, tally_yes = ?, tally_no = ?, tally_abstain = ?, tally_veto = ?,
			closed_height = ?, closed_time = ?
		 WHERE id = ?`,
		p.Status.String(),
		int64(p.Tally.Yes), int64(p.Tally.No), int64(p.Tally.Abstain), int64(p.Tally.Veto),
		closedHeight, closedTime, int64(p.ID),
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("proposal %d: %w", p.ID, domain.ErrProposalNotFound)
	}
	return nil
}

// Proposals lazily yields proposals matching filter. Rows are streamed, so
// the caller must not issue other queries on the same connection while
// ranging; breaking out early releases it.
func (d *DB) Proposals(ctx context.Context, filter domain.ProposalFilter) iter.Seq2[domain.Proposal, error] {
	return func(yield func(domain.Proposal, error) bool) {
		var (
			where []string
			args  []any
		)
		if filter.Status != nil {
			where = append(where, "status = ?")
			args = append(args, filter.Status.String())
		}
		if filter.StartAfter > 0 {
			where = append(where, "id > ?")
			args = append(args, int64(filter.StartAfter))
		}
		if filter.StartBefore > 0 {
			where = append(where, "id < ?")
			args = append(args, int64(filter.StartBefore))
		}

		q := `SELECT ` + proposalColumns + ` FROM proposals`
		if len(where) > 0 {
			q += ` WHERE ` + strings.Join(where, " AND ")
		}
		if filter.Reverse {
			q += ` ORDER BY id DESC`
		} else {
			q += ` ORDER BY id ASC`
		}
		if filter.Limit > 0 {
			q += ` LIMIT ?`
			args = append(args, filter.Limit)
		}

		rows, err := d.conn(ctx).QueryContext(ctx, q, args...)
		if err != nil {
			yield(domain.Proposal{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProposal(rows)
			if err != nil {
				yield(domain.Proposal{}, err)
				return
			}
			if !yield(*p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Proposal{}, err)
		}
	}
}

func scanProposal(s scanner) (*domain.Proposal, error) {
	var (
		p                        domain.Proposal
		id, subHeight, subTime   int64
		totalWeight              int64
		yes, no, abstain, veto   int64
		actions, expires, thresh string
		status                   string
		closedHeight, closedTime sql.NullInt64
	)
	err := s.Scan(&id, &p.Title, &p.Description, &actions, &p.Proposer,
		&subHeight, &subTime, &expires, &thresh, &totalWeight,
		&status, &yes, &no, &abstain, &veto, &closedHeight, &closedTime)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(actions), &p.Actions); err != nil {
		return nil, fmt.Errorf("decode actions of proposal %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(expires), &p.Expires); err != nil {
		return nil, fmt.Errorf("decode expiration of proposal %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(thresh), &p.Threshold); err != nil {
		return nil, fmt.Errorf("decode threshold of proposal %d: %w", id, err)
	}
	if p.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}

	p.ID = uint64(id)
	p.SubmittedAt = domain.BlockInfo{Height: uint64(subHeight), Time: fromUnixNano(subTime)}
	p.TotalWeight = uint64(totalWeight)
	p.Tally = domain.Tally{Yes: uint64(yes), No: uint64(no), Abstain: uint64(abstain), Veto: uint64(veto)}
	if closedHeight.Valid {
		p.ClosedAt = &domain.BlockInfo{Height: uint64(closedHeight.Int64), Time: fromUnixNano(closedTime.Int64)}
	}
	return &p, nil
}

func nullableBlock(b *domain.BlockInfo) (sql.NullInt64, sql.NullInt64) {
	if b == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(b.Height), Valid: true},
		sql.NullInt64{Int64: unixNano(b.Time), Valid: true}
}

// ─── Ballot Repository ──────────────────────────────────────────────────────

// UpsertBallot stores b and returns the ballot it replaced, if any.
func (d *DB) UpsertBallot(ctx context.Context, b domain.Ballot) (*domain.Ballot, error) {
	prev, err := d.GetBallot(ctx, b.ProposalID, b.Voter)
	if err != nil && !errors.Is(err, domain.ErrBallotNotFound) {
		return nil, err
	}

	_, err = d.conn(ctx).ExecContext(ctx,
		`INSERT INTO ballots (proposal_id, voter, option, weight, cast_height, cast_time)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(proposal_id, voter) DO UPDATE SET
			option=excluded.option,
			weight=excluded.weight,
			cast_height=excluded.cast_height,
			cast_time=excluded.cast_time`,
		int64(b.ProposalID), b.Voter, b.Option.String(), int64(b.Weight),
		int64(b.CastAt.Height), unixNano(b.CastAt.Time),
	)
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// GetBallot returns ErrBallotNotFound when voter has not voted on the proposal.
func (d *DB) GetBallot(ctx context.Context, proposalID uint64, voter string) (*domain.Ballot, error) {
	row := d.conn(ctx).QueryRowContext(ctx,
		`SELECT proposal_id, voter, option, weight, cast_height, cast_time
		 FROM ballots WHERE proposal_id = ? AND voter = ?`, int64(proposalID), voter)
	b, err := scanBallot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal %d voter %s: %w", proposalID, voter, domain.ErrBallotNotFound)
	}
	return b, err
}

// ListBallots returns up to limit ballots ascending by voter, after startAfter.
func (d *DB) ListBallots(ctx context.Context, proposalID uint64, startAfter string, limit int) ([]domain.Ballot, error) {
	rows, err := d.conn(ctx).QueryContext(ctx,
		`SELECT proposal_id, voter, option, weight, cast_height, cast_time
		 FROM ballots WHERE proposal_id = ? AND voter > ?
		 ORDER BY voter ASC LIMIT ?`, int64(proposalID), startAfter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ballots := []domain.Ballot{}
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			return nil, err
		}
		ballots = append(ballots, *b)
	}
	return ballots, rows.Err()
}

func scanBallot(s scanner) (*domain.Ballot, error) {
	var (
		b                    domain.Ballot
		id, weight           int64
		castHeight, castTime int64
		option               string
	)
	if err := s.Scan(&id, &b.Voter, &option, &weight, &castHeight, &castTime); err != nil {
		return nil, err
	}
	opt, err := domain.ParseVoteOption(option)
	if err != nil {
		return nil, err
	}
	b.ProposalID = uint64(id)
	b.Option = opt
	b.Weight = uint64(weight)
	b.CastAt = domain.BlockInfo{Height: uint64(castHeight), Time: fromUnixNano(castTime)}
	return &b, nil
}

// ─── Execution Records ──────────────────────────────────────────────────────

// InsertExecution stores the record of a successful Execute.
// A second record for the same proposal violates the unique constraint.
func (d *DB) InsertExecution(ctx context.Context, e domain.Execution) error {
	responses, err := json.Marshal(e.Responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	_, err = d.conn(ctx).ExecContext(ctx,
		`INSERT INTO executions (id, proposal_id, executor, sender, block_height, block_time, responses, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, int64(e.ProposalID), e.Executor, e.Sender,
		int64(e.Block.Height), unixNano(e.Block.Time), string(responses), e.Signature,
	)
	return err
}

// GetExecution returns ErrExecutionNotFound for proposals never executed.
func (d *DB) GetExecution(ctx context.Context, proposalID uint64) (*domain.Execution, error) {
	var (
		e              domain.Execution
		id, height, at int64
		responses      string
	)
	err := d.conn(ctx).QueryRowContext(ctx,
		`SELECT id, proposal_id, executor, sender, block_height, block_time, responses, signature
		 FROM executions WHERE proposal_id = ?`, int64(proposalID),
	).Scan(&e.ID, &id, &e.Executor, &e.Sender, &height, &at, &responses, &e.Signature)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal %d: %w", proposalID, domain.ErrExecutionNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(responses), &e.Responses); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	e.ProposalID = uint64(id)
	e.Block = domain.BlockInfo{Height: uint64(height), Time: fromUnixNano(at)}
	return &e, nil
}
