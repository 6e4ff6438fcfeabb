// Package sqlite provides SQLite-based persistent storage for the multisig.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
// Every method runs on the transaction carried by ctx, if any.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
// Transactions take the write lock at BEGIN.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// ─── Governance ─────────────────────────────────────────────────

		// Proposals carry their running tally so listings need one query.
		`CREATE TABLE IF NOT EXISTS proposals (
			id               INTEGER PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			actions          TEXT NOT NULL,
			proposer         TEXT NOT NULL,
			submitted_height INTEGER NOT NULL,
			submitted_time   INTEGER NOT NULL,
			expires          TEXT NOT NULL,
			threshold        TEXT NOT NULL,
			total_weight     INTEGER NOT NULL,
			status           TEXT NOT NULL DEFAULT 'open',
			tally_yes        INTEGER NOT NULL DEFAULT 0,
			tally_no         INTEGER NOT NULL DEFAULT 0,
			tally_abstain    INTEGER NOT NULL DEFAULT 0,
			tally_veto       INTEGER NOT NULL DEFAULT 0,
			closed_height    INTEGER,
			closed_time      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status)`,

		// One ballot per (proposal, voter); a re-vote overwrites it.
		`CREATE TABLE IF NOT EXISTS ballots (
			proposal_id INTEGER NOT NULL REFERENCES proposals(id),
			voter       TEXT NOT NULL,
			option      TEXT NOT NULL,
			weight      INTEGER NOT NULL,
			cast_height INTEGER NOT NULL,
			cast_time   INTEGER NOT NULL,
			PRIMARY KEY (proposal_id, voter)
		)`,

		`CREATE TABLE IF NOT EXISTS executions (
			id           TEXT PRIMARY KEY,
			proposal_id  INTEGER NOT NULL UNIQUE REFERENCES proposals(id),
			executor     TEXT NOT NULL,
			sender       TEXT NOT NULL,
			block_height INTEGER NOT NULL,
			block_time   INTEGER NOT NULL,
			responses    TEXT NOT NULL,
			signature    TEXT NOT NULL DEFAULT ''
		)`,

		// Values fixed on first open (chain genesis, configuration fingerprint).
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// ─── Downstream Contracts ───────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS token_info (
			contract     TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			decimals     INTEGER NOT NULL,
			minter       TEXT NOT NULL,
			total_supply INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS token_balances (
			contract TEXT NOT NULL,
			account  TEXT NOT NULL,
			amount   INTEGER NOT NULL,
			PRIMARY KEY (contract, account)
		)`,

		`CREATE TABLE IF NOT EXISTS counters (
			contract TEXT PRIMARY KEY,
			owner    TEXT NOT NULL,
			count    INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or the pool.
func (d *DB) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.db
}

// InTx runs fn inside a transaction. A nested call joins the outer
// transaction, so only the outermost InTx commits. Any error or panic from
// fn rolls everything back.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
