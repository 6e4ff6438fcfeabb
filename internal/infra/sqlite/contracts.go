package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ─── Token Repository ───────────────────────────────────────────────────────

// TokenInfo is the stored metadata of a fungible token contract.
type TokenInfo struct {
	Contract    string
	Name        string
	Symbol      string
	Decimals    uint8
	Minter      string
	TotalSupply int64
}

// ErrNoRecord is returned when a contract has no stored state.
var ErrNoRecord = errors.New("no record")

// InitToken stores token metadata once. Re-initializing keeps the existing row.
func (d *DB) InitToken(ctx context.Context, info TokenInfo) error {
	_, err := d.conn(ctx).ExecContext(ctx,
		`INSERT INTO token_info (contract, name, symbol, decimals, minter, total_supply)
		 VALUES (?, ?, ?, ?, ?, 0)
		 ON CONFLICT(contract) DO NOTHING`,
		info.Contract, info.Name, info.Symbol, info.Decimals, info.Minter,
	)
	return err
}

// GetTokenInfo returns ErrNoRecord when the token was never initialized.
func (d *DB) GetTokenInfo(ctx context.Context, contract string) (*TokenInfo, error) {
	var info TokenInfo
	err := d.conn(ctx).QueryRowContext(ctx,
		`SELECT contract, name, symbol, decimals, minter, total_supply
		 FROM token_info WHERE contract = ?`, contract,
	).Scan(&info.Contract, &info.Name, &info.Symbol, &info.Decimals, &info.Minter, &info.TotalSupply)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token %s: %w", contract, ErrNoRecord)
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SetTotalSupply overwrites a token's total supply.
func (d *DB) SetTotalSupply(ctx context.Context, contract string, supply int64) error {
	_, err := d.conn(ctx).ExecContext(ctx,
		`UPDATE token_info SET total_supply = ? WHERE contract = ?`, supply, contract)
	return err
}

// TokenBalance returns an account's balance, zero when it has none.
func (d *DB) TokenBalance(ctx context.Context, contract, account string) (int64, error) {
	var amount int64
	err := d.conn(ctx).QueryRowContext(ctx,
		`SELECT amount FROM token_balances WHERE contract = ? AND account = ?`,
		contract, account,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

// SetTokenBalance overwrites an account's balance.
func (d *DB) SetTokenBalance(ctx context.Context, contract, account string, amount int64) error {
	_, err := d.conn(ctx).ExecContext(ctx,
		`INSERT INTO token_balances (contract, account, amount) VALUES (?, ?, ?)
		 ON CONFLICT(contract, account) DO UPDATE SET amount=excluded.amount`,
		contract, account, amount,
	)
	return err
}

// ─── Counter Repository ─────────────────────────────────────────────────────

// InitCounter stores a counter once. Re-initializing keeps the existing row.
func (d *DB) InitCounter(ctx context.Context, contract, owner string, start int64) error {
	_, err := d.conn(ctx).ExecContext(ctx,
		`INSERT INTO counters (contract, owner, count) VALUES (?, ?, ?)
		 ON CONFLICT(contract) DO NOTHING`,
		contract, owner, start,
	)
	return err
}

// GetCounter returns the owner and count, or ErrNoRecord.
func (d *DB) GetCounter(ctx context.Context, contract string) (owner string, count int64, err error) {
	err = d.conn(ctx).QueryRowContext(ctx,
		`SELECT owner, count FROM counters WHERE contract = ?`, contract,
	).Scan(&owner, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("counter %s: %w", contract, ErrNoRecord)
	}
	return owner, count, err
}

// SetCounter overwrites a counter's value.
func (d *DB) SetCounter(ctx context.Context, contract string, count int64) error {
	result, err := d.conn(ctx).ExecContext(ctx,
		`UPDATE counters SET count = ? WHERE contract = ?`, count, contract)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("counter %s: %w", contract, ErrNoRecord)
	}
	return nil
}
