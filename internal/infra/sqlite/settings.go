package sqlite

import (
	"context"
	"fmt"
)

// ─── Settings ───────────────────────────────────────────────────────────────

// Pin stores value under key on first use. Later calls leave the row alone
// and return what was stored first.
func (d *DB) Pin(ctx context.Context, key, value string) (string, error) {
	var stored string
	err := d.InTx(ctx, func(ctx context.Context) error {
		if _, err := d.conn(ctx).ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
			key, value,
		); err != nil {
			return err
		}
		return d.conn(ctx).QueryRowContext(ctx,
			`SELECT value FROM settings WHERE key = ?`, key,
		).Scan(&stored)
	})
	if err != nil {
		return "", fmt.Errorf("pin %s: %w", key, err)
	}
	return stored, nil
}
