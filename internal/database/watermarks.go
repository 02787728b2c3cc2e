package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/provider"
)

// The watermarks table implements the watermark.Store contract: one row per
// (provider, stream, scope, symbol) key, with either a timestamp or an
// integer cursor. The global scope stores an empty symbol. Timestamp writes
// are advance-only, enforced in SQL against the lexicographically ordered ISO
// text; ID writes are verbatim.

// GetCursorTimestamp reads the stored timestamp cursor, nil when absent.
func (db *DB) GetCursorTimestamp(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, symbol string) (*time.Time, error) {
	var iso sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT cursor_timestamp_iso FROM watermarks
		WHERE provider = $1 AND stream = $2 AND scope = $3 AND symbol = $4
	`, string(p), string(s), string(scope), symbol).Scan(&iso)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark %s/%s/%s/%s: %w", p, s, scope, symbol, err)
	}
	if !iso.Valid {
		return nil, nil
	}

	ts, err := isoToTime(iso.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt watermark timestamp %s/%s/%s/%s: %w", p, s, scope, symbol, err)
	}
	return &ts, nil
}

// SetCursorTimestamp writes a timestamp cursor, never moving it backwards.
func (db *DB) SetCursorTimestamp(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, symbol string, cursor time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO watermarks (provider, stream, scope, symbol, cursor_timestamp_iso)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, stream, scope, symbol) DO UPDATE
		SET cursor_timestamp_iso = EXCLUDED.cursor_timestamp_iso
		WHERE watermarks.cursor_timestamp_iso IS NULL
		   OR EXCLUDED.cursor_timestamp_iso > watermarks.cursor_timestamp_iso
	`, string(p), string(s), string(scope), symbol, timeToISO(cursor))
	if err != nil {
		return fmt.Errorf("failed to write watermark %s/%s/%s/%s: %w", p, s, scope, symbol, err)
	}
	return nil
}

// GetCursorID reads the stored integer cursor, nil when absent.
func (db *DB) GetCursorID(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope) (*int64, error) {
	var id sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `
		SELECT cursor_id FROM watermarks
		WHERE provider = $1 AND stream = $2 AND scope = $3 AND symbol = ''
	`, string(p), string(s), string(scope)).Scan(&id)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read id watermark %s/%s/%s: %w", p, s, scope, err)
	}
	if !id.Valid {
		return nil, nil
	}
	v := id.Int64
	return &v, nil
}

// SetCursorID writes the integer cursor verbatim.
func (db *DB) SetCursorID(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, cursor int64) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO watermarks (provider, stream, scope, symbol, cursor_id)
		VALUES ($1, $2, $3, '', $4)
		ON CONFLICT (provider, stream, scope, symbol) DO UPDATE
		SET cursor_id = EXCLUDED.cursor_id
	`, string(p), string(s), string(scope), cursor)
	if err != nil {
		return fmt.Errorf("failed to write id watermark %s/%s/%s: %w", p, s, scope, err)
	}
	return nil
}
