package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// StorePriceData persists price ticks keyed by (symbol, timestamp) with
// insert-or-ignore semantics: a later tick with the same key never overwrites
// an earlier one. The batch runs in one transaction. Returns the number of
// newly inserted rows.
func (db *DB) StorePriceData(ctx context.Context, ticks []models.PriceTick) (int, error) {
	if len(ticks) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_data (symbol, timestamp_iso, price, volume, session, created_at_iso)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, timestamp_iso) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	nowISO := timeToISO(time.Now())
	inserted := 0

	for _, t := range ticks {
		var volume sql.NullInt64
		if t.Volume != nil {
			volume = sql.NullInt64{Int64: *t.Volume, Valid: true}
		}

		res, err := stmt.ExecContext(ctx,
			t.Symbol, timeToISO(t.Timestamp), decimalToText(t.Price), volume, string(t.Session), nowISO,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert price for %s: %w", t.Symbol, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit price batch: %w", err)
	}
	return inserted, nil
}

// GetPriceDataSince returns ticks created strictly after the cutoff, ordered
// for deterministic pagination.
func (db *DB) GetPriceDataSince(ctx context.Context, cutoff time.Time) ([]models.PriceTick, error) {
	return db.queryPriceTicks(ctx, `
		SELECT symbol, timestamp_iso, price, volume, session
		FROM price_data
		WHERE created_at_iso > $1
		ORDER BY created_at_iso ASC, symbol ASC, timestamp_iso ASC
	`, timeToISO(cutoff))
}

// GetPricesBefore returns ticks created at or before the cutoff — the read
// half of the batch hand-off boundary.
func (db *DB) GetPricesBefore(ctx context.Context, cutoff time.Time) ([]models.PriceTick, error) {
	return db.queryPriceTicks(ctx, `
		SELECT symbol, timestamp_iso, price, volume, session
		FROM price_data
		WHERE created_at_iso <= $1
		ORDER BY created_at_iso ASC, symbol ASC, timestamp_iso ASC
	`, timeToISO(cutoff))
}

func (db *DB) queryPriceTicks(ctx context.Context, query string, args ...interface{}) ([]models.PriceTick, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price data: %w", err)
	}
	defer rows.Close()

	var ticks []models.PriceTick
	for rows.Next() {
		var (
			symbol, timestampISO, priceText, session string
			volume                                   sql.NullInt64
		)
		if err := rows.Scan(&symbol, &timestampISO, &priceText, &volume, &session); err != nil {
			return nil, fmt.Errorf("failed to scan price tick: %w", err)
		}

		ts, err := isoToTime(timestampISO)
		if err != nil {
			return nil, fmt.Errorf("corrupt price timestamp for %s: %w", symbol, err)
		}
		price, err := textToDecimal(priceText)
		if err != nil {
			return nil, fmt.Errorf("corrupt price value for %s: %w", symbol, err)
		}

		tick := models.PriceTick{
			Symbol:    symbol,
			Timestamp: ts,
			Price:     price,
			Session:   models.Session(session),
		}
		if volume.Valid {
			v := volume.Int64
			tick.Volume = &v
		}
		ticks = append(ticks, tick)
	}
	return ticks, rows.Err()
}
