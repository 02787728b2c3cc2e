package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// UpsertHolding inserts or updates the holding row for a symbol. On update
// every field is replaced except created_at_iso.
func (db *DB) UpsertHolding(ctx context.Context, h models.Holding) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	nowISO := timeToISO(time.Now())
	var notes sql.NullString
	if h.Notes != "" {
		notes = sql.NullString{String: h.Notes, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO holdings
			(symbol, quantity, break_even_price, total_cost, notes, created_at_iso, updated_at_iso)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			break_even_price = EXCLUDED.break_even_price,
			total_cost = EXCLUDED.total_cost,
			notes = EXCLUDED.notes,
			updated_at_iso = EXCLUDED.updated_at_iso
	`,
		h.Symbol, decimalToText(h.Quantity), decimalToText(h.BreakEvenPrice),
		decimalToText(h.TotalCost), notes, nowISO,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding for %s: %w", h.Symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holding upsert: %w", err)
	}
	return nil
}

// GetAllHoldings returns every holding, ordered by symbol.
func (db *DB) GetAllHoldings(ctx context.Context) ([]models.Holding, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT symbol, quantity, break_even_price, total_cost, notes, created_at_iso, updated_at_iso
		FROM holdings
		ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var (
			h                              models.Holding
			quantity, breakEven, totalCost string
			notes                          sql.NullString
			created, updated               string
		)
		if err := rows.Scan(&h.Symbol, &quantity, &breakEven, &totalCost, &notes, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}

		if h.Quantity, err = textToDecimal(quantity); err != nil {
			return nil, fmt.Errorf("corrupt quantity for %s: %w", h.Symbol, err)
		}
		if h.BreakEvenPrice, err = textToDecimal(breakEven); err != nil {
			return nil, fmt.Errorf("corrupt break-even price for %s: %w", h.Symbol, err)
		}
		if h.TotalCost, err = textToDecimal(totalCost); err != nil {
			return nil, fmt.Errorf("corrupt total cost for %s: %w", h.Symbol, err)
		}
		h.Notes = notes.String
		if h.CreatedAt, err = isoToTime(created); err != nil {
			return nil, fmt.Errorf("corrupt created_at timestamp for %s: %w", h.Symbol, err)
		}
		if h.UpdatedAt, err = isoToTime(updated); err != nil {
			return nil, fmt.Errorf("corrupt updated_at timestamp for %s: %w", h.Symbol, err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}
