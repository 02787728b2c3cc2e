package database

import (
	"context"
	"fmt"
	"time"
)

// BatchCounts reports how many rows a batch prune removed per table.
type BatchCounts struct {
	SymbolsDeleted int64 `json:"symbols_deleted"`
	NewsDeleted    int64 `json:"news_deleted"`
	PricesDeleted  int64 `json:"prices_deleted"`
}

// CommitLLMBatch atomically prunes all news links, news items and price ticks
// created at or before the cutoff, in one transaction. This is the
// exactly-once hand-off boundary: the downstream consumer must have durably
// recorded everything up to the cutoff before calling, because the delete is
// unconditional. Running it twice with the same cutoff deletes nothing the
// second time.
func (db *DB) CommitLLMBatch(ctx context.Context, cutoff time.Time) (BatchCounts, error) {
	var counts BatchCounts
	isoCutoff := timeToISO(cutoff)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Links go first so the article delete never trips the foreign key.
	res, err := tx.ExecContext(ctx, `
		DELETE FROM news_symbols
		WHERE url IN (SELECT url FROM news_items WHERE created_at_iso <= $1)
	`, isoCutoff)
	if err != nil {
		return counts, fmt.Errorf("failed to prune news symbols: %w", err)
	}
	counts.SymbolsDeleted, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM news_items WHERE created_at_iso <= $1`, isoCutoff)
	if err != nil {
		return counts, fmt.Errorf("failed to prune news items: %w", err)
	}
	counts.NewsDeleted, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM price_data WHERE created_at_iso <= $1`, isoCutoff)
	if err != nil {
		return counts, fmt.Errorf("failed to prune price data: %w", err)
	}
	counts.PricesDeleted, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("failed to commit batch prune: %w", err)
	}
	return counts, nil
}
