package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// UpsertAnalysisResult inserts or updates the analysis row for
// (symbol, analysis_type). On update every field is replaced except
// created_at_iso, which keeps its original value.
func (db *DB) UpsertAnalysisResult(ctx context.Context, r models.AnalysisResult) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	nowISO := timeToISO(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_results
			(symbol, analysis_type, model_name, stance, confidence_score, result_json, last_updated_iso, created_at_iso)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, analysis_type) DO UPDATE SET
			model_name = EXCLUDED.model_name,
			stance = EXCLUDED.stance,
			confidence_score = EXCLUDED.confidence_score,
			result_json = EXCLUDED.result_json,
			last_updated_iso = EXCLUDED.last_updated_iso
	`,
		r.Symbol, r.AnalysisType, r.ModelName, string(r.Stance), r.Confidence,
		string(r.Payload), timeToISO(r.LastUpdatedAt), nowISO,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis result for %s/%s: %w", r.Symbol, r.AnalysisType, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis upsert: %w", err)
	}
	return nil
}

// GetAnalysisResults returns analysis rows for a symbol, or every row when
// the symbol is empty.
func (db *DB) GetAnalysisResults(ctx context.Context, symbol string) ([]models.AnalysisResult, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT symbol, analysis_type, model_name, stance, confidence_score, result_json,
		       last_updated_iso, created_at_iso
		FROM analysis_results
		WHERE $1 = '' OR symbol = $1
		ORDER BY symbol ASC, analysis_type ASC
	`, models.NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis results: %w", err)
	}
	defer rows.Close()

	var results []models.AnalysisResult
	for rows.Next() {
		var (
			r                                 models.AnalysisResult
			stance, payload, updated, created string
		)
		if err := rows.Scan(&r.Symbol, &r.AnalysisType, &r.ModelName, &stance, &r.Confidence, &payload, &updated, &created); err != nil {
			return nil, fmt.Errorf("failed to scan analysis result: %w", err)
		}

		r.Stance = models.Stance(stance)
		r.Payload = json.RawMessage(payload)
		if r.LastUpdatedAt, err = isoToTime(updated); err != nil {
			return nil, fmt.Errorf("corrupt last_updated timestamp for %s: %w", r.Symbol, err)
		}
		if r.CreatedAt, err = isoToTime(created); err != nil {
			return nil, fmt.Errorf("corrupt created_at timestamp for %s: %w", r.Symbol, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
