package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// StoreDiscussions persists social discussions keyed by (source, source_id)
// with insert-or-ignore semantics, in one transaction. Returns the number of
// newly inserted rows.
func (db *DB) StoreDiscussions(ctx context.Context, discussions []models.SocialDiscussion) (int, error) {
	if len(discussions) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO social_discussions
			(source, source_id, symbol, community, title, url, published_iso, content, created_at_iso)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, source_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare discussion insert: %w", err)
	}
	defer stmt.Close()

	nowISO := timeToISO(time.Now())
	inserted := 0

	for _, d := range discussions {
		var content sql.NullString
		if d.Content != "" {
			content = sql.NullString{String: d.Content, Valid: true}
		}

		res, err := stmt.ExecContext(ctx,
			d.Source, d.SourceID, d.Symbol, d.Community, d.Title, d.URL,
			timeToISO(d.PublishedAt), content, nowISO,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert discussion %s/%s: %w", d.Source, d.SourceID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit discussion batch: %w", err)
	}
	return inserted, nil
}

// GetDiscussionsSince returns discussions created strictly after the cutoff.
func (db *DB) GetDiscussionsSince(ctx context.Context, cutoff time.Time) ([]models.SocialDiscussion, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT source, source_id, symbol, community, title, url, published_iso, content
		FROM social_discussions
		WHERE created_at_iso > $1
		ORDER BY created_at_iso ASC, source ASC, source_id ASC
	`, timeToISO(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to query discussions: %w", err)
	}
	defer rows.Close()

	var discussions []models.SocialDiscussion
	for rows.Next() {
		var (
			d            models.SocialDiscussion
			publishedISO string
			content      sql.NullString
		)
		if err := rows.Scan(&d.Source, &d.SourceID, &d.Symbol, &d.Community, &d.Title, &d.URL, &publishedISO, &content); err != nil {
			return nil, fmt.Errorf("failed to scan discussion: %w", err)
		}
		if d.PublishedAt, err = isoToTime(publishedISO); err != nil {
			return nil, fmt.Errorf("corrupt discussion timestamp for %s: %w", d.SourceID, err)
		}
		d.Content = content.String
		discussions = append(discussions, d)
	}
	return discussions, rows.Err()
}
