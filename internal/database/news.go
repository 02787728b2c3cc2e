package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// StoreNewsItems persists fetched news entries with duplicate-safe writes:
// the article is inserted once per URL (first writer wins) and the
// (url, symbol) link once per pair. The whole batch runs in one transaction.
// Returns the number of newly created links.
func (db *DB) StoreNewsItems(ctx context.Context, entries []models.NewsEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	articleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO news_items (url, headline, content, published_iso, source, news_type, created_at_iso)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare news insert: %w", err)
	}
	defer articleStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO news_symbols (url, symbol, is_important, created_at_iso)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url, symbol) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare news symbol insert: %w", err)
	}
	defer linkStmt.Close()

	nowISO := timeToISO(time.Now())
	inserted := 0

	for _, entry := range entries {
		a := entry.Article
		var content sql.NullString
		if a.Content != "" {
			content = sql.NullString{String: a.Content, Valid: true}
		}

		if _, err := articleStmt.ExecContext(ctx,
			a.URL, a.Headline, content, timeToISO(a.PublishedAt), a.Source, string(a.Type), nowISO,
		); err != nil {
			return 0, fmt.Errorf("failed to insert news item %s: %w", a.URL, err)
		}

		res, err := linkStmt.ExecContext(ctx,
			a.URL, entry.Symbol, importanceToNull(entry.Importance), nowISO,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert news symbol %s/%s: %w", a.URL, entry.Symbol, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit news batch: %w", err)
	}
	return inserted, nil
}

// GetNewsSince returns news entries created strictly after the cutoff,
// ordered for deterministic pagination. Together with GetNewsBefore this
// partitions all stored rows at the cutoff with no overlap and no gap.
func (db *DB) GetNewsSince(ctx context.Context, cutoff time.Time) ([]models.NewsEntry, error) {
	return db.queryNewsEntries(ctx, `
		SELECT ni.url, ni.headline, ni.content, ni.published_iso, ni.source, ni.news_type,
		       ns.symbol, ns.is_important
		FROM news_items AS ni
		JOIN news_symbols AS ns ON ns.url = ni.url
		WHERE ni.created_at_iso > $1
		ORDER BY ni.created_at_iso ASC, ni.url ASC, ns.symbol ASC
	`, timeToISO(cutoff))
}

// GetNewsBefore returns news entries created at or before the cutoff — the
// read half of the batch hand-off boundary.
func (db *DB) GetNewsBefore(ctx context.Context, cutoff time.Time) ([]models.NewsEntry, error) {
	return db.queryNewsEntries(ctx, `
		SELECT ni.url, ni.headline, ni.content, ni.published_iso, ni.source, ni.news_type,
		       ns.symbol, ns.is_important
		FROM news_items AS ni
		JOIN news_symbols AS ns ON ns.url = ni.url
		WHERE ni.created_at_iso <= $1
		ORDER BY ni.created_at_iso ASC, ni.url ASC, ns.symbol ASC
	`, timeToISO(cutoff))
}

func (db *DB) queryNewsEntries(ctx context.Context, query string, args ...interface{}) ([]models.NewsEntry, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query news entries: %w", err)
	}
	defer rows.Close()

	var entries []models.NewsEntry
	for rows.Next() {
		var (
			urlStr, headline, source, newsType, publishedISO string
			content                                          sql.NullString
			symbol                                           string
			important                                        sql.NullBool
		)
		if err := rows.Scan(&urlStr, &headline, &content, &publishedISO, &source, &newsType, &symbol, &important); err != nil {
			return nil, fmt.Errorf("failed to scan news entry: %w", err)
		}

		published, err := isoToTime(publishedISO)
		if err != nil {
			return nil, fmt.Errorf("corrupt published timestamp for %s: %w", urlStr, err)
		}

		entries = append(entries, models.NewsEntry{
			Article: models.NewsArticle{
				URL:         urlStr,
				Headline:    headline,
				Content:     content.String,
				Source:      source,
				PublishedAt: published,
				Type:        models.NewsType(newsType),
			},
			Symbol:     symbol,
			Importance: importanceFromNull(important),
		})
	}
	return entries, rows.Err()
}
