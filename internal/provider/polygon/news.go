package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

// maxPages bounds pagination per cycle so a backlogged feed cannot stall the
// scheduler; the watermark picks the remainder up next cycle.
const maxPages = 10

const pageLimit = "100"

type polygonArticle struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ArticleURL   string   `json:"article_url"`
	PublishedUTC string   `json:"published_utc"`
	Description  string   `json:"description"`
	Tickers      []string `json:"tickers"`
	Publisher    struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

// newsPage is one page of the reference/news endpoint. Results is a raw
// message so "present but null/wrong type" can be told apart from "absent".
type newsPage struct {
	Results json.RawMessage `json:"results"`
	NextURL string          `json:"next_url"`
}

// extractCursor pulls the pagination cursor out of a next_url link so the
// follow-up request can be rebuilt against the configured base URL.
func extractCursor(nextURL string) (string, error) {
	u, err := url.Parse(nextURL)
	if err != nil {
		return "", fmt.Errorf("malformed next_url %q: %w", nextURL, err)
	}
	cursor := u.Query().Get("cursor")
	if cursor == "" {
		return "", fmt.Errorf("next_url %q carries no cursor parameter", nextURL)
	}
	return cursor, nil
}

// fetchNewsWindow pages through reference/news articles published strictly
// after bufferStart, optionally restricted to one ticker.
func fetchNewsWindow(ctx context.Context, client *Client, log *logger.Logger, ticker string, bufferStart time.Time) ([]polygonArticle, error) {
	query := url.Values{
		"order": {"asc"},
		"sort":  {"published_utc"},
		"limit": {pageLimit},
	}
	if ticker != "" {
		query.Set("ticker", ticker)
	}
	if !bufferStart.IsZero() {
		query.Set("published_utc.gt", bufferStart.UTC().Format(time.RFC3339))
	}

	var articles []polygonArticle
	for page := 0; page < maxPages; page++ {
		body, err := client.get(ctx, "/v2/reference/news", query)
		if err != nil {
			return nil, err
		}

		var pageBody newsPage
		if err := json.Unmarshal(body, &pageBody); err != nil {
			return nil, provider.NewContractError(sourceName, "news: malformed response: %v", err)
		}
		if pageBody.Results == nil {
			return nil, provider.NewContractError(sourceName, "news: response missing 'results'")
		}

		var pageArticles []polygonArticle
		if err := json.Unmarshal(pageBody.Results, &pageArticles); err != nil {
			return nil, provider.NewContractError(sourceName, "news: 'results' is not an article list: %v", err)
		}
		articles = append(articles, pageArticles...)

		if pageBody.NextURL == "" {
			break
		}
		cursor, err := extractCursor(pageBody.NextURL)
		if err != nil {
			return nil, provider.NewContractError(sourceName, "news: %v", err)
		}
		query = url.Values{"cursor": {cursor}, "limit": {pageLimit}}
	}
	return articles, nil
}

// toEntries converts raw articles to validated news entries attributed to the
// given symbols, skipping and logging malformed individuals. The server is
// asked for published_utc strictly after bufferStart, but the response is
// re-filtered locally; anything at or before the window is a provider
// data-quality anomaly, dropped and counted.
func toEntries(log *logger.Logger, articles []polygonArticle, newsType models.NewsType, bufferStart time.Time, attribute func(polygonArticle) []string) []models.NewsEntry {
	var entries []models.NewsEntry
	stale := 0
	for _, a := range articles {
		published, err := time.Parse(time.RFC3339, a.PublishedUTC)
		if err != nil {
			log.Warn("skipping article with bad published_utc",
				logger.StringField("url", a.ArticleURL),
				logger.ErrorField(err))
			continue
		}
		if !provider.WithinWindow(published, bufferStart) {
			stale++
			continue
		}

		article, err := models.NewNewsArticle(a.ArticleURL, a.Title, a.Description, a.Publisher.Name, published, newsType)
		if err != nil {
			log.Warn("skipping malformed article", logger.ErrorField(err))
			continue
		}

		for _, symbol := range attribute(a) {
			entry, err := models.NewNewsEntry(article, symbol, models.ImportanceUnknown)
			if err != nil {
				log.Warn("skipping news entry", logger.ErrorField(err))
				continue
			}
			entries = append(entries, entry)
		}
	}
	if stale > 0 {
		log.Debug("dropped articles outside the buffered window",
			logger.IntField("count", stale))
	}
	return entries
}
