package finnhub

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

// finnhubArticle is the wire shape shared by Finnhub's company-news and
// general-news endpoints.
type finnhubArticle struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// CompanyNewsSource fetches per-symbol company news. Finnhub's company-news
// endpoint only accepts whole-day ranges, so each symbol is queried from the
// buffered cursor's date and the results are filtered back to the exact
// window afterwards.
type CompanyNewsSource struct {
	client    *Client
	watchlist []string
	lookback  time.Duration
	overlap   time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewCompanyNewsSource builds the company news source for the given watchlist.
func NewCompanyNewsSource(client *Client, watchlist []string, lookback, overlap time.Duration, log *logger.Logger) *CompanyNewsSource {
	return &CompanyNewsSource{
		client:    client,
		watchlist: watchlist,
		lookback:  lookback,
		overlap:   overlap,
		log:       log,
		now:       time.Now,
	}
}

func (s *CompanyNewsSource) Name() string { return "finnhub-company-news" }

func (s *CompanyNewsSource) Spec() provider.StreamSpec {
	return provider.StreamSpec{
		Provider:         provider.ProviderFinnhub,
		Stream:           provider.StreamCompany,
		Scope:            provider.ScopeSymbol,
		Kind:             provider.CursorSymbolTimestamp,
		FirstRunLookback: s.lookback,
	}
}

func (s *CompanyNewsSource) WatchedSymbols() []string { return s.watchlist }

func (s *CompanyNewsSource) ValidateConnection(ctx context.Context) bool {
	return s.client.validate(ctx)
}

// FetchIncremental fetches news per watched symbol. A transient failure on
// one symbol is logged and skipped so the rest of the watchlist still makes
// progress; a contract break aborts the whole fetch.
func (s *CompanyNewsSource) FetchIncremental(ctx context.Context, cursor provider.Cursor) (provider.FetchResult, error) {
	plan, ok := cursor.(provider.SymbolCursor)
	if !ok {
		return provider.FetchResult{}, fmt.Errorf("finnhub company news expects a symbol cursor, got %T", cursor)
	}

	var result provider.FetchResult
	var lastErr error
	succeeded := false

	for _, symbol := range s.watchlist {
		since, ok := plan.Since[symbol]
		if !ok {
			continue
		}

		entries, err := s.fetchSymbol(ctx, symbol, since)
		if err != nil {
			if provider.IsContractError(err) {
				return provider.FetchResult{}, err
			}
			s.log.Warn("company news fetch failed for symbol",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			lastErr = err
			continue
		}
		succeeded = true
		result.News = append(result.News, entries...)
	}

	if !succeeded && lastErr != nil {
		return provider.FetchResult{}, lastErr
	}
	return result, nil
}

func (s *CompanyNewsSource) fetchSymbol(ctx context.Context, symbol string, since time.Time) ([]models.NewsEntry, error) {
	bufferStart := provider.BufferStart(since, s.overlap)

	query := url.Values{
		"symbol": {symbol},
		"from":   {bufferStart.UTC().Format("2006-01-02")},
		"to":     {s.now().UTC().Format("2006-01-02")},
	}
	body, err := s.client.get(ctx, "/company-news", query)
	if err != nil {
		return nil, err
	}

	var articles []finnhubArticle
	if err := json.Unmarshal(body, &articles); err != nil {
		return nil, provider.NewContractError(sourceName, "company-news for %s: expected article list: %v", symbol, err)
	}

	var entries []models.NewsEntry
	stale := 0
	for _, a := range articles {
		published := time.Unix(a.Datetime, 0).UTC()
		if !provider.WithinWindow(published, bufferStart) {
			stale++
			continue
		}

		article, err := models.NewNewsArticle(a.URL, a.Headline, a.Summary, a.Source, published, models.NewsTypeCompanySpecific)
		if err != nil {
			s.log.Warn("skipping malformed company news article",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			continue
		}
		entry, err := models.NewNewsEntry(article, symbol, models.ImportanceUnknown)
		if err != nil {
			s.log.Warn("skipping company news entry", logger.ErrorField(err))
			continue
		}
		entries = append(entries, entry)
	}
	if stale > 0 {
		s.log.Debug("dropped articles outside the buffered window",
			logger.StringField("symbol", symbol),
			logger.IntField("count", stale))
	}
	return entries, nil
}
