package polygon

import (
	"context"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

// CompanyNewsSource fetches per-symbol news from Polygon's reference feed.
// The endpoint accepts exact published_utc bounds, so the buffer overlap is
// the only widening applied.
type CompanyNewsSource struct {
	client    *Client
	watchlist []string
	lookback  time.Duration
	overlap   time.Duration
	log       *logger.Logger
}

// NewCompanyNewsSource builds the company news source for the given watchlist.
func NewCompanyNewsSource(client *Client, watchlist []string, lookback, overlap time.Duration, log *logger.Logger) *CompanyNewsSource {
	return &CompanyNewsSource{
		client:    client,
		watchlist: watchlist,
		lookback:  lookback,
		overlap:   overlap,
		log:       log,
	}
}

func (s *CompanyNewsSource) Name() string { return "polygon-company-news" }

func (s *CompanyNewsSource) Spec() provider.StreamSpec {
	return provider.StreamSpec{
		Provider:         provider.ProviderPolygon,
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

// FetchIncremental fetches news per watched symbol with per-symbol fault
// isolation; contract breaks abort the whole fetch.
func (s *CompanyNewsSource) FetchIncremental(ctx context.Context, cursor provider.Cursor) (provider.FetchResult, error) {
	plan, ok := cursor.(provider.SymbolCursor)
	if !ok {
		return provider.FetchResult{}, fmt.Errorf("polygon company news expects a symbol cursor, got %T", cursor)
	}

	var result provider.FetchResult
	var lastErr error
	succeeded := false

	for _, symbol := range s.watchlist {
		since, ok := plan.Since[symbol]
		if !ok {
			continue
		}
		bufferStart := provider.BufferStart(since, s.overlap)

		articles, err := fetchNewsWindow(ctx, s.client, s.log, symbol, bufferStart)
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

		sym := symbol
		result.News = append(result.News, toEntries(s.log, articles, models.NewsTypeCompanySpecific, bufferStart,
			func(polygonArticle) []string { return []string{sym} })...)
	}

	if !succeeded && lastErr != nil {
		return provider.FetchResult{}, lastErr
	}
	return result, nil
}
