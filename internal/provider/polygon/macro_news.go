package polygon

import (
	"context"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

// MacroNewsSource fetches the unrestricted Polygon news feed under a single
// stream-wide timestamp cursor. Articles tagged with watched tickers are
// attributed to them; the rest land on the market sentinel.
type MacroNewsSource struct {
	client    *Client
	watchlist []string
	lookback  time.Duration
	overlap   time.Duration
	log       *logger.Logger
}

// NewMacroNewsSource builds the macro news source.
func NewMacroNewsSource(client *Client, watchlist []string, lookback, overlap time.Duration, log *logger.Logger) *MacroNewsSource {
	return &MacroNewsSource{
		client:    client,
		watchlist: watchlist,
		lookback:  lookback,
		overlap:   overlap,
		log:       log,
	}
}

func (s *MacroNewsSource) Name() string { return "polygon-macro-news" }

func (s *MacroNewsSource) Spec() provider.StreamSpec {
	return provider.StreamSpec{
		Provider:         provider.ProviderPolygon,
		Stream:           provider.StreamMacro,
		Scope:            provider.ScopeGlobal,
		Kind:             provider.CursorTimestamp,
		FirstRunLookback: s.lookback,
	}
}

func (s *MacroNewsSource) WatchedSymbols() []string { return nil }

func (s *MacroNewsSource) ValidateConnection(ctx context.Context) bool {
	return s.client.validate(ctx)
}

// FetchIncremental fetches feed-wide news published after the buffered cursor.
func (s *MacroNewsSource) FetchIncremental(ctx context.Context, cursor provider.Cursor) (provider.FetchResult, error) {
	plan, ok := cursor.(provider.TimestampCursor)
	if !ok {
		return provider.FetchResult{}, fmt.Errorf("polygon macro news expects a timestamp cursor, got %T", cursor)
	}

	var bufferStart time.Time
	if plan.Since != nil {
		bufferStart = provider.BufferStart(*plan.Since, s.overlap)
	}

	articles, err := fetchNewsWindow(ctx, s.client, s.log, "", bufferStart)
	if err != nil {
		return provider.FetchResult{}, err
	}

	watched := make(map[string]bool, len(s.watchlist))
	for _, sym := range s.watchlist {
		watched[models.NormalizeSymbol(sym)] = true
	}

	attribute := func(a polygonArticle) []string {
		var symbols []string
		for _, raw := range a.Tickers {
			sym := models.NormalizeSymbol(raw)
			if sym != "" && watched[sym] {
				symbols = append(symbols, sym)
			}
		}
		if len(symbols) == 0 {
			return []string{models.MarketSymbol}
		}
		return symbols
	}

	return provider.FetchResult{
		News: toEntries(s.log, articles, models.NewsTypeMacro, bufferStart, attribute),
	}, nil
}
