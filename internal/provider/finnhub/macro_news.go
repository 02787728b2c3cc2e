package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

// MacroNewsSource fetches Finnhub's general news feed, which is ordered by an
// integer article ID rather than by time. The cursor is that ID; the feed is
// re-filtered locally because the minId parameter is advisory.
type MacroNewsSource struct {
	client    *Client
	watchlist []string
	log       *logger.Logger
}

// NewMacroNewsSource builds the macro news source. The watchlist is used to
// attribute "related" tickers; articles with no watched ticker fall back to
// the market-wide sentinel symbol.
func NewMacroNewsSource(client *Client, watchlist []string, log *logger.Logger) *MacroNewsSource {
	return &MacroNewsSource{client: client, watchlist: watchlist, log: log}
}

func (s *MacroNewsSource) Name() string { return "finnhub-macro-news" }

func (s *MacroNewsSource) Spec() provider.StreamSpec {
	return provider.StreamSpec{
		Provider: provider.ProviderFinnhub,
		Stream:   provider.StreamMacro,
		Scope:    provider.ScopeGlobal,
		Kind:     provider.CursorID,
	}
}

func (s *MacroNewsSource) WatchedSymbols() []string { return nil }

func (s *MacroNewsSource) ValidateConnection(ctx context.Context) bool {
	return s.client.validate(ctx)
}

// FetchIncremental fetches general news strictly newer than the ID cursor and
// reports the maximum ID it saw so the cursor can advance.
func (s *MacroNewsSource) FetchIncremental(ctx context.Context, cursor provider.Cursor) (provider.FetchResult, error) {
	plan, ok := cursor.(provider.IDCursor)
	if !ok {
		return provider.FetchResult{}, fmt.Errorf("finnhub macro news expects an id cursor, got %T", cursor)
	}

	query := url.Values{"category": {"general"}}
	if plan.MinID != nil {
		query.Set("minId", strconv.FormatInt(*plan.MinID, 10))
	}

	body, err := s.client.get(ctx, "/news", query)
	if err != nil {
		return provider.FetchResult{}, err
	}

	var articles []finnhubArticle
	if err := json.Unmarshal(body, &articles); err != nil {
		return provider.FetchResult{}, provider.NewContractError(sourceName, "general news: expected article list: %v", err)
	}

	watched := make(map[string]bool, len(s.watchlist))
	for _, sym := range s.watchlist {
		watched[models.NormalizeSymbol(sym)] = true
	}

	var result provider.FetchResult
	var maxID int64
	sawID := false

	for _, a := range articles {
		if plan.MinID != nil && a.ID <= *plan.MinID {
			continue
		}
		if a.ID > maxID {
			maxID = a.ID
			sawID = true
		}

		published := time.Unix(a.Datetime, 0).UTC()
		article, err := models.NewNewsArticle(a.URL, a.Headline, a.Summary, a.Source, published, models.NewsTypeMacro)
		if err != nil {
			s.log.Warn("skipping malformed macro news article", logger.ErrorField(err))
			continue
		}

		for _, symbol := range relatedSymbols(a.Related, watched) {
			entry, err := models.NewNewsEntry(article, symbol, models.ImportanceUnknown)
			if err != nil {
				s.log.Warn("skipping macro news entry", logger.ErrorField(err))
				continue
			}
			result.News = append(result.News, entry)
		}
	}

	if sawID {
		result.LastFetchedMaxID = &maxID
	}
	return result, nil
}

// relatedSymbols maps an article's comma-separated "related" tickers to the
// watched subset, falling back to the market sentinel when none match.
func relatedSymbols(related string, watched map[string]bool) []string {
	var symbols []string
	for _, raw := range strings.Split(related, ",") {
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
