package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

// US equity market hours, evaluated in exchange-local time.
var easternTime = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// finnhubQuote is the /quote wire shape. Prices decode through json.Number so
// the provider's decimal precision survives intact.
type finnhubQuote struct {
	Current   json.Number `json:"c"`
	Timestamp int64       `json:"t"`
}

// PricesSource polls the current quote for every watched symbol. Quotes are
// snapshots, not a replayable feed, so the whole stream shares one timestamp
// cursor and each cycle stores whatever the exchange reports now.
type PricesSource struct {
	client    *Client
	watchlist []string
	log       *logger.Logger
}

// NewPricesSource builds the quote polling source.
func NewPricesSource(client *Client, watchlist []string, log *logger.Logger) *PricesSource {
	return &PricesSource{client: client, watchlist: watchlist, log: log}
}

func (s *PricesSource) Name() string { return "finnhub-prices" }

func (s *PricesSource) Spec() provider.StreamSpec {
	return provider.StreamSpec{
		Provider: provider.ProviderFinnhub,
		Stream:   provider.StreamCompany,
		Scope:    provider.ScopeGlobal,
		Kind:     provider.CursorTimestamp,
	}
}

func (s *PricesSource) WatchedSymbols() []string { return s.watchlist }

func (s *PricesSource) ValidateConnection(ctx context.Context) bool {
	return s.client.validate(ctx)
}

// FetchIncremental polls one quote per watched symbol. Symbols with no quote
// data (zero price) are skipped; transient per-symbol failures are logged and
// skipped so the rest of the watchlist still reports.
func (s *PricesSource) FetchIncremental(ctx context.Context, cursor provider.Cursor) (provider.FetchResult, error) {
	if _, ok := cursor.(provider.TimestampCursor); !ok {
		return provider.FetchResult{}, fmt.Errorf("finnhub prices expects a timestamp cursor, got %T", cursor)
	}

	var result provider.FetchResult
	var lastErr error
	succeeded := false

	for _, symbol := range s.watchlist {
		tick, ok, err := s.fetchQuote(ctx, symbol)
		if err != nil {
			if provider.IsContractError(err) {
				return provider.FetchResult{}, err
			}
			s.log.Warn("quote fetch failed for symbol",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			lastErr = err
			continue
		}
		succeeded = true
		if ok {
			result.Prices = append(result.Prices, tick)
		}
	}

	if !succeeded && lastErr != nil {
		return provider.FetchResult{}, lastErr
	}
	return result, nil
}

func (s *PricesSource) fetchQuote(ctx context.Context, symbol string) (models.PriceTick, bool, error) {
	body, err := s.client.get(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return models.PriceTick{}, false, err
	}

	var quote finnhubQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return models.PriceTick{}, false, provider.NewContractError(sourceName, "quote for %s: malformed body: %v", symbol, err)
	}

	// Finnhub reports zeroes for symbols it has no data on.
	if quote.Timestamp == 0 || quote.Current.String() == "" || quote.Current.String() == "0" {
		s.log.Debug("no quote data for symbol", logger.StringField("symbol", symbol))
		return models.PriceTick{}, false, nil
	}

	price, err := decimal.NewFromString(quote.Current.String())
	if err != nil {
		return models.PriceTick{}, false, provider.NewContractError(sourceName, "quote for %s: bad price %q", symbol, quote.Current.String())
	}

	observed := time.Unix(quote.Timestamp, 0).UTC()
	tick, err := models.NewPriceTick(symbol, observed, price, nil, ClassifySession(observed))
	if err != nil {
		s.log.Warn("skipping invalid quote", logger.StringField("symbol", symbol), logger.ErrorField(err))
		return models.PriceTick{}, false, nil
	}
	return tick, true, nil
}

// ClassifySession maps an instant to the US equity trading session it falls
// in: pre-market 04:00-09:30, regular 09:30-16:00, post-market 16:00-20:00
// Eastern, closed otherwise and on weekends.
func ClassifySession(t time.Time) models.Session {
	local := t.In(easternTime)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return models.SessionClosed
	}

	minutes := local.Hour()*60 + local.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return models.SessionPre
	case minutes >= 9*60+30 && minutes < 16*60:
		return models.SessionReg
	case minutes >= 16*60 && minutes < 20*60:
		return models.SessionPost
	default:
		return models.SessionClosed
	}
}
