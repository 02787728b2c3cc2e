package provider

import (
	"context"
	"time"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// Provider identifies an external data vendor tracked by watermark state.
type Provider string

const (
	ProviderFinnhub Provider = "FINNHUB"
	ProviderPolygon Provider = "POLYGON"
	ProviderReddit  Provider = "REDDIT"
)

// Stream is the logical feed within a provider.
type Stream string

const (
	StreamCompany Stream = "COMPANY"
	StreamMacro   Stream = "MACRO"
	StreamSocial  Stream = "SOCIAL"
)

// Scope says whether a stream keeps one cursor globally or one per watched
// symbol.
type Scope string

const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeSymbol Scope = "SYMBOL"
)

// CursorKind tags the cursor shape a stream uses.
type CursorKind int

const (
	// CursorID: a globally ordered integer feed cursor.
	CursorID CursorKind = iota
	// CursorTimestamp: a single timestamp cursor for the whole stream.
	CursorTimestamp
	// CursorSymbolTimestamp: one timestamp cursor per watched symbol.
	CursorSymbolTimestamp
)

// StreamSpec declares the watermark shape of a data source. The watermark
// engine branches on this to build fetch plans and commit cursors.
type StreamSpec struct {
	Provider Provider
	Stream   Stream
	Scope    Scope
	Kind     CursorKind

	// FirstRunLookback is how far back the engine reaches for a symbol that
	// has no stored cursor yet. Ignored when BootstrapByOmission is set.
	FirstRunLookback time.Duration

	// BootstrapByOmission: leave unseen symbols out of the fetch plan entirely
	// so the provider can discover them with its own bootstrap query, instead
	// of synthesizing a default lookback for them.
	BootstrapByOmission bool
}

// Cursor is the tagged union of fetch-plan shapes. Exactly one concrete type
// matches each CursorKind.
type Cursor interface {
	isCursor()
}

// IDCursor plans a fetch from an integer feed cursor. Nil MinID means first
// run; the provider applies its own default lookback.
type IDCursor struct {
	MinID *int64
}

// TimestampCursor plans a fetch from a single stream-wide instant. Nil Since
// means first run.
type TimestampCursor struct {
	Since *time.Time
}

// SymbolCursor plans a fetch with one instant per watched symbol. Symbols
// absent from the map are either unwatched or deliberately omitted for
// provider-side bootstrap.
type SymbolCursor struct {
	Since map[string]time.Time
}

func (IDCursor) isCursor()        {}
func (TimestampCursor) isCursor() {}
func (SymbolCursor) isCursor()    {}

// Record is the minimal view the watermark engine needs of any fetched item.
type Record interface {
	RecordSymbol() string
	RecordTime() time.Time
}

// FetchResult carries everything one incremental fetch produced. Only the
// slice matching the source's record type is populated. LastFetchedMaxID is
// set by ID-cursor sources (and only when the fetch saw at least one ID); it
// is returned here rather than kept as provider instance state.
type FetchResult struct {
	News        []models.NewsEntry
	Prices      []models.PriceTick
	Discussions []models.SocialDiscussion

	LastFetchedMaxID *int64
}

// Records flattens the typed slices into the engine's record view.
func (r FetchResult) Records() []Record {
	out := make([]Record, 0, len(r.News)+len(r.Prices)+len(r.Discussions))
	for _, e := range r.News {
		out = append(out, e)
	}
	for _, p := range r.Prices {
		out = append(out, p)
	}
	for _, d := range r.Discussions {
		out = append(out, d)
	}
	return out
}

// Count returns the number of fetched records.
func (r FetchResult) Count() int {
	return len(r.News) + len(r.Prices) + len(r.Discussions)
}

// DataSource is the incremental-fetch capability every concrete provider
// implements. Implementations are stateless aside from configuration: the
// cursor comes in with each call and progress goes back in the FetchResult.
type DataSource interface {
	// Name is a human-readable identifier for logs.
	Name() string

	// Spec declares the stream/scope/cursor shape of this source.
	Spec() StreamSpec

	// WatchedSymbols is the watchlist this source iterates. Global-scope
	// sources may return nil.
	WatchedSymbols() []string

	// ValidateConnection reports whether the remote API is reachable with the
	// configured credentials. It never returns an error: false covers both
	// unreachable and unauthorized.
	ValidateConnection(ctx context.Context) bool

	// FetchIncremental fetches records newer than the cursor. Malformed
	// individual records are skipped and logged; structural response errors
	// are returned as *ContractError.
	FetchIncremental(ctx context.Context, cursor Cursor) (FetchResult, error)
}
