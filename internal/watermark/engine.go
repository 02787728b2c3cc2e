package watermark

import (
	"context"
	"fmt"
	"time"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

// DefaultSkewAllowance bounds how far a clamped future timestamp may still
// advance a watermark past the current instant. Kept configurable; the value
// is a grace period for minor provider clock skew.
const DefaultSkewAllowance = 60 * time.Second

// Store is the persisted watermark keyspace, one monotonic register per
// (provider, stream, scope, symbol) key. The global scope uses an empty
// symbol. Timestamp writes only ever advance the stored value; ID writes are
// verbatim.
type Store interface {
	GetCursorTimestamp(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, symbol string) (*time.Time, error)
	SetCursorTimestamp(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, symbol string, cursor time.Time) error
	GetCursorID(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope) (*int64, error)
	SetCursorID(ctx context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, cursor int64) error
}

// Engine computes fetch plans from stored watermarks and commits observed
// progress back after each fetch. It assumes a single writer per key per
// ingestion cycle; serialization across cycles is the scheduler's job.
type Engine struct {
	store         Store
	log           *logger.Logger
	skewAllowance time.Duration
	now           func() time.Time
}

// NewEngine creates a watermark engine. A non-positive skewAllowance falls
// back to DefaultSkewAllowance.
func NewEngine(store Store, skewAllowance time.Duration, log *logger.Logger) *Engine {
	if skewAllowance <= 0 {
		skewAllowance = DefaultSkewAllowance
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		store:         store,
		log:           log,
		skewAllowance: skewAllowance,
		now:           time.Now,
	}
}

// BuildPlan computes the cursor for the source's next incremental fetch,
// branching on the source's declared cursor shape.
func (e *Engine) BuildPlan(ctx context.Context, src provider.DataSource) (provider.Cursor, error) {
	spec := src.Spec()

	switch spec.Kind {
	case provider.CursorID:
		id, err := e.store.GetCursorID(ctx, spec.Provider, spec.Stream, spec.Scope)
		if err != nil {
			return nil, fmt.Errorf("failed to read id cursor for %s/%s: %w", spec.Provider, spec.Stream, err)
		}
		return provider.IDCursor{MinID: id}, nil

	case provider.CursorTimestamp:
		ts, err := e.store.GetCursorTimestamp(ctx, spec.Provider, spec.Stream, spec.Scope, "")
		if err != nil {
			return nil, fmt.Errorf("failed to read timestamp cursor for %s/%s: %w", spec.Provider, spec.Stream, err)
		}
		return provider.TimestampCursor{Since: ts}, nil

	case provider.CursorSymbolTimestamp:
		watched := src.WatchedSymbols()
		since := make(map[string]time.Time, len(watched))
		for _, symbol := range watched {
			ts, err := e.store.GetCursorTimestamp(ctx, spec.Provider, spec.Stream, spec.Scope, symbol)
			if err != nil {
				return nil, fmt.Errorf("failed to read timestamp cursor for %s/%s symbol %s: %w", spec.Provider, spec.Stream, symbol, err)
			}
			if ts != nil {
				since[symbol] = *ts
				continue
			}
			// First run for this symbol. Sources that bootstrap by omission
			// discover new symbols themselves, so the symbol stays out of the
			// plan instead of getting a synthetic default.
			if spec.BootstrapByOmission {
				continue
			}
			since[symbol] = e.now().Add(-spec.FirstRunLookback)
		}
		return provider.SymbolCursor{Since: since}, nil

	default:
		return nil, fmt.Errorf("unknown cursor kind %d for source %s", spec.Kind, src.Name())
	}
}

// CommitUpdates records the maximum observed progress from a fetch. For
// timestamp streams the candidate per key is the max record timestamp,
// clamped when it lies in the future; stored values never decrease. For ID
// streams the source's self-reported max ID is written verbatim, and a fetch
// that saw no IDs leaves the cursor untouched.
func (e *Engine) CommitUpdates(ctx context.Context, src provider.DataSource, result provider.FetchResult) error {
	spec := src.Spec()

	if spec.Kind == provider.CursorID {
		if result.LastFetchedMaxID == nil {
			return nil
		}
		if err := e.store.SetCursorID(ctx, spec.Provider, spec.Stream, spec.Scope, *result.LastFetchedMaxID); err != nil {
			return fmt.Errorf("failed to write id cursor for %s/%s: %w", spec.Provider, spec.Stream, err)
		}
		return nil
	}

	maxSeen := make(map[string]time.Time)
	for _, rec := range result.Records() {
		key := ""
		if spec.Scope == provider.ScopeSymbol {
			key = rec.RecordSymbol()
		}
		if ts := rec.RecordTime(); ts.After(maxSeen[key]) {
			maxSeen[key] = ts
		}
	}

	now := e.now()
	for symbol, candidate := range maxSeen {
		if candidate.After(now) {
			clamped := now.Add(e.skewAllowance)
			e.log.Warn("clamped future watermark",
				logger.StringField("provider", string(spec.Provider)),
				logger.StringField("stream", string(spec.Stream)),
				logger.StringField("symbol", symbol),
				logger.TimeField("raw", candidate),
				logger.TimeField("clamped", clamped))
			candidate = clamped
		}
		if err := e.store.SetCursorTimestamp(ctx, spec.Provider, spec.Stream, spec.Scope, symbol, candidate); err != nil {
			return fmt.Errorf("failed to write timestamp cursor for %s/%s symbol %q: %w", spec.Provider, spec.Stream, symbol, err)
		}
	}
	return nil
}
