package watermark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

type tsKey struct {
	p      provider.Provider
	s      provider.Stream
	scope  provider.Scope
	symbol string
}

type idKey struct {
	p     provider.Provider
	s     provider.Stream
	scope provider.Scope
}

// fakeStore is an in-memory Store with verbatim writes; advance-only
// semantics belong to the real store and are tested there.
type fakeStore struct {
	timestamps map[tsKey]time.Time
	ids        map[idKey]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		timestamps: make(map[tsKey]time.Time),
		ids:        make(map[idKey]int64),
	}
}

func (f *fakeStore) GetCursorTimestamp(_ context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, symbol string) (*time.Time, error) {
	if ts, ok := f.timestamps[tsKey{p, s, scope, symbol}]; ok {
		return &ts, nil
	}
	return nil, nil
}

func (f *fakeStore) SetCursorTimestamp(_ context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, symbol string, cursor time.Time) error {
	f.timestamps[tsKey{p, s, scope, symbol}] = cursor
	return nil
}

func (f *fakeStore) GetCursorID(_ context.Context, p provider.Provider, s provider.Stream, scope provider.Scope) (*int64, error) {
	if id, ok := f.ids[idKey{p, s, scope}]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeStore) SetCursorID(_ context.Context, p provider.Provider, s provider.Stream, scope provider.Scope, cursor int64) error {
	f.ids[idKey{p, s, scope}] = cursor
	return nil
}

// fakeSource is a DataSource stub with a fixed spec and watchlist.
type fakeSource struct {
	spec    provider.StreamSpec
	watched []string
}

func (f *fakeSource) Name() string                            { return "fake" }
func (f *fakeSource) Spec() provider.StreamSpec               { return f.spec }
func (f *fakeSource) WatchedSymbols() []string                { return f.watched }
func (f *fakeSource) ValidateConnection(context.Context) bool { return true }
func (f *fakeSource) FetchIncremental(context.Context, provider.Cursor) (provider.FetchResult, error) {
	return provider.FetchResult{}, nil
}

func newsAt(t *testing.T, symbol string, published time.Time) models.NewsEntry {
	t.Helper()
	article, err := models.NewNewsArticle("https://example.com/"+symbol+published.Format("150405"),
		"headline", "", "wire", published, models.NewsTypeCompanySpecific)
	require.NoError(t, err)
	entry, err := models.NewNewsEntry(article, symbol, models.ImportanceUnknown)
	require.NoError(t, err)
	return entry
}

func TestBuildPlan(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	newEngine := func(store Store) *Engine {
		e := NewEngine(store, 0, logger.NewNop())
		e.now = func() time.Time { return now }
		return e
	}

	t.Run("id stream passes the stored cursor through", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{spec: provider.StreamSpec{
			Provider: provider.ProviderFinnhub,
			Stream:   provider.StreamMacro,
			Scope:    provider.ScopeGlobal,
			Kind:     provider.CursorID,
		}}

		plan, err := engine.BuildPlan(ctx, src)
		require.NoError(t, err)
		cursor, ok := plan.(provider.IDCursor)
		require.True(t, ok)
		assert.Nil(t, cursor.MinID)

		require.NoError(t, store.SetCursorID(ctx, provider.ProviderFinnhub, provider.StreamMacro, provider.ScopeGlobal, 42))
		plan, err = engine.BuildPlan(ctx, src)
		require.NoError(t, err)
		cursor = plan.(provider.IDCursor)
		require.NotNil(t, cursor.MinID)
		assert.Equal(t, int64(42), *cursor.MinID)
	})

	t.Run("global timestamp stream returns nil on first run", func(t *testing.T) {
		engine := newEngine(newFakeStore())
		src := &fakeSource{spec: provider.StreamSpec{
			Provider: provider.ProviderPolygon,
			Stream:   provider.StreamMacro,
			Scope:    provider.ScopeGlobal,
			Kind:     provider.CursorTimestamp,
		}}

		plan, err := engine.BuildPlan(ctx, src)
		require.NoError(t, err)
		cursor, ok := plan.(provider.TimestampCursor)
		require.True(t, ok)
		assert.Nil(t, cursor.Since)
	})

	t.Run("per-symbol stream defaults unseen symbols to the lookback", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{
			spec: provider.StreamSpec{
				Provider:         provider.ProviderFinnhub,
				Stream:           provider.StreamCompany,
				Scope:            provider.ScopeSymbol,
				Kind:             provider.CursorSymbolTimestamp,
				FirstRunLookback: 24 * time.Hour,
			},
			watched: []string{"AAPL", "MSFT"},
		}

		stored := now.Add(-time.Hour)
		require.NoError(t, store.SetCursorTimestamp(ctx, provider.ProviderFinnhub, provider.StreamCompany, provider.ScopeSymbol, "AAPL", stored))

		plan, err := engine.BuildPlan(ctx, src)
		require.NoError(t, err)
		cursor, ok := plan.(provider.SymbolCursor)
		require.True(t, ok)

		assert.True(t, stored.Equal(cursor.Since["AAPL"]))
		assert.True(t, now.Add(-24*time.Hour).Equal(cursor.Since["MSFT"]))
	})

	t.Run("bootstrap-by-omission leaves unseen symbols out of the plan", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{
			spec: provider.StreamSpec{
				Provider:            provider.ProviderReddit,
				Stream:              provider.StreamSocial,
				Scope:               provider.ScopeSymbol,
				Kind:                provider.CursorSymbolTimestamp,
				BootstrapByOmission: true,
			},
			watched: []string{"AAPL", "NVDA"},
		}

		seen := now.Add(-30 * time.Minute)
		require.NoError(t, store.SetCursorTimestamp(ctx, provider.ProviderReddit, provider.StreamSocial, provider.ScopeSymbol, "AAPL", seen))

		plan, err := engine.BuildPlan(ctx, src)
		require.NoError(t, err)
		cursor := plan.(provider.SymbolCursor)

		assert.Len(t, cursor.Since, 1)
		assert.True(t, seen.Equal(cursor.Since["AAPL"]))
		_, present := cursor.Since["NVDA"]
		assert.False(t, present)
	})
}

func TestCommitUpdates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	newEngine := func(store Store) *Engine {
		e := NewEngine(store, DefaultSkewAllowance, logger.NewNop())
		e.now = func() time.Time { return now }
		return e
	}

	t.Run("id stream writes the reported max verbatim", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{spec: provider.StreamSpec{
			Provider: provider.ProviderFinnhub,
			Stream:   provider.StreamMacro,
			Scope:    provider.ScopeGlobal,
			Kind:     provider.CursorID,
		}}

		maxID := int64(7_000_123)
		require.NoError(t, engine.CommitUpdates(ctx, src, provider.FetchResult{LastFetchedMaxID: &maxID}))

		got, err := store.GetCursorID(ctx, provider.ProviderFinnhub, provider.StreamMacro, provider.ScopeGlobal)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, maxID, *got)
	})

	t.Run("id stream with no reported max is a no-op", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{spec: provider.StreamSpec{
			Provider: provider.ProviderFinnhub,
			Stream:   provider.StreamMacro,
			Scope:    provider.ScopeGlobal,
			Kind:     provider.CursorID,
		}}

		require.NoError(t, engine.CommitUpdates(ctx, src, provider.FetchResult{}))

		got, err := store.GetCursorID(ctx, provider.ProviderFinnhub, provider.StreamMacro, provider.ScopeGlobal)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("per-symbol stream commits the max per symbol", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{
			spec: provider.StreamSpec{
				Provider: provider.ProviderFinnhub,
				Stream:   provider.StreamCompany,
				Scope:    provider.ScopeSymbol,
				Kind:     provider.CursorSymbolTimestamp,
			},
			watched: []string{"AAPL", "MSFT"},
		}

		result := provider.FetchResult{News: []models.NewsEntry{
			newsAt(t, "AAPL", now.Add(-3*time.Hour)),
			newsAt(t, "AAPL", now.Add(-time.Hour)),
			newsAt(t, "MSFT", now.Add(-2*time.Hour)),
		}}
		require.NoError(t, engine.CommitUpdates(ctx, src, result))

		aapl, err := store.GetCursorTimestamp(ctx, provider.ProviderFinnhub, provider.StreamCompany, provider.ScopeSymbol, "AAPL")
		require.NoError(t, err)
		require.NotNil(t, aapl)
		assert.True(t, now.Add(-time.Hour).Equal(*aapl))

		msft, err := store.GetCursorTimestamp(ctx, provider.ProviderFinnhub, provider.StreamCompany, provider.ScopeSymbol, "MSFT")
		require.NoError(t, err)
		require.NotNil(t, msft)
		assert.True(t, now.Add(-2*time.Hour).Equal(*msft))
	})

	t.Run("global stream commits one cursor under the empty symbol", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{spec: provider.StreamSpec{
			Provider: provider.ProviderPolygon,
			Stream:   provider.StreamMacro,
			Scope:    provider.ScopeGlobal,
			Kind:     provider.CursorTimestamp,
		}}

		result := provider.FetchResult{News: []models.NewsEntry{
			newsAt(t, "AAPL", now.Add(-2*time.Hour)),
			newsAt(t, "MSFT", now.Add(-time.Hour)),
		}}
		require.NoError(t, engine.CommitUpdates(ctx, src, result))

		got, err := store.GetCursorTimestamp(ctx, provider.ProviderPolygon, provider.StreamMacro, provider.ScopeGlobal, "")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, now.Add(-time.Hour).Equal(*got))
	})

	t.Run("future timestamps clamp to now plus the skew allowance", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{spec: provider.StreamSpec{
			Provider: provider.ProviderPolygon,
			Stream:   provider.StreamMacro,
			Scope:    provider.ScopeGlobal,
			Kind:     provider.CursorTimestamp,
		}}

		result := provider.FetchResult{News: []models.NewsEntry{
			newsAt(t, "AAPL", now.Add(48*time.Hour)),
		}}
		require.NoError(t, engine.CommitUpdates(ctx, src, result))

		got, err := store.GetCursorTimestamp(ctx, provider.ProviderPolygon, provider.StreamMacro, provider.ScopeGlobal, "")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, now.Add(DefaultSkewAllowance).Equal(*got))
	})

	t.Run("empty fetch leaves every cursor untouched", func(t *testing.T) {
		store := newFakeStore()
		engine := newEngine(store)
		src := &fakeSource{
			spec: provider.StreamSpec{
				Provider: provider.ProviderFinnhub,
				Stream:   provider.StreamCompany,
				Scope:    provider.ScopeSymbol,
				Kind:     provider.CursorSymbolTimestamp,
			},
			watched: []string{"AAPL"},
		}

		require.NoError(t, engine.CommitUpdates(ctx, src, provider.FetchResult{}))
		assert.Empty(t, store.timestamps)
	})
}
