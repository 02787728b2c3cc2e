package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerwatch/ingest-service/internal/models"
)

func makeEntry(t *testing.T, url, symbol string, published time.Time, importance models.Importance) models.NewsEntry {
	t.Helper()
	article, err := models.NewNewsArticle(url, "Headline for "+url, "body", "newswire", published, models.NewsTypeCompanySpecific)
	require.NoError(t, err)
	entry, err := models.NewNewsEntry(article, symbol, importance)
	require.NoError(t, err)
	return entry
}

func TestNewsStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	published := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("StoreNewsItems is idempotent across re-ingest", func(t *testing.T) {
		testDB.TruncateAll(t)

		entries := []models.NewsEntry{
			makeEntry(t, "https://example.com/a", "AAPL", published, models.ImportanceUnknown),
			makeEntry(t, "https://example.com/b", "AAPL", published, models.ImportanceUnknown),
		}

		inserted, err := testDB.StoreNewsItems(ctx, entries)
		require.NoError(t, err)
		assert.Equal(t, 2, inserted)

		// An overlap-window refetch delivers the same records again.
		inserted, err = testDB.StoreNewsItems(ctx, entries)
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)

		stored, err := testDB.GetNewsSince(ctx, time.Time{})
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("one article links to many symbols", func(t *testing.T) {
		testDB.TruncateAll(t)

		url := "https://example.com/shared"
		entries := []models.NewsEntry{
			makeEntry(t, url, "AAPL", published, models.ImportanceUnknown),
			makeEntry(t, url, "MSFT", published, models.ImportanceUnknown),
		}

		inserted, err := testDB.StoreNewsItems(ctx, entries)
		require.NoError(t, err)
		assert.Equal(t, 2, inserted)

		stored, err := testDB.GetNewsSince(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, stored[0].Article.Headline, stored[1].Article.Headline)

		var articleCount int
		err = testDB.GetRawConn().QueryRow("SELECT COUNT(*) FROM news_items").Scan(&articleCount)
		require.NoError(t, err)
		assert.Equal(t, 1, articleCount)
	})

	t.Run("re-link never downgrades an existing verdict", func(t *testing.T) {
		testDB.TruncateAll(t)

		url := "https://example.com/classified"
		first := makeEntry(t, url, "AAPL", published, models.ImportanceImportant)
		inserted, err := testDB.StoreNewsItems(ctx, []models.NewsEntry{first})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)

		// Refetched copy comes back unclassified; the insert is ignored.
		again := makeEntry(t, url, "AAPL", published, models.ImportanceUnknown)
		inserted, err = testDB.StoreNewsItems(ctx, []models.NewsEntry{again})
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)

		stored, err := testDB.GetNewsSince(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, models.ImportanceImportant, stored[0].Importance)
	})

	t.Run("tri-state importance survives the round trip", func(t *testing.T) {
		testDB.TruncateAll(t)

		entries := []models.NewsEntry{
			makeEntry(t, "https://example.com/imp", "AAPL", published, models.ImportanceImportant),
			makeEntry(t, "https://example.com/not", "MSFT", published, models.ImportanceNotImportant),
			makeEntry(t, "https://example.com/unk", "GOOGL", published, models.ImportanceUnknown),
		}
		_, err := testDB.StoreNewsItems(ctx, entries)
		require.NoError(t, err)

		stored, err := testDB.GetNewsSince(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, stored, 3)

		bySymbol := make(map[string]models.Importance)
		for _, e := range stored {
			bySymbol[e.Symbol] = e.Importance
		}
		assert.Equal(t, models.ImportanceImportant, bySymbol["AAPL"])
		assert.Equal(t, models.ImportanceNotImportant, bySymbol["MSFT"])
		assert.Equal(t, models.ImportanceUnknown, bySymbol["GOOGL"])
	})

	t.Run("market sentinel entries store like any ticker", func(t *testing.T) {
		testDB.TruncateAll(t)

		article, err := models.NewNewsArticle("https://example.com/macro", "Fed holds rates", "", "newswire", published, models.NewsTypeMacro)
		require.NoError(t, err)
		entry, err := models.NewNewsEntry(article, models.MarketSymbol, models.ImportanceUnknown)
		require.NoError(t, err)

		inserted, err := testDB.StoreNewsItems(ctx, []models.NewsEntry{entry})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)

		stored, err := testDB.GetNewsSince(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, models.MarketSymbol, stored[0].Symbol)
		assert.Equal(t, models.NewsTypeMacro, stored[0].Article.Type)
	})

	t.Run("GetNewsSince and GetNewsBefore partition at the cutoff", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.StoreNewsItems(ctx, []models.NewsEntry{
			makeEntry(t, "https://example.com/p1", "AAPL", published, models.ImportanceUnknown),
		})
		require.NoError(t, err)

		cutoff := time.Now().Add(time.Second)
		before, err := testDB.GetNewsBefore(ctx, cutoff)
		require.NoError(t, err)
		after, err := testDB.GetNewsSince(ctx, cutoff)
		require.NoError(t, err)

		assert.Len(t, before, 1)
		assert.Len(t, after, 0)
	})
}
