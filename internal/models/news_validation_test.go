package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var published = time.Date(2026, 3, 10, 12, 0, 0, 123456789, time.UTC)

func TestNewNewsArticle(t *testing.T) {
	t.Run("accepts a valid article and normalizes the timestamp", func(t *testing.T) {
		a, err := NewNewsArticle("https://example.com/x", " Big headline ", " body ", " wire ", published, NewsTypeMacro)
		require.NoError(t, err)
		assert.Equal(t, "Big headline", a.Headline)
		assert.Equal(t, "wire", a.Source)
		assert.Equal(t, published.Truncate(time.Second), a.PublishedAt)
	})

	t.Run("rejects non-http urls", func(t *testing.T) {
		for _, u := range []string{"", "ftp://example.com/x", "example.com/x", "https://"} {
			_, err := NewNewsArticle(u, "h", "", "s", published, NewsTypeMacro)
			assert.Error(t, err, u)
		}
	})

	t.Run("rejects empty headline and source", func(t *testing.T) {
		_, err := NewNewsArticle("https://example.com/x", "  ", "", "s", published, NewsTypeMacro)
		assert.Error(t, err)
		_, err = NewNewsArticle("https://example.com/x", "h", "", "  ", published, NewsTypeMacro)
		assert.Error(t, err)
	})

	t.Run("rejects zero timestamp and bad type", func(t *testing.T) {
		_, err := NewNewsArticle("https://example.com/x", "h", "", "s", time.Time{}, NewsTypeMacro)
		assert.Error(t, err)
		_, err = NewNewsArticle("https://example.com/x", "h", "", "s", published, NewsType("OTHER"))
		assert.Error(t, err)
	})
}

func TestNewNewsEntry(t *testing.T) {
	article, err := NewNewsArticle("https://example.com/x", "h", "", "s", published, NewsTypeMacro)
	require.NoError(t, err)

	t.Run("accepts tickers and the market sentinel", func(t *testing.T) {
		for _, sym := range []string{"AAPL", "a", "market"} {
			entry, err := NewNewsEntry(article, sym, ImportanceUnknown)
			require.NoError(t, err, sym)
			assert.NotEmpty(t, entry.Symbol)
		}
	})

	t.Run("rejects malformed symbols", func(t *testing.T) {
		for _, sym := range []string{"", "TOOLONG", "BRK.B", "ab1"} {
			_, err := NewNewsEntry(article, sym, ImportanceUnknown)
			assert.Error(t, err, sym)
		}
	})

	t.Run("rejects unknown importance values", func(t *testing.T) {
		_, err := NewNewsEntry(article, "AAPL", Importance("MAYBE"))
		assert.Error(t, err)
	})

	t.Run("record view exposes symbol and published time", func(t *testing.T) {
		entry, err := NewNewsEntry(article, "AAPL", ImportanceImportant)
		require.NoError(t, err)
		assert.Equal(t, "AAPL", entry.RecordSymbol())
		assert.True(t, entry.RecordTime().Equal(article.PublishedAt))
	})
}
