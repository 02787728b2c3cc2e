package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

func testClient(t *testing.T, api http.Handler) (*Client, *int) {
	t.Helper()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600}`)
	})
	mux.Handle("/", api)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	policy := provider.RetryPolicy{MaxAttempts: 1, InitialInterval: time.Millisecond, Multiplier: 1, Timeout: time.Second}
	client := NewClient("client-id", "client-secret", "tickerwatch-test/1.0", policy, logger.NewNop())
	client.tokenURL = srv.URL + "/api/v1/access_token"
	client.apiBase = srv.URL
	return client, &tokenCalls
}

func postJSON(id, title string, createdUTC int64) string {
	return fmt.Sprintf(`{
		"kind": "t3",
		"data": {
			"id": %q,
			"title": %q,
			"selftext": "body",
			"permalink": "/r/stocks/comments/%s/",
			"subreddit": "stocks",
			"created_utc": %d
		}
	}`, id, title, id, createdUTC)
}

func TestAccessTokenCaching(t *testing.T) {
	client, tokenCalls := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"children":[]}}`)
	}))

	ctx := context.Background()
	_, err := client.get(ctx, "/r/stocks/search", nil)
	require.NoError(t, err)
	_, err = client.get(ctx, "/r/stocks/search", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, *tokenCalls, "second request should reuse the cached token")
}

func TestSocialFetch(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("seen symbol searches the last hour and filters to the window", func(t *testing.T) {
		watermark := now.Add(-10 * time.Minute)

		client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/r/stocks/search", r.URL.Path)
			assert.Equal(t, "AAPL", r.URL.Query().Get("q"))
			assert.Equal(t, "hour", r.URL.Query().Get("t"))
			assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))

			fmt.Fprintf(w, `{"data":{"children":[%s,%s]}}`,
				postJSON("fresh", "AAPL up", now.Add(-5*time.Minute).Unix()),
				postJSON("stale", "AAPL old", now.Add(-time.Hour).Unix()))
		}))

		src := NewSocialSource(client, []string{"AAPL"}, []string{"stocks"}, 2*time.Minute, logger.NewNop())
		result, err := src.FetchIncremental(ctx, provider.SymbolCursor{Since: map[string]time.Time{"AAPL": watermark}})
		require.NoError(t, err)

		require.Len(t, result.Discussions, 1)
		d := result.Discussions[0]
		assert.Equal(t, "reddit", d.Source)
		assert.Equal(t, "t3_fresh", d.SourceID)
		assert.Equal(t, "AAPL", d.Symbol)
		assert.Equal(t, "stocks", d.Community)
		assert.Equal(t, "https://www.reddit.com/r/stocks/comments/fresh/", d.URL)
	})

	t.Run("unseen symbol bootstraps with a week-wide unfiltered search", func(t *testing.T) {
		client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "week", r.URL.Query().Get("t"))
			fmt.Fprintf(w, `{"data":{"children":[%s]}}`,
				postJSON("old", "NVDA thread", now.Add(-5*24*time.Hour).Unix()))
		}))

		src := NewSocialSource(client, []string{"NVDA"}, []string{"stocks"}, 2*time.Minute, logger.NewNop())
		result, err := src.FetchIncremental(ctx, provider.SymbolCursor{Since: map[string]time.Time{}})
		require.NoError(t, err)
		assert.Len(t, result.Discussions, 1)
	})

	t.Run("non-post listing entries are skipped", func(t *testing.T) {
		client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"data":{"children":[{"kind":"t1","data":{"id":"c1","created_utc":%d}},%s]}}`,
				now.Unix(), postJSON("p1", "MSFT post", now.Unix()))
		}))

		src := NewSocialSource(client, []string{"MSFT"}, []string{"stocks"}, 2*time.Minute, logger.NewNop())
		result, err := src.FetchIncremental(ctx, provider.SymbolCursor{Since: map[string]time.Time{}})
		require.NoError(t, err)

		require.Len(t, result.Discussions, 1)
		assert.Equal(t, "t3_p1", result.Discussions[0].SourceID)
	})

	t.Run("wrong cursor shape is rejected", func(t *testing.T) {
		client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		src := NewSocialSource(client, []string{"AAPL"}, []string{"stocks"}, 2*time.Minute, logger.NewNop())

		_, err := src.FetchIncremental(ctx, provider.TimestampCursor{})
		require.Error(t, err)
	})
}
