package finnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

const sourceName = "finnhub"

// Client wraps the Finnhub REST API. The token rides as a query parameter on
// every request, per their auth scheme.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	policy  provider.RetryPolicy
	log     *logger.Logger
}

// NewClient builds a Finnhub client with the shared retry policy.
func NewClient(apiKey, baseURL string, policy provider.RetryPolicy, log *logger.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{},
		policy:  policy,
		log:     log,
	}
}

// get performs an authenticated GET against a Finnhub path and returns the
// raw response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("token", c.apiKey)
	return provider.GetJSON(ctx, c.http, c.log, c.policy, c.baseURL+path+"?"+query.Encode(), nil)
}

// validate checks that the API answers a trivial quote request with the
// configured credentials.
func (c *Client) validate(ctx context.Context) bool {
	body, err := c.get(ctx, "/quote", url.Values{"symbol": {"AAPL"}})
	if err != nil {
		c.log.Warn("finnhub connection check failed", logger.ErrorField(err))
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		c.log.Warn("finnhub connection check returned malformed body", logger.ErrorField(err))
		return false
	}
	return true
}
