package polygon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

const sourceName = "polygon"

// Client wraps the Polygon REST API, authenticating with a bearer token.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	policy  provider.RetryPolicy
	log     *logger.Logger
}

// NewClient builds a Polygon client with the shared retry policy.
func NewClient(apiKey, baseURL string, policy provider.RetryPolicy, log *logger.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{},
		policy:  policy,
		log:     log,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	header := http.Header{"Authorization": {"Bearer " + c.apiKey}}
	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	return provider.GetJSON(ctx, c.http, c.log, c.policy, rawURL, header)
}

func (c *Client) validate(ctx context.Context) bool {
	body, err := c.get(ctx, "/v2/reference/news", url.Values{"limit": {"1"}})
	if err != nil {
		c.log.Warn("polygon connection check failed", logger.ErrorField(err))
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		c.log.Warn("polygon connection check returned malformed body", logger.ErrorField(err))
		return false
	}
	return true
}
