package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

const (
	sourceName = "reddit"

	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultAPIBase  = "https://oauth.reddit.com"
)

// Client wraps the Reddit OAuth API using the application-only
// client_credentials grant. The access token is cached until shortly before
// it expires.
type Client struct {
	clientID     string
	clientSecret string
	userAgent    string
	tokenURL     string
	apiBase      string
	http         *http.Client
	policy       provider.RetryPolicy
	log          *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a Reddit client. The user agent is mandatory; Reddit
// throttles unidentified clients aggressively.
func NewClient(clientID, clientSecret, userAgent string, policy provider.RetryPolicy, log *logger.Logger) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		tokenURL:     defaultTokenURL,
		apiBase:      defaultAPIBase,
		http:         &http.Client{},
		policy:       policy,
		log:          log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns a valid cached token or fetches a fresh one.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, form)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &provider.RetryableError{Err: fmt.Errorf("token request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", provider.NewContractError(sourceName, "token response missing access_token")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	header := http.Header{
		"Authorization": {"Bearer " + token},
		"User-Agent":    {c.userAgent},
	}
	rawURL := c.apiBase + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	return provider.GetJSON(ctx, c.http, c.log, c.policy, rawURL, header)
}

func (c *Client) validate(ctx context.Context) bool {
	if _, err := c.accessToken(ctx); err != nil {
		c.log.Warn("reddit connection check failed", logger.ErrorField(err))
		return false
	}
	return true
}
