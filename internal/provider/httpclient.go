package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tickerwatch/ingest-service/internal/logger"
)

// RetryPolicy controls transient-failure retries for provider HTTP calls.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	Jitter          float64
	Timeout         time.Duration
}

// DefaultRetryPolicy matches the retry defaults applied to all data providers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2.0,
		Jitter:          0.2,
		Timeout:         10 * time.Second,
	}
}

// GetJSON performs a GET with retries per the policy and returns the response
// body. Timeouts, rate limits and 5xx responses are retried with exponential
// backoff and jitter; other 4xx responses fail immediately. When the retry
// budget is exhausted the returned error unwraps to *RetryableError.
func GetJSON(ctx context.Context, client *http.Client, log *logger.Logger, policy RetryPolicy, rawURL string, header http.Header) ([]byte, error) {
	var body []byte

	operation := func() error {
		reqCtx := ctx
		if policy.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &RetryableError{Err: fmt.Errorf("status %d from %s", resp.StatusCode, rawURL)}
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("status %d from %s", resp.StatusCode, rawURL))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("failed to read response body: %w", err)}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.Multiplier = policy.Multiplier
	b.RandomizationFactor = policy.Jitter
	b.MaxElapsedTime = 0

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	notify := func(err error, wait time.Duration) {
		if log != nil {
			log.Debug("retrying provider request",
				logger.StringField("url", rawURL),
				logger.DurationField("wait", wait),
				logger.ErrorField(err))
		}
	}

	err := backoff.RetryNotify(operation,
		backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(attempts-1)),
		notify)
	if err != nil {
		return nil, err
	}
	return body, nil
}
