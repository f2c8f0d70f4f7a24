// Package fetch provides a resilient HTTP GET client for the public price
// APIs: bounded per-attempt timeouts, exponential backoff on transient
// failures, and Retry-After handling on 429 responses.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultTimeout         = 5 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryAfterDelay = 5 * time.Second
	DefaultUserAgent       = "Mozilla/5.0"
)

// Client performs GET requests with retry, backoff and rate-limit handling.
// A zero status with a nil body means the source is unavailable right now;
// callers must not treat that as fatal.
type Client struct {
	http       *http.Client
	maxRetries int
	retryAfter time.Duration
	userAgent  string
	limiter    *rate.Limiter
	log        *zap.Logger

	// sleep is swapped out in tests to record backoff timing.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures Client.
type Option func(*Client)

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRateLimit caps outgoing requests across all callers of this client.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a fetch client.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryAfter: DefaultRetryAfterDelay,
		userAgent:  DefaultUserAgent,
		log:        zap.NewNop(),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CloseIdleConnections drops any keep-alive connections held by the
// underlying transport. The monitoring loop calls this between sessions so
// a restart begins with fresh connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// GetJSON issues a GET request and returns the status code with the raw
// JSON body. The body is nil when the response did not parse as JSON.
// After exhausting all attempts it returns (0, nil, err); the error wraps
// the last failure and means "source unavailable now", never a fatal state.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values) (int, json.RawMessage, error) {
	reqURL := rawURL
	if len(params) > 0 {
		reqURL = rawURL + "?" + params.Encode()
	}

	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return 0, nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return 0, nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			if err := c.backoff(ctx, attempt); err != nil {
				return 0, nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			if err := c.backoff(ctx, attempt); err != nil {
				return 0, nil, err
			}
			continue
		}

		// Honor the server's cooldown hint. The wait consumes a retry
		// slot but does not advance the exponential backoff.
		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfterDelay(resp.Header, c.retryAfter)
			c.log.Warn("rate limited, honoring Retry-After",
				zap.String("url", rawURL),
				zap.Duration("delay", delay))
			lastErr = fmt.Errorf("rate limited (429)")
			if err := c.sleep(ctx, delay); err != nil {
				return 0, nil, err
			}
			continue
		}

		if !json.Valid(body) {
			return resp.StatusCode, nil, nil
		}
		return resp.StatusCode, json.RawMessage(body), nil
	}

	return 0, nil, fmt.Errorf("all %d attempts failed: %w", c.maxRetries, lastErr)
}

// backoff sleeps 2^attempt seconds, skipped after the final attempt.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries-1 {
		return nil
	}
	return c.sleep(ctx, time.Duration(1<<attempt)*time.Second)
}

// retryAfterDelay parses the Retry-After header, falling back to def.
func retryAfterDelay(h http.Header, def time.Duration) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
