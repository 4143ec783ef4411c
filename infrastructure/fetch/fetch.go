// Package fetch provides the shared HTTP client of the enrichment workers:
// JSON GETs with exponential backoff and rate-limit awareness.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wisplabs/wisp/internal/log"
)

// ErrNotFound indicates the upstream returned 404. Not retried; callers
// record a permanent failure.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-2xx response that exhausted its retries or is not
// retryable.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Rate-limit wait bounds applied when the upstream reports an exhausted
// quota with a reset timestamp.
const (
	resetSlack   = 5 * time.Second
	resetWaitMin = 30 * time.Second
	resetWaitMax = 120 * time.Second
)

// Client is a retrying HTTP client. Retries use exponential backoff
// (base * 2^attempt); 404 fails immediately, 429 and 5xx retry, other 4xx
// fail fast.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
	userAgent  string
	resetWait  bool
	logger     *log.Logger
}

// Option is a functional option for Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBaseDelay sets the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithResetWait makes 429 responses honor the X-RateLimit-Reset header,
// waiting until the quota window reopens instead of backing off blindly.
// GitHub's code-search quota needs this; its window is much longer than
// any backoff schedule.
func WithResetWait() Option {
	return func(c *Client) { c.resetWait = true }
}

// New creates a Client.
func New(logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  time.Second,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, _, err := c.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Get fetches url with retries and returns the response body and headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, http.Header, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		body, header, retryAfter, err := c.do(ctx, url, headers)
		if err == nil {
			return body, header, nil
		}
		lastErr = err

		if retryAfter == 0 && !retryable(err) {
			return nil, nil, err
		}

		if attempt < c.maxRetries {
			delay := c.baseDelay << attempt
			if retryAfter > delay {
				delay = retryAfter
			}
			c.logger.DebugContext(ctx, "retrying request",
				"url", url, "attempt", attempt+1, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, nil, fmt.Errorf("max retries exceeded for %s: %w", url, lastErr)
}

// do runs a single request. The returned duration is a server-imposed
// minimum wait before the next attempt, zero when none applies.
func (c *Client) do(ctx context.Context, url string, headers map[string]string) ([]byte, http.Header, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("request %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, resp.Header, 0, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, 0, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := time.Duration(0)
		if c.resetWait {
			wait = resetDelay(resp.Header, time.Now())
		}
		return nil, nil, wait, &StatusError{Code: resp.StatusCode, Body: truncate(body)}
	case resp.StatusCode >= 500:
		return nil, nil, 0, &StatusError{Code: resp.StatusCode, Body: truncate(body)}
	default:
		// GitHub reports an exhausted code-search quota as 403 with a
		// zeroed remaining counter; honor the reset like a 429.
		wait := time.Duration(0)
		if c.resetWait && resp.StatusCode == http.StatusForbidden &&
			resp.Header.Get("X-RateLimit-Remaining") == "0" {
			wait = resetDelay(resp.Header, time.Now())
		}
		return nil, nil, wait, &StatusError{Code: resp.StatusCode, Body: truncate(body)}
	}
}

// retryable reports whether another attempt may succeed: network errors,
// 429 and 5xx. 404 and other 4xx are final.
func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	return true
}

// resetDelay derives the wait from an X-RateLimit-Reset epoch header,
// clamped between resetWaitMin and resetWaitMax. Without the header the
// minimum wait applies.
func resetDelay(header http.Header, now time.Time) time.Duration {
	wait := resetWaitMin
	if raw := header.Get("X-RateLimit-Reset"); raw != "" {
		if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
			until := time.Unix(epoch, 0).Sub(now) + resetSlack
			if until > wait {
				wait = until
			}
		}
	}
	if wait > resetWaitMax {
		wait = resetWaitMax
	}
	return wait
}

// truncate shortens an error body for messages.
func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
