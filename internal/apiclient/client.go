// Package apiclient provides the rate-governed, retrying HTTP executor both
// platform clients are built on. Each instance owns its own throttle, so the
// two platforms' rate limits never interfere with each other.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snakada/ecbridge/internal/logging"
	"golang.org/x/time/rate"
)

// Client executes HTTP requests against one platform under a minimum
// inter-request interval and an exponential-backoff retry policy.
type Client struct {
	name        string // used in log lines: "source" or "destination"
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	dryRun      bool
	setAuth     func(*http.Request)
	usageHeader string // advisory "used/bucket" header; empty disables the check
}

// Options configures a Client.
type Options struct {
	// Interval is the minimum gap between physical requests.
	Interval time.Duration

	// MaxRetries bounds retry attempts for 429/5xx responses.
	MaxRetries int

	// BackoffBase is the first retry wait; doubled on each further attempt.
	BackoffBase time.Duration

	// SetAuth attaches platform credentials to an outgoing request.
	SetAuth func(*http.Request)

	// UsageHeader names the platform's "calls used/bucket size" header.
	UsageHeader string

	// DryRun short-circuits all mutating requests: they are logged and
	// answered with an empty success without touching the network.
	DryRun bool

	// HTTPClient overrides the default client (used in tests).
	HTTPClient *http.Client
}

// Response is a successful API response.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the response body into v. An empty body (204, dry-run)
// leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// New creates a client for one platform.
func New(name, baseURL string, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	setAuth := opts.SetAuth
	if setAuth == nil {
		setAuth = func(*http.Request) {}
	}

	return &Client{
		name:        name,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Every(opts.Interval), 1),
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		dryRun:      opts.DryRun,
		setAuth:     setAuth,
		usageHeader: opts.UsageHeader,
	}
}

// Get issues a GET request. GETs execute even in dry-run mode: reads are
// harmless and pagination needs them.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Do executes one logical request, retrying transient failures.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	if c.dryRun && method != http.MethodGet {
		logging.Info("[dry-run] %s: %s %s", c.name, method, path)
		return &Response{Status: http.StatusOK}, nil
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Local throttle: one request per interval, retries included.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.attempt(ctx, method, path, payload)
		if err == nil {
			return resp, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}
		wait := c.retryWait(err, attempt)
		logging.Warn("%s: %s %s failed (attempt %d/%d), retrying in %s: %v",
			c.name, method, path, attempt+1, c.maxRetries, wait, err)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s: %s %s: giving up after %d attempts: %w",
		c.name, method, path, c.maxRetries+1, lastErr)
}

// attempt performs a single physical request.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failure, same treatment as a 5xx.
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("reading response body: %w", err)}
	}

	c.checkUsage(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &transientError{
			err:        &APIError{Status: resp.StatusCode, Body: string(respBody)},
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 400:
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return &Response{Status: resp.StatusCode, Body: respBody}, nil
}

// checkUsage reads the platform's advisory call-bucket header and warns when
// usage crosses 80%. Observability only; the throttle is not adjusted.
func (c *Client) checkUsage(resp *http.Response) {
	if c.usageHeader == "" {
		return
	}
	raw := resp.Header.Get(c.usageHeader)
	used, size, ok := parseUsage(raw)
	if !ok || size == 0 {
		return
	}
	if float64(used)/float64(size) > 0.8 {
		logging.Warn("%s: API call bucket at %d/%d", c.name, used, size)
	}
}

// retryWait returns the wait before the next attempt: the server's
// Retry-After if it sent one, else exponential backoff.
func (c *Client) retryWait(err error, attempt int) time.Duration {
	var te *transientError
	if errors.As(err, &te) && te.retryAfter > 0 {
		return te.retryAfter
	}
	return c.backoffBase << attempt
}

// parseUsage parses a "used/size" header value like "32/40".
func parseUsage(raw string) (used, size int, ok bool) {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	used, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	size, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return used, size, true
}

// parseRetryAfter parses a Retry-After header given in seconds.
func parseRetryAfter(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
