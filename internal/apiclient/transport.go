package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultBaseDelay = time.Second
	maxResponseBytes = 8 << 20
)

// HTTPDoer describes the HTTP client used by the transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one logical call. URL may be absolute or relative to the
// route table's base URL. Headers override the table defaults.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Body    any
	Headers map[string]string
}

// Response is the raw outcome of the final successful attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs JSON requests with bounded retries.
type Transport struct {
	routes    *Routes
	client    HTTPDoer
	retries   int
	baseDelay time.Duration
	sleep     func(context.Context, time.Duration) error
}

// Option customizes the transport.
type Option func(*Transport)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithRetries sets how many extra attempts follow a retryable failure.
func WithRetries(retries int) Option {
	return func(t *Transport) {
		if retries < 0 {
			retries = 0
		}
		t.retries = retries
	}
}

// WithBaseDelay sets the first backoff delay; attempt k waits base*2^k.
func WithBaseDelay(delay time.Duration) Option {
	return func(t *Transport) {
		if delay < 0 {
			delay = 0
		}
		t.baseDelay = delay
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(t *Transport) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// NewTransport binds a transport to a route table.
func NewTransport(routes *Routes, opts ...Option) *Transport {
	t := &Transport{
		routes:    routes,
		client:    &http.Client{Timeout: defaultTimeout},
		baseDelay: defaultBaseDelay,
		sleep:     SleepWithContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Routes exposes the bound route table.
func (t *Transport) Routes() *Routes {
	return t.routes
}

// Retries reports the configured retry count.
func (t *Transport) Retries() int {
	return t.retries
}

// Backoff returns the wait after the 0-indexed attempt that just failed.
func (t *Transport) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	return t.baseDelay * time.Duration(1<<attempt)
}

// Do sends req, retrying network failures and 5xx responses with exponential
// backoff. 4xx responses fail immediately. When out is non-nil the response
// body is decoded into it as JSON. The last error is returned once attempts
// are exhausted.
func (t *Transport) Do(ctx context.Context, req Request, out any) (*Response, error) {
	var payload []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}
	target, err := t.buildURL(req)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		resp, err := t.attempt(ctx, method, target, payload, req.Headers, out)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !t.shouldRetry(ctx, err) || attempt == t.retries {
			break
		}
		if err := t.sleep(ctx, t.Backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (t *Transport) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.ClientError() {
		return false
	}
	return true
}

func (t *Transport) attempt(ctx context.Context, method, target string, payload []byte, overrides map[string]string, out any) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if t.routes != nil {
		for key, values := range t.routes.headers {
			httpReq.Header[key] = append([]string(nil), values...)
		}
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range overrides {
		httpReq.Header.Set(key, value)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("%s %s: decode response: %w", method, target, err)
		}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: data}, nil
}

func (t *Transport) buildURL(req Request) (string, error) {
	target := req.URL
	if t.routes != nil {
		target = t.routes.Resolve(req.URL)
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", target, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q is not absolute and no base url is configured", target)
	}
	if len(req.Query) > 0 {
		query := parsed.Query()
		for key, values := range req.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
