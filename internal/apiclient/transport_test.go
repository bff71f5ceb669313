package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestTransport(t *testing.T, baseURL string, opts ...Option) (*Transport, *recordingSleeper) {
	t.Helper()
	routes, err := NewRoutes(baseURL, map[string]string{"X-Default": "base"}, Route{Name: "items", Path: "/items"})
	if err != nil {
		t.Fatalf("NewRoutes: %v", err)
	}
	sleeper := &recordingSleeper{}
	opts = append([]Option{WithSleeper(sleeper.sleep)}, opts...)
	return NewTransport(routes, opts...), sleeper
}

func TestTransportRetriesServerErrorsUpToLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	transport, sleeper := newTestTransport(t, server.URL, WithRetries(3))
	_, err := transport.Do(context.Background(), Request{Method: http.MethodGet, URL: "/items"}, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("attempts = %d, want 4", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if diff := cmp.Diff(want, sleeper.delays); diff != "" {
		t.Fatalf("backoff mismatch (-want +got):\n%s", diff)
	}
	code, ok := StatusCode(err)
	if !ok || code != http.StatusInternalServerError {
		t.Fatalf("StatusCode = %d, %v; want 500", code, ok)
	}
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests} {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		transport, sleeper := newTestTransport(t, server.URL, WithRetries(3))
		_, err := transport.Do(context.Background(), Request{URL: "/items"}, nil)
		server.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		if got := calls.Load(); got != 1 {
			t.Fatalf("status %d: attempts = %d, want 1", status, got)
		}
		if len(sleeper.delays) != 0 {
			t.Fatalf("status %d: unexpected sleeps %v", status, sleeper.delays)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != status {
			t.Fatalf("status %d: error %v is not a matching StatusError", status, err)
		}
	}
}

func TestTransportZeroRetriesMakesOneAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	transport, sleeper := newTestTransport(t, server.URL, WithRetries(0))
	if _, err := transport.Do(context.Background(), Request{URL: "/items"}, nil); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
	if len(sleeper.delays) != 0 {
		t.Fatalf("unexpected sleeps %v", sleeper.delays)
	}
}

func TestTransportRecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "ok"})
	}))
	defer server.Close()

	transport, sleeper := newTestTransport(t, server.URL, WithRetries(5), WithBaseDelay(10*time.Millisecond))
	var out struct {
		Name string `json:"name"`
	}
	resp, err := transport.Do(context.Background(), Request{URL: "/items"}, &out)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out.Name != "ok" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, out)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if diff := cmp.Diff(want, sleeper.delays); diff != "" {
		t.Fatalf("backoff mismatch (-want +got):\n%s", diff)
	}
}

func TestTransportRetriesNetworkErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	transport, sleeper := newTestTransport(t, baseURL, WithRetries(2))
	_, err := transport.Do(context.Background(), Request{URL: "/items"}, nil)
	if err == nil {
		t.Fatal("expected network error")
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(sleeper.delays))
	}
	if got := Classify(err); got != CategoryNetwork {
		t.Fatalf("Classify = %s, want network", got)
	}
}

func TestTransportSendsHeadersQueryAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/api/items" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q", got)
		}
		if got := r.Header.Get("X-Default"); got != "override" {
			t.Errorf("X-Default = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Errorf("body = %s", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	transport, _ := newTestTransport(t, server.URL+"/api")
	resp, err := transport.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     "items",
		Query:   map[string][]string{"limit": {"5"}},
		Body:    map[string]int{"a": 1},
		Headers: map[string]string{"X-Default": "override"},
	}, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestTransportStopsWhenContextCancelled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	routes, err := NewRoutes(server.URL, nil)
	if err != nil {
		t.Fatalf("NewRoutes: %v", err)
	}
	transport := NewTransport(routes, WithRetries(5), WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return SleepWithContext(ctx, d)
	}))
	_, err = transport.Do(ctx, Request{URL: "/"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestTransportRetriesDecodeFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	transport, _ := newTestTransport(t, server.URL, WithRetries(1))
	var out map[string]any
	if _, err := transport.Do(context.Background(), Request{URL: "/items"}, &out); err == nil {
		t.Fatal("expected decode error")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
}

func TestSleepWithContextHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if err := SleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}
