package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/eventlog"
	"worldbuilder/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, resources ...string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{
		URL:       server.URL + "/rest/v1",
		APIKey:    "anon-key",
		Retries:   1,
		Resources: resources,
	}, apiclient.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestQueryValues(t *testing.T) {
	q := Query{
		Columns: []string{"id", "email"},
		Eq:      map[string]string{"id": "u1", "email": "a@example.com"},
		Order:   "created_at",
		Limit:   10,
		Offset:  20,
	}
	got := q.Values().Encode()
	want := "email=eq.a%40example.com&id=eq.u1&limit=10&offset=20&order=created_at.asc&select=id%2Cemail"
	if got != want {
		t.Fatalf("Values = %s\nwant     %s", got, want)
	}
	if got := (Query{Order: "created_at.desc"}).Values().Get("order"); got != "created_at.desc" {
		t.Fatalf("order = %q", got)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{URL: "https://example.com"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing key err = %v", err)
	}
	if _, err := NewClient(Config{APIKey: "k"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing url err = %v", err)
	}
}

func TestResourceLookupPluralizes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, "Scene", "scenes", "person")
	for _, name := range []string{"user", "users", "log", "analytics", "scene", "person"} {
		if _, err := client.Resource(name); err != nil {
			t.Errorf("Resource(%q): %v", name, err)
		}
	}
	if _, err := client.Resource("missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown resource err = %v", err)
	}
	want := []string{"analytics", "logs", "people", "scenes", "users"}
	if diff := cmp.Diff(want, client.Resources()); diff != "" {
		t.Fatalf("Resources mismatch:\n%s", diff)
	}
}

func TestUsersGetSendsHeadersAndFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/users" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "eq.u1" {
			t.Errorf("id filter = %q", got)
		}
		if r.Header.Get("Apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		_ = json.NewEncoder(w).Encode([]User{{ID: "u1", Email: "a@example.com"}})
	})
	user, err := client.Users.Get(context.Background(), "u1").Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if user.Email != "a@example.com" {
		t.Fatalf("user = %+v", user)
	}
}

func TestUsersGetEmptyIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})
	if err := client.Users.Get(context.Background(), "nobody").Err(); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := client.Users.Get(context.Background(), " ").Err(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank id err = %v", err)
	}
}

func TestUsersUpdatePatchesWithFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.u1" {
			t.Errorf("id filter = %q", got)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("Prefer = %q", got)
		}
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		_ = json.NewEncoder(w).Encode([]User{{ID: "u1", DisplayName: patch["display_name"].(string)}})
	})
	user, err := client.Users.Update(context.Background(), "u1", map[string]any{"display_name": "Ada"}).Get()
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if user.DisplayName != "Ada" {
		t.Fatalf("user = %+v", user)
	}
}

func TestUpdateRequiresFilter(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	res, err := client.Resource("users")
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if err := Update[User](context.Background(), res, Query{}, map[string]any{"a": 1}).Err(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("unfiltered update reached the network")
	}
}

func TestAnalyticsTrackAndList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var ev AnalyticsEvent
			_ = json.NewDecoder(r.Body).Decode(&ev)
			ev.ID = 7
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode([]AnalyticsEvent{ev})
		case http.MethodGet:
			q := r.URL.Query()
			if q.Get("order") != "created_at.desc" || q.Get("event_name") != "eq.scene_shared" || q.Get("limit") != "50" {
				t.Errorf("unexpected query %v", q)
			}
			_ = json.NewEncoder(w).Encode([]AnalyticsEvent{{ID: 7, EventName: "scene_shared"}})
		}
	})
	tracked, err := client.Analytics.Track(context.Background(), AnalyticsEvent{EventName: "scene_shared"}).Get()
	if err != nil || tracked.ID != 7 {
		t.Fatalf("Track = %+v, %v", tracked, err)
	}
	list, err := client.Analytics.List(context.Background(), AnalyticsFilter{EventName: "scene_shared"}).Get()
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if err := client.Analytics.Track(context.Background(), AnalyticsEvent{}).Err(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty Track err = %v", err)
	}
}

func TestLogsSinkReportsFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	var sink eventlog.Sink = client.Logs
	err := sink.InsertEvent(context.Background(), eventlog.Event{EventType: "app.start"})
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("err = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestLogsInsertReturnsRow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var row LogRow
		_ = json.NewDecoder(r.Body).Decode(&row)
		row.ID = 1
		_ = json.NewEncoder(w).Encode([]LogRow{row})
	})
	row, err := client.Logs.Insert(context.Background(), eventlog.Event{EventType: "app.start", EventSource: "cli"}).Get()
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if row.ID != 1 || row.EventSource != "cli" {
		t.Fatalf("row = %+v", row)
	}
}
