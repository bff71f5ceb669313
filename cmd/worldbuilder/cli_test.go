package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/config"
	"worldbuilder/internal/relay"
	"worldbuilder/internal/services/github"
	"worldbuilder/internal/testsupport"
)

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/acme/worlds/releases/latest":
			io.WriteString(w, `{"tag_name":"v1.3.0","name":"Spring","published_at":"2026-03-01T00:00:00Z","html_url":"https://github.com/acme/worlds/releases/v1.3.0"}`)
		case "/repos/acme/worlds/releases":
			io.WriteString(w, `[
				{"tag_name":"v1.3.0","name":"Spring","published_at":"2026-03-01T00:00:00Z"},
				{"tag_name":"v1.2.0","name":"Winter","published_at":"2026-01-01T00:00:00Z"}
			]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

type backendStub struct {
	server  *httptest.Server
	failing atomic.Bool

	mu      sync.Mutex
	inserts []map[string]any
	queries []string
}

func newBackendStub(t *testing.T) *backendStub {
	t.Helper()
	stub := &backendStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "test-key" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/logs":
			if stub.failing.Load() {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			stub.mu.Lock()
			stub.inserts = append(stub.inserts, row)
			stub.mu.Unlock()
			created := map[string]any{"id": 1}
			for k, v := range row {
				created[k] = v
			}
			json.NewEncoder(w).Encode([]map[string]any{created})
		case r.Method == http.MethodGet && r.URL.Path == "/users":
			stub.mu.Lock()
			stub.queries = append(stub.queries, r.URL.RawQuery)
			stub.mu.Unlock()
			io.WriteString(w, `[{"id":"42","display_name":"Mira","world_count":3}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *backendStub) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

type stubCreator struct {
	calls atomic.Int32
}

func (c *stubCreator) CreateIssue(_ context.Context, req github.IssueRequest) apiclient.Result[github.Issue] {
	n := int(c.calls.Add(1))
	return apiclient.OK(github.Issue{Number: 40 + n, URL: "https://github.com/acme/worlds/issues/41", Title: req.Title})
}

func TestVersionJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Version.Current = "1.2.0"
	path := testsupport.WriteConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var out versionOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if out.Version != "1.2.0" || out.Latest != nil {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestVersionCheckFindsUpdate(t *testing.T) {
	gh := newGitHubServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithGitHub(gh.URL, ""))
	cfg.Version.Current = "1.2.0"
	path := testsupport.WriteConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "version", "--check")
	if err != nil {
		t.Fatalf("version --check: %v", err)
	}
	for _, want := range []string{"worldbuilder v1.2.0", "Latest release: v1.3.0", "Update available: yes"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestReleasesPlainOutput(t *testing.T) {
	gh := newGitHubServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithGitHub(gh.URL, ""))
	path := testsupport.WriteConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "releases")
	if err != nil {
		t.Fatalf("releases: %v", err)
	}
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	want := []string{
		"Version\tName\tPublished\tLatest",
		"v1.3.0\tSpring\t2026-03-01T00:00:00Z\t*",
		"v1.2.0\tWinter\t2026-01-01T00:00:00Z\t",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("releases output mismatch (-want +got):\n%s", diff)
	}
}

func TestIssueSubmitThroughRelay(t *testing.T) {
	creator := &stubCreator{}
	relayServer := httptest.NewServer(relay.NewHandler(relay.Options{Creator: creator, RateLimitRequests: 10}))
	t.Cleanup(relayServer.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithRelayURL(relayServer.URL))
	path := testsupport.WriteConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "issue", "submit",
		"--title", "Terrain brush lags",
		"--description", "Painting terrain drops to 5 fps on large maps.",
		"--location", "Map editor",
		"--expected", "Smooth painting",
		"--category", "performance",
	)
	if err != nil {
		t.Fatalf("issue submit: %v", err)
	}
	if !strings.Contains(stdout, "Created issue #41") || !strings.Contains(stdout, "Request ID: ") {
		t.Fatalf("unexpected output:\n%s", stdout)
	}

	_, stderr, err := runCLI(t, path, "issue", "submit", "--title", "bad")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(stderr, "title:") || !strings.Contains(stderr, "description:") {
		t.Fatalf("field errors missing:\n%s", stderr)
	}
	if creator.calls.Load() != 1 {
		t.Fatalf("relay calls = %d, invalid report reached the relay", creator.calls.Load())
	}
}

func TestLogSpoolsFailuresAndFlushes(t *testing.T) {
	stub := newBackendStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(stub.server.URL, "test-key"), testsupport.WithEvents(true))
	path := testsupport.WriteConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "log", "--type", "scene.saved", "--meta", "objects=12", "--meta", "name=<Harbor>")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if !strings.Contains(stdout, "Logged scene.saved") {
		t.Fatalf("unexpected output: %s", stdout)
	}
	stub.mu.Lock()
	got := stub.inserts[0]
	stub.mu.Unlock()
	want := map[string]any{
		"event_type":   "scene.saved",
		"event_source": "cli",
		"metadata":     map[string]any{"objects": float64(12), "name": "Harbor"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("inserted row mismatch (-want +got):\n%s", diff)
	}

	stub.failing.Store(true)
	if _, _, err := runCLI(t, path, "log", "--type", "scene.deleted"); err == nil {
		t.Fatal("expected delivery failure")
	}
	stdout, _, err = runCLI(t, path, "spool", "list")
	if err != nil {
		t.Fatalf("spool list: %v", err)
	}
	if !strings.Contains(stdout, "scene.deleted") || !strings.Contains(stdout, "server") {
		t.Fatalf("spool list missing entry:\n%s", stdout)
	}

	stub.failing.Store(false)
	stdout, _, err = runCLI(t, path, "spool", "flush")
	if err != nil {
		t.Fatalf("spool flush: %v", err)
	}
	if !strings.Contains(stdout, "Sent 1, failed 0, skipped 0") {
		t.Fatalf("unexpected flush output: %s", stdout)
	}
	if stub.insertCount() != 2 {
		t.Fatalf("inserts = %d", stub.insertCount())
	}
	stdout, _, _ = runCLI(t, path, "spool", "list")
	if !strings.Contains(stdout, "Spool is empty") {
		t.Fatalf("spool not drained:\n%s", stdout)
	}
}

func TestLogRejectsInvalidEvent(t *testing.T) {
	stub := newBackendStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(stub.server.URL, "test-key"))
	path := testsupport.WriteConfig(t, cfg)

	if _, _, err := runCLI(t, path, "log", "--type", "Bad Type!"); err == nil {
		t.Fatal("expected validation error")
	}
	if _, _, err := runCLI(t, path, "log", "--type", "ok", "--meta", "novalue"); err == nil {
		t.Fatal("expected meta parse error")
	}
	if stub.insertCount() != 0 {
		t.Fatal("invalid event reached the backend")
	}
}

func TestRecordsQuery(t *testing.T) {
	stub := newBackendStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(stub.server.URL, "test-key"))
	path := testsupport.WriteConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "records", "user", "--eq", "id=42", "--order", "created_at.desc", "--limit", "5", "--json")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0]["display_name"] != "Mira" {
		t.Fatalf("rows = %v", rows)
	}
	if stub.queries[0] != "id=eq.42&limit=5&order=created_at.desc" {
		t.Fatalf("query = %q", stub.queries[0])
	}

	stdout, _, err = runCLI(t, path, "records", "users")
	if err != nil {
		t.Fatalf("records table: %v", err)
	}
	if !strings.HasPrefix(stdout, "id\tdisplay_name\tworld_count\n42\tMira\t3") {
		t.Fatalf("unexpected table:\n%s", stdout)
	}
}

func TestRecordsRequiresBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteConfig(t, cfg)
	_, _, err := runCLI(t, path, "records", "users")
	if err == nil || !strings.Contains(err.Error(), "backend.url is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	testsupport.ClearEnv(t)
	target := filepath.Join(t.TempDir(), "worldbuilder", "config.toml")

	stdout, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(stdout, target) {
		t.Fatalf("unexpected output: %s", stdout)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected overwrite refusal")
	}

	cfg := testsupport.NewConfig(t, testsupport.WithBackend("https://backend.test", "secret-key"))
	path := testsupport.WriteConfig(t, cfg)
	stdout, _, err = runCLI(t, path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(stdout, "secret-key") || !strings.Contains(stdout, redacted) {
		t.Fatalf("api key not redacted:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(stdout, "Backend configured: yes") || !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("unexpected validate output:\n%s", stdout)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
}

func TestStatusReportsChecks(t *testing.T) {
	stub := newBackendStub(t)
	relayServer := httptest.NewServer(relay.NewHandler(relay.Options{}))
	t.Cleanup(relayServer.Close)
	gh := newGitHubServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBackend(stub.server.URL, "wrong-key"),
		testsupport.WithGitHub(gh.URL, ""),
		testsupport.WithRelayURL(relayServer.URL),
	)
	path := testsupport.WriteConfig(t, cfg)

	stdout, _, err := runCLI(t, path, "status")
	if err == nil {
		t.Fatal("expected failure for bad backend key")
	}
	for _, want := range []string{
		"State directory\tok",
		"Backend\tfailed\tauth failed (check credentials)",
		"GitHub\tok\tacme/worlds latest v1.3.0",
		"Issue relay\tok",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("status output missing %q:\n%s", want, stdout)
		}
	}
}
