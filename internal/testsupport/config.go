package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"worldbuilder/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// credentialEnv lists the variables that config loading consults. NewConfig
// clears them so a developer's shell never leaks into tests.
var credentialEnv = []string{
	"WORLDBUILDER_BACKEND_URL",
	"WORLDBUILDER_BACKEND_KEY",
	"WORLDBUILDER_RELAY_URL",
	"GITHUB_TOKEN",
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	ClearEnv(t)

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.GitHub.Owner = "acme"
	cfgVal.GitHub.Repo = "worlds"
	cfgVal.Relay.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// ClearEnv unsets the credential environment variables for the test.
func ClearEnv(t testing.TB) {
	t.Helper()
	for _, key := range credentialEnv {
		old, had := os.LookupEnv(key)
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
		if had {
			t.Cleanup(func() { _ = os.Setenv(key, old) })
		}
	}
}

// WithBackend points the config at a test backend.
func WithBackend(url, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.URL = url
		b.cfg.Backend.APIKey = apiKey
		b.cfg.Backend.Retries = 0
	}
}

// WithGitHub points the config at a test GitHub API.
func WithGitHub(apiURL, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.GitHub.APIURL = apiURL
		b.cfg.GitHub.Token = token
		b.cfg.GitHub.Retries = 0
	}
}

// WithRelayURL sets the relay endpoint used by issue submission.
func WithRelayURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Relay.URL = url
		b.cfg.Relay.Retries = 0
	}
}

// WithEvents enables the event logger and optionally the spool.
func WithEvents(spool bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Events.Enabled = true
		b.cfg.Events.SpoolEnabled = spool
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteConfig encodes cfg as TOML next to the state directory and returns the path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(BaseDir(cfg), "config.toml")
	data, err := config.Encode(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
