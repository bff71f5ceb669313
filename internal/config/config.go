package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local state and log locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Backend contains configuration for the hosted PostgREST-style backend.
type Backend struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Retries        int    `toml:"retries"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GitHub contains configuration for the GitHub REST API.
type GitHub struct {
	APIURL         string `toml:"api_url"`
	Owner          string `toml:"owner"`
	Repo           string `toml:"repo"`
	Token          string `toml:"token"`
	Retries        int    `toml:"retries"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Relay contains configuration for the issue relay server and its clients.
type Relay struct {
	Bind                   string   `toml:"bind"`
	URL                    string   `toml:"url"`
	Retries                int      `toml:"retries"`
	RateLimitRequests      int      `toml:"rate_limit_requests"`
	RateLimitWindowSeconds int      `toml:"rate_limit_window_seconds"`
	MaxIssuesPerHour       int      `toml:"max_issues_per_hour"`
	TrustedProxies         []string `toml:"trusted_proxies"`
	Labels                 []string `toml:"labels"`
	MetricsEnabled         bool     `toml:"metrics_enabled"`
}

// Events contains configuration for the fire-and-forget event logger.
type Events struct {
	Enabled         bool `toml:"enabled"`
	SpoolEnabled    bool `toml:"spool_enabled"`
	MaxStringLength int  `toml:"max_string_length"`
	MaxDepth        int  `toml:"max_depth"`
	MaxItems        int  `toml:"max_items"`
	TimeoutSeconds  int  `toml:"timeout_seconds"`
}

// Version contains overrides for the locally reported version.
type Version struct {
	Current string `toml:"current"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for worldbuilder.
//
// Configuration sections by subsystem:
//   - Paths: local state (event spool, relay lock) and log directories
//   - Backend: hosted REST backend for logs, users, analytics
//   - GitHub: release lookups and issue creation
//   - Relay: issue relay bind address, client URL, and rate limits
//   - Events: event logger sanitization limits and spooling
//   - Version: local version override
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Backend Backend `toml:"backend"`
	GitHub  GitHub  `toml:"github"`
	Relay   Relay   `toml:"relay"`
	Events  Events  `toml:"events"`
	Version Version `toml:"version"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("worldbuilder.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SpoolPath returns the SQLite database used for dropped log events.
func (c *Config) SpoolPath() string {
	return filepath.Join(c.Paths.StateDir, "events.db")
}

// RelayLockPath returns the lock file that keeps one relay per state directory.
func (c *Config) RelayLockPath() string {
	return filepath.Join(c.Paths.StateDir, "worldrelay.lock")
}

// RateLimitWindow returns the relay rate-limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.Relay.RateLimitWindowSeconds) * time.Second
}

// EventTimeout returns the per-event send timeout used by async logging.
func (c *Config) EventTimeout() time.Duration {
	return time.Duration(c.Events.TimeoutSeconds) * time.Second
}

// RequireBackend reports a configuration error when backend credentials are missing.
func (c *Config) RequireBackend() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("backend.url is required. Set WORLDBUILDER_BACKEND_URL or edit %s", c.configHint())
	}
	if strings.TrimSpace(c.Backend.APIKey) == "" {
		return fmt.Errorf("backend.api_key is required. Set WORLDBUILDER_BACKEND_KEY or edit %s", c.configHint())
	}
	return nil
}

// RequireGitHubRepo reports a configuration error when the release repository is unknown.
func (c *Config) RequireGitHubRepo() error {
	if strings.TrimSpace(c.GitHub.Owner) == "" || strings.TrimSpace(c.GitHub.Repo) == "" {
		return fmt.Errorf("github.owner and github.repo are required. Edit %s", c.configHint())
	}
	return nil
}

// RequireGitHubToken reports a configuration error when issue creation has no credentials.
func (c *Config) RequireGitHubToken() error {
	if err := c.RequireGitHubRepo(); err != nil {
		return err
	}
	if strings.TrimSpace(c.GitHub.Token) == "" {
		return fmt.Errorf("github.token is required to create issues. Set GITHUB_TOKEN or edit %s", c.configHint())
	}
	return nil
}

func (c *Config) configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
