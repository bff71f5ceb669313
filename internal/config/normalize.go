package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeGitHub()
	c.normalizeRelay()
	c.normalizeEvents()
	c.normalizeLogging()
	c.Version.Current = strings.TrimPrefix(strings.TrimSpace(c.Version.Current), "v")
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.URL == "" {
		if value, ok := os.LookupEnv("WORLDBUILDER_BACKEND_URL"); ok {
			c.Backend.URL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.Backend.APIKey = strings.TrimSpace(c.Backend.APIKey)
	if c.Backend.APIKey == "" {
		if value, ok := os.LookupEnv("WORLDBUILDER_BACKEND_KEY"); ok {
			c.Backend.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeoutSeconds
	}
}

func (c *Config) normalizeGitHub() {
	c.GitHub.APIURL = strings.TrimRight(strings.TrimSpace(c.GitHub.APIURL), "/")
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = defaultGitHubAPIURL
	}
	c.GitHub.Owner = strings.TrimSpace(c.GitHub.Owner)
	c.GitHub.Repo = strings.TrimSpace(c.GitHub.Repo)
	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)
	if c.GitHub.Token == "" {
		if value, ok := os.LookupEnv("GITHUB_TOKEN"); ok {
			c.GitHub.Token = strings.TrimSpace(value)
		}
	}
	if c.GitHub.TimeoutSeconds <= 0 {
		c.GitHub.TimeoutSeconds = defaultGitHubTimeoutSeconds
	}
}

func (c *Config) normalizeRelay() {
	c.Relay.Bind = strings.TrimSpace(c.Relay.Bind)
	if c.Relay.Bind == "" {
		c.Relay.Bind = defaultRelayBind
	}
	if value, ok := os.LookupEnv("WORLDBUILDER_RELAY_URL"); ok && strings.TrimSpace(value) != "" {
		c.Relay.URL = value
	}
	c.Relay.URL = strings.TrimRight(strings.TrimSpace(c.Relay.URL), "/")
	if c.Relay.URL == "" {
		c.Relay.URL = defaultRelayURL
	}
	c.Relay.TrustedProxies = normalizeList(c.Relay.TrustedProxies, false)
	c.Relay.Labels = normalizeList(c.Relay.Labels, true)
}

func (c *Config) normalizeEvents() {
	if c.Events.MaxStringLength <= 0 {
		c.Events.MaxStringLength = defaultEventMaxStringLength
	}
	if c.Events.MaxDepth <= 0 {
		c.Events.MaxDepth = defaultEventMaxDepth
	}
	if c.Events.MaxItems <= 0 {
		c.Events.MaxItems = defaultEventMaxItems
	}
	if c.Events.TimeoutSeconds <= 0 {
		c.Events.TimeoutSeconds = defaultEventTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeList(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if lower {
			normalized = strings.ToLower(normalized)
		}
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
