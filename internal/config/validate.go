package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are checked lazily
// by the Require* helpers so commands that never talk to a service still run.
func (c *Config) Validate() error {
	if err := c.validateURLs(); err != nil {
		return err
	}
	if err := c.validateRetries(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateURLs() error {
	for key, value := range map[string]string{
		"backend.url":    c.Backend.URL,
		"github.api_url": c.GitHub.APIURL,
		"relay.url":      c.Relay.URL,
	} {
		if value == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must use http or https, got %q", key, value)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateRetries() error {
	for key, value := range map[string]int{
		"backend.retries": c.Backend.Retries,
		"github.retries":  c.GitHub.Retries,
		"relay.retries":   c.Relay.Retries,
	} {
		if value < 0 || value > maxRetries {
			return fmt.Errorf("%s must be between 0 and %d", key, maxRetries)
		}
	}
	return nil
}

func (c *Config) validateRelay() error {
	if c.Relay.RateLimitRequests <= 0 {
		return errors.New("relay.rate_limit_requests must be positive")
	}
	if c.Relay.RateLimitWindowSeconds <= 0 {
		return errors.New("relay.rate_limit_window_seconds must be positive")
	}
	if c.Relay.MaxIssuesPerHour < 0 {
		return errors.New("relay.max_issues_per_hour must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", strings.TrimSpace(c.Logging.Level))
	}
}
