package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"worldbuilder/internal/config"
	"worldbuilder/internal/eventlog"
	"worldbuilder/internal/logging"
	"worldbuilder/internal/services/backend"
	"worldbuilder/internal/services/github"
	"worldbuilder/internal/spool"
)

const cliLogFile = "worldbuilder.log"

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	spool *spool.Store
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerValue returns the CLI logger. Logger setup failures degrade to a
// no-op logger so a broken log directory never blocks a command.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg, cliLogFile)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) githubClient() (*github.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireGitHubRepo(); err != nil {
		return nil, err
	}
	return github.NewFromConfig(cfg)
}

func (c *commandContext) backendClient(resources ...string) (*backend.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}
	return backend.NewClient(backend.Config{
		URL:       cfg.Backend.URL,
		APIKey:    cfg.Backend.APIKey,
		Retries:   cfg.Backend.Retries,
		Timeout:   secondsDuration(cfg.Backend.TimeoutSeconds),
		Resources: resources,
	})
}

func (c *commandContext) spoolStore() (*spool.Store, error) {
	if c.spool != nil {
		return c.spool, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := spool.OpenFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open event spool: %w", err)
	}
	c.spool = store
	return store, nil
}

// eventLogger wires the backend log table as the sink. Delivery failures are
// logged and, when enabled, written to the spool for a later flush.
func (c *commandContext) eventLogger(hooks ...eventlog.Hook) (*eventlog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := c.backendClient()
	if err != nil {
		return nil, err
	}
	logger := c.loggerValue()
	all := []eventlog.Hook{eventlog.LogHook(logger)}
	if cfg.Events.SpoolEnabled {
		store, err := c.spoolStore()
		if err != nil {
			return nil, err
		}
		all = append(all, store.Hook(logger))
	}
	all = append(all, hooks...)
	return eventlog.New(client.Logs,
		eventlog.WithEnabled(cfg.Events.Enabled),
		eventlog.WithLimits(eventlog.Limits{
			MaxStringLength: cfg.Events.MaxStringLength,
			MaxDepth:        cfg.Events.MaxDepth,
			MaxItems:        cfg.Events.MaxItems,
		}),
		eventlog.WithTimeout(cfg.EventTimeout()),
		eventlog.WithDefaultSource("cli"),
		eventlog.WithLogger(logger),
		eventlog.WithHooks(all...),
	), nil
}

func (c *commandContext) close() error {
	if c.spool == nil {
		return nil
	}
	err := c.spool.Close()
	c.spool = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
