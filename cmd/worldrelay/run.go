package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/config"
	"worldbuilder/internal/eventlog"
	"worldbuilder/internal/logging"
	"worldbuilder/internal/metrics"
	"worldbuilder/internal/ratelimit"
	"worldbuilder/internal/relay"
	"worldbuilder/internal/services/backend"
	"worldbuilder/internal/services/github"
	"worldbuilder/internal/spool"
)

const relayLogFile = "worldrelay.log"

// relayDeps holds everything the daemon builds from configuration.
type relayDeps struct {
	handler  *relay.Options
	limiter  *ratelimit.Limiter
	events   *eventlog.Logger
	spool    *spool.Store
	registry *prometheus.Registry
}

func (d *relayDeps) close(ctx context.Context) {
	if d.events != nil {
		_ = d.events.Wait(ctx)
	}
	if d.spool != nil {
		_ = d.spool.Close()
	}
}

func runRelay(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg, relayLogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	deps, err := buildRelay(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		deps.close(shutdownCtx)
	}()

	if deps.limiter != nil {
		go deps.limiter.Run(ctx)
	}

	server, err := relay.NewServer(cfg.Relay.Bind, cfg.RelayLockPath(), relay.NewHandler(*deps.handler), logger)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()

	<-ctx.Done()
	logger.Info("worldrelay shutting down")
	return nil
}

// buildRelay wires the GitHub client, metrics, upstream cap, and the
// optional event logger from cfg.
func buildRelay(cfg *config.Config, logger *slog.Logger) (*relayDeps, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewWithRegistry(registry)

	deps := &relayDeps{registry: registry}
	opts := &relay.Options{
		Labels:            cfg.Relay.Labels,
		RateLimitRequests: cfg.Relay.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow(),
		TrustedProxies:    cfg.Relay.TrustedProxies,
		Logger:            logger,
	}
	if cfg.Relay.MetricsEnabled {
		opts.Metrics = mc
	}

	if err := cfg.RequireGitHubToken(); err != nil {
		logging.WarnWithContext(logger, "relay cannot create issues", "relay_unconfigured",
			logging.Error(err),
			logging.String(logging.FieldImpact, "issue submissions answer 503"),
		)
	} else {
		client, err := github.NewFromConfig(cfg,
			apiclient.WithHTTPClient(mc.InstrumentClient(&http.Client{Timeout: secondsDuration(cfg.GitHub.TimeoutSeconds)})),
		)
		if err != nil {
			return nil, err
		}
		opts.Creator = client
		logger.Info("relay forwarding issues", logging.String("repository", client.Repository()))
	}

	if cfg.Relay.MaxIssuesPerHour > 0 {
		deps.limiter = ratelimit.New(cfg.Relay.MaxIssuesPerHour, time.Hour)
		opts.UpstreamLimiter = deps.limiter
	}

	if cfg.Events.Enabled && cfg.RequireBackend() == nil {
		client, err := backend.NewFromConfig(cfg,
			apiclient.WithHTTPClient(mc.InstrumentClient(&http.Client{Timeout: secondsDuration(cfg.Backend.TimeoutSeconds)})),
		)
		if err != nil {
			return nil, err
		}
		hooks := []eventlog.Hook{eventlog.LogHook(logger), mc.EventHook()}
		if cfg.Events.SpoolEnabled {
			store, err := spool.OpenFromConfig(cfg)
			if err != nil {
				return nil, err
			}
			deps.spool = store
			hooks = append(hooks, store.Hook(logger))
		}
		deps.events = eventlog.New(client.Logs,
			eventlog.WithLimits(eventlog.Limits{
				MaxStringLength: cfg.Events.MaxStringLength,
				MaxDepth:        cfg.Events.MaxDepth,
				MaxItems:        cfg.Events.MaxItems,
			}),
			eventlog.WithTimeout(cfg.EventTimeout()),
			eventlog.WithDefaultSource("relay"),
			eventlog.WithLogger(logger),
			eventlog.WithHooks(hooks...),
		)
		opts.Events = deps.events
	}

	deps.handler = opts
	return deps, nil
}

func secondsDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
