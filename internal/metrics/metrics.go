// Package metrics exposes prometheus collectors for outbound HTTP calls,
// event delivery, and the issue relay.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"worldbuilder/internal/eventlog"
)

const namespace = "worldbuilder"

// Relay issue outcomes.
const (
	OutcomeCreated     = "created"
	OutcomeInvalid     = "invalid"
	OutcomeBadRequest  = "bad_request"
	OutcomeUpstream    = "upstream_error"
	OutcomeRateLimited = "rate_limited"
)

// Collectors groups every metric the toolkit records. All collectors are
// registered on the registry passed to New.
type Collectors struct {
	registry prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	EventsSent    prometheus.Counter
	EventsDropped *prometheus.CounterVec
	RelayIssues   *prometheus.CounterVec
	RateLimited   prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Collectors {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_client_requests_total",
			Help:      "Outbound HTTP requests by status code and method",
		}, []string{"code", "method"}),
		EventsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_sent_total",
			Help:      "Log events delivered to the backend",
		}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Log events that were not delivered, by reason",
		}, []string{"reason"}),
		RelayIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_issue_requests_total",
			Help:      "Issue relay requests by outcome",
		}, []string{"outcome"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_rate_limited_total",
			Help:      "Relay requests rejected by the per-caller rate limit",
		}),
	}
}

// InstrumentClient returns a copy of client whose transport counts requests.
func (c *Collectors) InstrumentClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = promhttp.InstrumentRoundTripperCounter(c.HTTPRequests, next)
	return &wrapped
}

// EventHook counts event deliveries.
func (c *Collectors) EventHook() eventlog.Hook {
	return func(_ context.Context, outcome eventlog.Outcome) {
		switch {
		case !outcome.Dropped():
			c.EventsSent.Inc()
		case eventlog.IsInvalid(outcome.Err):
			c.EventsDropped.WithLabelValues("invalid").Inc()
		default:
			c.EventsDropped.WithLabelValues("delivery").Inc()
		}
	}
}

// ObserveRelay counts one relay request outcome.
func (c *Collectors) ObserveRelay(outcome string) {
	c.RelayIssues.WithLabelValues(outcome).Inc()
	if outcome == OutcomeRateLimited {
		c.RateLimited.Inc()
	}
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
