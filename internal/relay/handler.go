package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/eventlog"
	"worldbuilder/internal/issues"
	"worldbuilder/internal/logging"
	"worldbuilder/internal/metrics"
	"worldbuilder/internal/ratelimit"
	"worldbuilder/internal/services"
	"worldbuilder/internal/services/github"
)

const (
	maxBodyBytes = 1 << 20
	upstreamKey  = "github"
)

// IssueCreator files an issue upstream.
type IssueCreator interface {
	CreateIssue(ctx context.Context, req github.IssueRequest) apiclient.Result[github.Issue]
}

// Options wires the relay's collaborators.
type Options struct {
	Creator           IssueCreator
	Labels            []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string
	// UpstreamLimiter caps issue creation across all callers. Nil disables it.
	UpstreamLimiter *ratelimit.Limiter
	Metrics         *metrics.Collectors
	Events          *eventlog.Logger
	Logger          *slog.Logger
}

type handler struct {
	creator  IssueCreator
	labels   []string
	upstream *ratelimit.Limiter
	metrics  *metrics.Collectors
	events   *eventlog.Logger
	logger   *slog.Logger
}

// NewHandler builds the relay router.
func NewHandler(opts Options) http.Handler {
	h := &handler{
		creator:  opts.Creator,
		labels:   append([]string(nil), opts.Labels...),
		upstream: opts.UpstreamLimiter,
		metrics:  opts.Metrics,
		events:   opts.Events,
		logger:   logging.NewComponentLogger(opts.Logger, "relay"),
	}
	requests := opts.RateLimitRequests
	if requests <= 0 {
		requests = 3
	}
	window := opts.RateLimitWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(trustedRealIP(opts.TrustedProxies))
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	r.With(ipRateLimiter(requests, window, h.onRateLimited)).Post(issues.CreateIssuePath, h.createIssue)
	return r
}

func (h *handler) onRateLimited(r *http.Request) {
	h.observe(metrics.OutcomeRateLimited)
	h.logger.Info("relay request rate limited", logging.Args(logging.ContextFields(r.Context())...)...)
}

func (h *handler) createIssue(w http.ResponseWriter, r *http.Request) {
	ctx := services.WithOperation(r.Context(), issues.RouteCreateIssue)
	rid, _ := services.RequestIDFromContext(ctx)
	log := h.logger.With(logging.Args(logging.ContextFields(ctx)...)...)

	var report issues.Report
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&report); err != nil {
		status := http.StatusBadRequest
		message := "request body must be a JSON issue report"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			message = "request body too large"
		}
		h.observe(metrics.OutcomeBadRequest)
		writeJSON(w, status, issues.ErrorResponse{Error: message, RequestID: rid})
		return
	}

	report = report.WithDefaults()
	if res := report.Validate(); !res.IsValid {
		h.observe(metrics.OutcomeInvalid)
		fields := make([]issues.FieldErrorPayload, len(res.Errors))
		for i, fe := range res.Errors {
			fields[i] = issues.FieldErrorPayload{Field: fe.Field, Message: fe.Message}
		}
		log.Info("relay report rejected", logging.Int("field_errors", len(fields)))
		writeJSON(w, http.StatusBadRequest, issues.ErrorResponse{Error: "invalid issue report", Errors: fields, RequestID: rid})
		return
	}

	if h.upstream != nil && !h.upstream.Allow(upstreamKey) {
		h.observe(metrics.OutcomeRateLimited)
		logging.WarnWithContext(log, "relay issue cap reached", "relay_issue_cap",
			logging.String(logging.FieldErrorHint, "raise relay.max_issues_per_hour if this is legitimate traffic"),
			logging.String(logging.FieldImpact, "report rejected with 429"),
		)
		writeRateLimited(w, r, h.upstream.RetryAfter(upstreamKey))
		return
	}

	if h.creator == nil {
		h.observe(metrics.OutcomeUpstream)
		writeJSON(w, http.StatusServiceUnavailable, issues.ErrorResponse{Error: "relay is not configured to create issues", RequestID: rid})
		return
	}

	sanitized := report.Sanitized()
	req := issues.FormatIssue(sanitized, h.labels, rid)
	issue, err := h.creator.CreateIssue(ctx, req).Get()
	if err != nil {
		h.observe(metrics.OutcomeUpstream)
		status := http.StatusBadGateway
		message := "failed to create issue"
		if errors.Is(err, services.ErrConfiguration) {
			status = http.StatusServiceUnavailable
			message = "relay is not configured to create issues"
		}
		logging.ErrorWithContext(log, "relay issue creation failed", "relay_issue_failed",
			logging.Error(err),
			logging.String("category", string(apiclient.Classify(err))),
			logging.String(logging.FieldErrorHint, "check github.token and repository permissions"),
		)
		writeJSON(w, status, issues.ErrorResponse{Error: message, RequestID: rid})
		return
	}

	h.observe(metrics.OutcomeCreated)
	log.Info("relay issue created",
		logging.Int("issue_number", issue.Number),
		logging.String("issue_url", issue.URL),
		logging.String(logging.FieldEventType, "relay_issue_created"),
	)
	h.events.LogAsync(ctx, eventlog.Event{
		EventType:   "relay.issue_created",
		EventSource: "relay",
		Metadata: map[string]any{
			"issue_number": issue.Number,
			"category":     sanitized.Category,
			"severity":     sanitized.Severity,
			"request_id":   rid,
		},
	})
	writeJSON(w, http.StatusCreated, issues.Receipt{IssueNumber: issue.Number, IssueURL: issue.URL, RequestID: rid})
}

func (h *handler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveRelay(outcome)
	}
}
