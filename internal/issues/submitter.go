package issues

import (
	"context"
	"net/http"
	"strings"
	"time"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/config"
	"worldbuilder/internal/services"
)

const serviceName = "relay"

// RouteCreateIssue is the relay endpoint that files a report.
const RouteCreateIssue = "createIssue"

// CreateIssuePath is where the relay accepts reports.
const CreateIssuePath = "/create-github-issue"

// Receipt is the relay's answer to a successful submission.
type Receipt struct {
	IssueNumber int    `json:"issueNumber"`
	IssueURL    string `json:"issueUrl"`
	RequestID   string `json:"requestId,omitempty"`
}

// ErrorResponse is the relay's JSON error body.
type ErrorResponse struct {
	Error     string              `json:"error"`
	Errors    []FieldErrorPayload `json:"errors,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

// FieldErrorPayload mirrors validation.FieldError on the wire.
type FieldErrorPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Submitter sends reports to the relay.
type Submitter struct {
	transport *apiclient.Transport
}

// NewSubmitter builds a submitter for the relay at baseURL.
func NewSubmitter(baseURL string, retries int, opts ...apiclient.Option) (*Submitter, error) {
	routes, err := apiclient.NewRoutes(strings.TrimSpace(baseURL), nil,
		apiclient.Route{Name: RouteCreateIssue, Path: CreateIssuePath},
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "", err)
	}
	defaults := []apiclient.Option{
		apiclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		apiclient.WithRetries(retries),
	}
	return &Submitter{transport: apiclient.NewTransport(routes, append(defaults, opts...)...)}, nil
}

// NewSubmitterFromConfig builds a submitter from the relay section.
func NewSubmitterFromConfig(cfg *config.Config, opts ...apiclient.Option) (*Submitter, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "config is nil", nil)
	}
	return NewSubmitter(cfg.Relay.URL, cfg.Relay.Retries, opts...)
}

// Submit validates r and posts it to the relay. Invalid reports fail with a
// ValidationError and never reach the network.
func (s *Submitter) Submit(ctx context.Context, r Report) apiclient.Result[Receipt] {
	r = r.WithDefaults()
	if res := r.Validate(); !res.IsValid {
		return apiclient.Fail[Receipt](services.Wrap(services.ErrValidation, serviceName, RouteCreateIssue, "", &ValidationError{Result: res}))
	}
	path, ok := s.transport.Routes().Path(RouteCreateIssue)
	if !ok {
		return apiclient.Fail[Receipt](services.Wrap(services.ErrConfiguration, serviceName, RouteCreateIssue, "route missing", nil))
	}
	headers := map[string]string{}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		headers["X-Request-ID"] = rid
	}
	var receipt Receipt
	req := apiclient.Request{Method: http.MethodPost, URL: path, Body: r.Sanitized(), Headers: headers}
	if _, err := s.transport.Do(ctx, req, &receipt); err != nil {
		return apiclient.Fail[Receipt](services.FromTransport(serviceName, RouteCreateIssue, err))
	}
	return apiclient.OK(receipt)
}
