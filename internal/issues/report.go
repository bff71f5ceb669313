package issues

import (
	"errors"
	"strings"

	"worldbuilder/internal/eventlog"
	"worldbuilder/internal/validation"
)

const (
	DefaultCategory = "bug"
	DefaultSeverity = "medium"
)

// Report is a user-submitted bug report as the web client sends it.
type Report struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	IssueLocation    string `json:"issueLocation"`
	ExpectedBehavior string `json:"expectedBehavior"`
	ActualBehavior   string `json:"actualBehavior,omitempty"`
	StepsToReproduce string `json:"stepsToReproduce,omitempty"`
	Category         string `json:"category"`
	Severity         string `json:"severity"`
	Email            string `json:"email,omitempty"`
	BrowserInfo      string `json:"browserInfo,omitempty"`
}

// WithDefaults fills an empty category or severity.
func (r Report) WithDefaults() Report {
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	r.Severity = strings.ToLower(strings.TrimSpace(r.Severity))
	if r.Severity == "" {
		r.Severity = DefaultSeverity
	}
	return r
}

// Validate applies the bug report rules.
func (r Report) Validate() validation.Result {
	return validation.ValidateIssue(validation.Issue{
		Title:            r.Title,
		Description:      r.Description,
		IssueLocation:    r.IssueLocation,
		ExpectedBehavior: r.ExpectedBehavior,
		ActualBehavior:   r.ActualBehavior,
		StepsToReproduce: r.StepsToReproduce,
		Category:         r.Category,
		Severity:         r.Severity,
		Email:            r.Email,
	})
}

// Sanitized strips angle brackets, trims whitespace, and enforces the
// validator's length caps so a report is safe to render as markdown.
func (r Report) Sanitized() Report {
	clean := func(s string, max int) string {
		return eventlog.SanitizeString(strings.TrimSpace(s), max)
	}
	return Report{
		Title:            clean(r.Title, 200),
		Description:      clean(r.Description, 5000),
		IssueLocation:    clean(r.IssueLocation, 200),
		ExpectedBehavior: clean(r.ExpectedBehavior, 2000),
		ActualBehavior:   clean(r.ActualBehavior, 2000),
		StepsToReproduce: clean(r.StepsToReproduce, 5000),
		Category:         clean(r.Category, 20),
		Severity:         clean(r.Severity, 20),
		Email:            clean(r.Email, 254),
		BrowserInfo:      clean(r.BrowserInfo, 500),
	}
}

// ValidationError carries the field errors of a rejected report.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	if err := e.Result.Err(); err != nil {
		return err.Error()
	}
	return "invalid report"
}

// FieldErrors extracts field errors from err when it wraps a ValidationError.
func FieldErrors(err error) ([]validation.FieldError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Result.Errors, true
	}
	return nil, false
}
