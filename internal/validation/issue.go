package validation

import (
	"net/mail"
	"strings"
)

// Issue report field names as they appear in submitted JSON.
const (
	FieldTitle            = "title"
	FieldDescription      = "description"
	FieldIssueLocation    = "issueLocation"
	FieldExpectedBehavior = "expectedBehavior"
	FieldActualBehavior   = "actualBehavior"
	FieldSteps            = "stepsToReproduce"
	FieldCategory         = "category"
	FieldSeverity         = "severity"
	FieldEmail            = "email"
)

var (
	// IssueCategories are the accepted report categories.
	IssueCategories = []string{"bug", "feature", "performance", "ui", "other"}
	// IssueSeverities are the accepted report severities.
	IssueSeverities = []string{"low", "medium", "high", "critical"}
)

// Issue carries the user-entered fields of a bug report.
type Issue struct {
	Title            string
	Description      string
	IssueLocation    string
	ExpectedBehavior string
	ActualBehavior   string
	StepsToReproduce string
	Category         string
	Severity         string
	Email            string
}

// ValidateIssue applies the bug report rules.
func ValidateIssue(in Issue) Result {
	var c collector
	c.length(FieldTitle, in.Title, 5, 200)
	c.length(FieldDescription, in.Description, 10, 5000)
	c.length(FieldIssueLocation, in.IssueLocation, 3, 200)
	c.length(FieldExpectedBehavior, in.ExpectedBehavior, 3, 2000)
	c.length(FieldActualBehavior, in.ActualBehavior, 0, 2000)
	c.length(FieldSteps, in.StepsToReproduce, 0, 5000)
	c.oneOf(FieldCategory, strings.TrimSpace(in.Category), IssueCategories)
	c.oneOf(FieldSeverity, strings.TrimSpace(in.Severity), IssueSeverities)
	if email := strings.TrimSpace(in.Email); email != "" && !ValidEmail(email) {
		c.add(FieldEmail, "must be a valid email address")
	}
	return c.result()
}

// ValidEmail accepts a bare address such as "a@example.com". Display-name
// forms are rejected.
func ValidEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	if addr.Address != value || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(value, '@')
	return at > 0 && strings.Contains(value[at+1:], ".")
}
