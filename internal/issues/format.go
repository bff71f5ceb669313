package issues

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"worldbuilder/internal/services/github"
)

// categoryLabels maps a report category to its GitHub title prefix.
var categoryLabels = map[string]string{
	"ui": "UI",
}

// CategoryLabel returns the display form of a category, e.g. "Bug".
func CategoryLabel(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	if category == "" {
		category = DefaultCategory
	}
	return cases.Title(language.English).String(category)
}

// FormatIssue renders a sanitized report as a GitHub issue. Labels are the
// configured base labels plus the category and a severity label.
func FormatIssue(r Report, baseLabels []string, requestID string) github.IssueRequest {
	r = r.WithDefaults()
	var b strings.Builder
	section := func(heading, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", heading, body)
	}
	section("Description", r.Description)
	section("Where it happened", r.IssueLocation)
	section("Expected behavior", r.ExpectedBehavior)
	section("Actual behavior", r.ActualBehavior)
	section("Steps to reproduce", r.StepsToReproduce)

	fmt.Fprintf(&b, "### Details\n\n")
	fmt.Fprintf(&b, "- Category: %s\n", CategoryLabel(r.Category))
	fmt.Fprintf(&b, "- Severity: %s\n", r.Severity)
	if r.BrowserInfo != "" {
		fmt.Fprintf(&b, "- Browser: %s\n", r.BrowserInfo)
	}
	if r.Email != "" {
		fmt.Fprintf(&b, "- Contact: %s\n", r.Email)
	}
	if requestID != "" {
		fmt.Fprintf(&b, "- Request: `%s`\n", requestID)
	}

	labels := make([]string, 0, len(baseLabels)+2)
	seen := make(map[string]bool, len(baseLabels)+2)
	for _, label := range append(append([]string{}, baseLabels...), r.Category, "severity:"+r.Severity) {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}

	return github.IssueRequest{
		Title:  fmt.Sprintf("[%s] %s", CategoryLabel(r.Category), strings.TrimSpace(r.Title)),
		Body:   strings.TrimRight(b.String(), "\n") + "\n",
		Labels: labels,
	}
}
