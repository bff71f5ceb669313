package issues

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/services"
	"worldbuilder/internal/validation"
)

func sampleReport() Report {
	return Report{
		Title:            "Camera <b>jumps</b> on drag",
		Description:      "Dragging an object makes the camera jump.",
		IssueLocation:    "Scene editor",
		ExpectedBehavior: "Camera stays put",
		ActualBehavior:   "Camera jumps to origin",
		Category:         "bug",
		Severity:         "high",
		Email:            "ada@example.com",
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := map[string]string{
		"bug":         "Bug",
		"performance": "Performance",
		"ui":          "UI",
		"":            "Bug",
		" FEATURE ":   "Feature",
	}
	for in, want := range tests {
		if got := CategoryLabel(in); got != want {
			t.Errorf("CategoryLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCategoryLabelConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := CategoryLabel("performance"); got != "Performance" {
					t.Errorf("CategoryLabel = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestFormatIssue(t *testing.T) {
	req := FormatIssue(sampleReport().Sanitized(), []string{"user-report", "bug"}, "req-1")
	if req.Title != "[Bug] Camera bjumps/b on drag" {
		t.Fatalf("Title = %q", req.Title)
	}
	if diff := cmp.Diff([]string{"user-report", "bug", "severity:high"}, req.Labels); diff != "" {
		t.Fatalf("labels mismatch:\n%s", diff)
	}
	for _, want := range []string{
		"### Description\n\nDragging an object",
		"### Expected behavior\n\nCamera stays put",
		"- Severity: high",
		"- Contact: ada@example.com",
		"`req-1`",
	} {
		if !strings.Contains(req.Body, want) {
			t.Errorf("body missing %q:\n%s", want, req.Body)
		}
	}
	if strings.Contains(req.Body, "Steps to reproduce") {
		t.Error("empty section rendered")
	}
}

func TestSanitizedStripsMarkup(t *testing.T) {
	r := Report{Title: "  <script>x</script>  ", Description: strings.Repeat("d", 6000)}.Sanitized()
	if r.Title != "scriptx/script" {
		t.Fatalf("Title = %q", r.Title)
	}
	if len(r.Description) != 5000 {
		t.Fatalf("Description length = %d", len(r.Description))
	}
}

func newSubmitter(t *testing.T, url string, retries int) *Submitter {
	t.Helper()
	s, err := NewSubmitter(url, retries, apiclient.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	if err != nil {
		t.Fatalf("NewSubmitter: %v", err)
	}
	return s
}

func TestSubmitInvalidReportNeverReachesNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	submitter := newSubmitter(t, server.URL, 3)
	for _, mutate := range []func(*Report){
		func(r *Report) { r.ExpectedBehavior = "" },
		func(r *Report) { r.IssueLocation = "ab" },
	} {
		report := sampleReport()
		mutate(&report)
		result := submitter.Submit(context.Background(), report)
		if result.OK() {
			t.Fatal("invalid report accepted")
		}
		if !errors.Is(result.Err(), services.ErrValidation) {
			t.Fatalf("err = %v", result.Err())
		}
		fields, ok := FieldErrors(result.Err())
		if !ok || len(fields) == 0 {
			t.Fatalf("field errors missing from %v", result.Err())
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("network called %d times", calls.Load())
	}
}

func TestSubmitPostsSanitizedReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != CreateIssuePath {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Request-ID"); got != "rid-9" {
			t.Errorf("X-Request-ID = %q", got)
		}
		var got Report
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		if strings.ContainsAny(got.Title, "<>") {
			t.Errorf("title not sanitized: %q", got.Title)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Receipt{IssueNumber: 12, IssueURL: "https://github.com/acme/worlds/issues/12"})
	}))
	defer server.Close()

	ctx := services.WithRequestID(context.Background(), "rid-9")
	receipt, err := newSubmitter(t, server.URL, 0).Submit(ctx, sampleReport()).Get()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.IssueNumber != 12 {
		t.Fatalf("receipt = %+v", receipt)
	}
}

func TestSubmitRelayRejectionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "rate limited"})
	}))
	defer server.Close()

	result := newSubmitter(t, server.URL, 3).Submit(context.Background(), sampleReport())
	if !errors.Is(result.Err(), services.ErrRateLimited) {
		t.Fatalf("err = %v", result.Err())
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestReportValidateUsesDefaults(t *testing.T) {
	r := sampleReport()
	r.Category = ""
	r.Severity = ""
	if res := r.WithDefaults().Validate(); !res.IsValid {
		t.Fatalf("defaults invalid: %+v", res.Errors)
	}
	if res := r.Validate(); res.IsValid || !res.Has(validation.FieldCategory) {
		t.Fatalf("missing category accepted: %+v", res)
	}
}
