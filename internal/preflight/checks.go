package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/config"
	"worldbuilder/internal/services"
	"worldbuilder/internal/services/backend"
	"worldbuilder/internal/services/github"
)

const checkTimeout = 5 * time.Second

func checkOptions() []apiclient.Option {
	return []apiclient.Option{
		apiclient.WithHTTPClient(&http.Client{Timeout: checkTimeout}),
		apiclient.WithRetries(0),
	}
}

// CheckBackend reads one row from the logs table to confirm the URL and key.
func CheckBackend(ctx context.Context, cfg *config.Config) Result {
	const name = "Backend"
	if err := cfg.RequireBackend(); err != nil {
		return Result{Name: name, Skipped: true, Detail: "not configured"}
	}
	client, err := backend.NewFromConfig(cfg, checkOptions()...)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	resource, err := client.Resource(backend.ResourceLogs)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := backend.Select[map[string]any](checkCtx, resource, backend.Query{Columns: []string{"id"}, Limit: 1}).Err(); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckGitHub looks up the latest release. A repository with no releases
// still passes since the lookup proves the API is reachable.
func CheckGitHub(ctx context.Context, cfg *config.Config) Result {
	const name = "GitHub"
	if err := cfg.RequireGitHubRepo(); err != nil {
		return Result{Name: name, Skipped: true, Detail: "repository not configured"}
	}
	client, err := github.NewFromConfig(cfg, checkOptions()...)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	info, err := client.LatestRelease(checkCtx).Get()
	auth := "unauthenticated"
	if client.Authenticated() {
		auth = "token set"
	}
	switch {
	case err == nil:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s latest v%s (%s)", client.Repository(), info.Version, auth)}
	case github.IsNotFound(err):
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s has no releases (%s)", client.Repository(), auth)}
	default:
		return Result{Name: name, Detail: summarizeError(err)}
	}
}

// CheckRelay calls the relay health endpoint.
func CheckRelay(ctx context.Context, baseURL string) Result {
	const name = "Issue relay"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Skipped: true, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	client := &http.Client{Timeout: checkTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/healthz", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: base}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a human-readable summary for a failed check.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	if errors.Is(err, services.ErrUnauthorized) {
		return "auth failed (check credentials)"
	}
	if code, ok := apiclient.StatusCode(err); ok {
		return fmt.Sprintf("request failed (%d)", code)
	}
	return err.Error()
}
