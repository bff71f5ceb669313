package versions

import (
	"context"
	"log/slog"
	"sync"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/logging"
)

// LocalBuildLabel marks an Info that was synthesized locally rather than
// read from the release feed.
const LocalBuildLabel = "Local Build"

// Info is an immutable snapshot of one release.
type Info struct {
	Version     string `json:"version"`
	Name        string `json:"name"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
	Description string `json:"description"`
	IsLatest    bool   `json:"is_latest"`
}

// ReleaseSource looks up the newest published release.
type ReleaseSource interface {
	LatestRelease(ctx context.Context) apiclient.Result[Info]
}

// UpdateStatus compares the running build with the newest release.
type UpdateStatus struct {
	Current   Info `json:"current"`
	Latest    Info `json:"latest"`
	Available bool `json:"available"`
}

// Manager caches the latest release lookup. Concurrent misses may both reach
// the network; the last successful response is kept.
type Manager struct {
	source ReleaseSource
	build  Build
	logger *slog.Logger

	mu     sync.Mutex
	cached *Info
}

// NewManager constructs a manager. A nil source makes every Latest call
// return the local fallback.
func NewManager(source ReleaseSource, build Build, logger *slog.Logger) *Manager {
	return &Manager{
		source: source,
		build:  build,
		logger: logging.NewComponentLogger(logger, "versions"),
	}
}

// Build returns the build description the manager was created with.
func (m *Manager) Build() Build {
	return m.build
}

// Current describes the running build.
func (m *Manager) Current() Info {
	return Info{
		Version:     m.build.Version,
		Name:        m.build.DisplayVersion(),
		PublishedAt: LocalBuildLabel,
		Description: m.build.BuildString(),
		IsLatest:    false,
	}
}

// Latest returns the cached release, fetching it on a miss. Failures return
// the uncached local fallback.
func (m *Manager) Latest(ctx context.Context) Info {
	if info, ok := m.Cached(); ok {
		return info
	}
	if m.source == nil {
		return m.Current()
	}

	info, err := m.source.LatestRelease(ctx).Get()
	if err != nil {
		logging.WarnWithContext(m.logger, "latest release lookup failed", "version_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the release feed"),
			logging.String(logging.FieldImpact, "reporting local build as latest"),
		)
		return m.Current()
	}
	info.IsLatest = true

	m.mu.Lock()
	stored := info
	m.cached = &stored
	m.mu.Unlock()
	m.logger.Debug("cached latest release", logging.String("version", info.Version))
	return info
}

// Cached returns the cached release without touching the network.
func (m *Manager) Cached() (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		return Info{}, false
	}
	return *m.cached, true
}

// ClearCache drops the cached release so the next Latest call refetches.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

// CheckForUpdate reports whether the newest release is newer than the
// running build.
func (m *Manager) CheckForUpdate(ctx context.Context) UpdateStatus {
	current := m.Current()
	latest := m.Latest(ctx)
	return UpdateStatus{
		Current:   current,
		Latest:    latest,
		Available: latest.PublishedAt != LocalBuildLabel && Compare(latest.Version, current.Version) > 0,
	}
}
