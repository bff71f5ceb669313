package versions

import (
	"fmt"
	"runtime"
	"strings"
)

// Set at link time, for example:
//
//	go build -ldflags "-X worldbuilder/internal/versions.Version=1.4.0 -X worldbuilder/internal/versions.Commit=abc1234"
var (
	Version   = "0.0.0-dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version string
	Commit  string
	Date    string
}

// LinkedBuild returns the values injected at link time. A non-empty override
// (usually from configuration) replaces the linked version string.
func LinkedBuild(override string) Build {
	version := Version
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		version = trimmed
	}
	return Build{
		Version: Normalize(version),
		Commit:  Commit,
		Date:    BuildDate,
	}
}

// ShortCommit trims the commit hash to seven characters.
func (b Build) ShortCommit() string {
	commit := strings.TrimSpace(b.Commit)
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// DisplayVersion renders the version the way the UI shows it, e.g. "v1.4.0".
func (b Build) DisplayVersion() string {
	if b.Version == "" {
		return "unknown"
	}
	return "v" + b.Version
}

// BuildString renders a one-line description including commit and date
// when they were linked in.
func (b Build) BuildString() string {
	var extras []string
	if commit := b.ShortCommit(); commit != "" && commit != "unknown" {
		extras = append(extras, commit)
	}
	if date := strings.TrimSpace(b.Date); date != "" && date != "unknown" {
		extras = append(extras, date)
	}
	base := fmt.Sprintf("worldbuilder %s", b.DisplayVersion())
	if len(extras) > 0 {
		base += " (" + strings.Join(extras, ", ") + ")"
	}
	return fmt.Sprintf("%s %s/%s", base, runtime.GOOS, runtime.GOARCH)
}
