// Package preflight provides readiness checks for the local state
// directories and the remote services worldbuilder depends on.
//
// The CLI "worldbuilder status" command runs RunAll and renders the
// results. Each remote check is gated by its configuration: services
// without credentials are reported as skipped rather than failed.
package preflight
