// Package eventlog records application events to the backend without ever
// blocking or failing the caller.
//
// Events are validated and sanitized before they leave the process: angle
// brackets are stripped, long strings truncated, nested metadata walked to a
// bounded depth and oversized collections capped. Sanitize is idempotent.
//
// Logger.Log swallows delivery failures, but not silently: every outcome is
// passed to the registered hooks and failures are counted by Dropped.
package eventlog
