// Package logging assembles structured slog loggers and attribute helpers used
// across worldbuilder services.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so client and relay code can tag
// log lines with request IDs and operation names. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
