// Package relay serves the issue relay: a small HTTP endpoint that accepts
// bug reports from the web client, validates and sanitizes them, and files
// them as GitHub issues with the relay's own token.
//
// Callers are limited per IP address. An optional process-wide cap bounds how
// many issues the relay files per hour regardless of caller.
package relay
