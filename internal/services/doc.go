// Package services defines shared utilities consumed by the typed API clients
// and the issue relay.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and operation names for logging
//     and tracing.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable (permanent vs transient) after they cross package lines.
//
// Typed clients for individual upstream APIs live in subpackages (github,
// backend) and share the retrying transport from internal/apiclient.
package services
