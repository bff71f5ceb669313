// Package apiclient provides the single HTTP plumbing layer shared by every
// typed service client: an immutable route registry bound to a base URL and
// default headers, a retrying JSON transport, an HTTP error taxonomy, and the
// Result pair that service methods return instead of bare errors.
//
// Construct one Routes value per upstream API at startup and hand it to
// NewTransport; the transport itself keeps no state between calls and does no
// logging, so callers decide what to record.
package apiclient
