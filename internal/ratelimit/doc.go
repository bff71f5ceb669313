// Package ratelimit provides a keyed sliding-window limiter for callers that
// want to throttle themselves. Nothing in the HTTP transport consults it
// automatically.
package ratelimit
