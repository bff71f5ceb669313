package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody caps, in runes, how much response body an error message carries.
const maxErrorBody = 200

// StatusError reports a non-2xx HTTP response. Retry decisions read
// StatusCode directly rather than inspecting the message text.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if runes := []rune(body); len(runes) > maxErrorBody {
		body = string(runes[:maxErrorBody]) + "..."
	}
	msg := fmt.Sprintf("%s %s: http %d", e.Method, e.URL, e.StatusCode)
	if body != "" {
		msg += ": " + body
	}
	return msg
}

// ClientError reports whether the response was a 4xx.
func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// StatusCode extracts the HTTP status from err when it wraps a StatusError.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

// Category groups failures by how callers should react to them.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryNotFound       Category = "not_found"
	CategoryConflict       Category = "conflict"
	CategoryRateLimit      Category = "rate_limit"
	CategoryServer         Category = "server"
	CategoryNetwork        Category = "network"
	CategoryUnknown        Category = "unknown"
)

// Retryable reports whether failures in this category are worth retrying
// later. The transport applies its own stricter rule (never retry 4xx); this
// table is for callers that reschedule work, such as the event spool.
func (c Category) Retryable() bool {
	switch c {
	case CategoryNetwork, CategoryRateLimit, CategoryServer:
		return true
	default:
		return false
	}
}

// CategoryForStatus maps an HTTP status code onto the taxonomy.
func CategoryForStatus(code int) Category {
	switch {
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return CategoryValidation
	case code == http.StatusUnauthorized:
		return CategoryAuthentication
	case code == http.StatusForbidden:
		return CategoryAuthorization
	case code == http.StatusNotFound:
		return CategoryNotFound
	case code == http.StatusConflict:
		return CategoryConflict
	case code == http.StatusTooManyRequests:
		return CategoryRateLimit
	case code >= 500 && code <= 599:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

// Classify maps any error returned by the transport onto the taxonomy.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if code, ok := StatusCode(err); ok {
		return CategoryForStatus(code)
	}
	if errors.Is(err, context.Canceled) {
		return CategoryUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return CategoryNetwork
	}
	return CategoryUnknown
}
