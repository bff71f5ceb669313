package validation

import "strings"

// Log entry field names.
const (
	FieldEventType   = "eventType"
	FieldEventSource = "eventSource"
	FieldMetadata    = "metadata"
)

const (
	maxEventTypeLength = 100
	maxMetadataKeys    = 50
)

// EventSources are the accepted log event origins.
var EventSources = []string{"client", "server", "relay", "cli", "shared"}

// LogEntry is the shape of a log event before it is sanitized.
type LogEntry struct {
	EventType   string
	EventSource string
	Metadata    map[string]any
}

// ValidateLogEntry applies the log entry rules.
func ValidateLogEntry(in LogEntry) Result {
	var c collector
	eventType := strings.TrimSpace(in.EventType)
	c.length(FieldEventType, eventType, 1, maxEventTypeLength)
	if eventType != "" && !validEventType(eventType) {
		c.add(FieldEventType, "may only contain lowercase letters, digits, and _ . : -")
	}
	if source := strings.TrimSpace(in.EventSource); source != "" {
		c.oneOf(FieldEventSource, source, EventSources)
	}
	if len(in.Metadata) > maxMetadataKeys {
		c.add(FieldMetadata, "must have at most %d keys", maxMetadataKeys)
	}
	return c.result()
}

func validEventType(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
		case ch == '_', ch == '.', ch == ':', ch == '-':
		default:
			return false
		}
	}
	return true
}
