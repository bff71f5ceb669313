package eventlog

import "worldbuilder/internal/validation"

// Event is a write-only application event.
type Event struct {
	EventType   string         `json:"event_type"`
	EventSource string         `json:"event_source,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Validate applies the log entry rules to the unsanitized event.
func (e Event) Validate() validation.Result {
	return validation.ValidateLogEntry(validation.LogEntry{
		EventType:   e.EventType,
		EventSource: e.EventSource,
		Metadata:    e.Metadata,
	})
}
