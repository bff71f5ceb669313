package backend

import (
	"context"
	"strings"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/eventlog"
	"worldbuilder/internal/services"
)

// User is a row of the users table.
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
	UpdatedAt   string         `json:"updated_at,omitempty"`
}

// Users wraps the users table.
type Users struct {
	resource *Resource
}

// Get fetches one user by id.
func (u *Users) Get(ctx context.Context, id string) apiclient.Result[User] {
	id = strings.TrimSpace(id)
	if id == "" {
		return apiclient.Fail[User](services.Wrap(services.ErrValidation, serviceName, "users.get", "id required", nil))
	}
	return first(Select[User](ctx, u.resource, Query{Eq: map[string]string{"id": id}, Limit: 1}), "users.get")
}

// Update applies patch to the user with id and returns the stored row.
func (u *Users) Update(ctx context.Context, id string, patch map[string]any) apiclient.Result[User] {
	id = strings.TrimSpace(id)
	if id == "" {
		return apiclient.Fail[User](services.Wrap(services.ErrValidation, serviceName, "users.update", "id required", nil))
	}
	if len(patch) == 0 {
		return apiclient.Fail[User](services.Wrap(services.ErrValidation, serviceName, "users.update", "empty patch", nil))
	}
	return first(Update[User](ctx, u.resource, Query{Eq: map[string]string{"id": id}}, patch), "users.update")
}

// AnalyticsEvent is a row of the analytics table.
type AnalyticsEvent struct {
	ID         int64          `json:"id,omitempty"`
	EventName  string         `json:"event_name"`
	UserID     string         `json:"user_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

// AnalyticsFilter narrows Analytics.List.
type AnalyticsFilter struct {
	EventName string
	UserID    string
	Limit     int
}

// Analytics wraps the analytics table.
type Analytics struct {
	resource *Resource
}

// Track records one analytics event.
func (a *Analytics) Track(ctx context.Context, ev AnalyticsEvent) apiclient.Result[AnalyticsEvent] {
	if strings.TrimSpace(ev.EventName) == "" {
		return apiclient.Fail[AnalyticsEvent](services.Wrap(services.ErrValidation, serviceName, "analytics.track", "event name required", nil))
	}
	return first(Insert[AnalyticsEvent](ctx, a.resource, ev), "analytics.track")
}

// List returns recent analytics events, newest first.
func (a *Analytics) List(ctx context.Context, filter AnalyticsFilter) apiclient.Result[[]AnalyticsEvent] {
	q := Query{Order: "created_at.desc", Limit: filter.Limit, Eq: map[string]string{}}
	if filter.EventName != "" {
		q.Eq["event_name"] = filter.EventName
	}
	if filter.UserID != "" {
		q.Eq["user_id"] = filter.UserID
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	return Select[AnalyticsEvent](ctx, a.resource, q)
}

// LogRow is a row of the logs table.
type LogRow struct {
	ID          int64          `json:"id,omitempty"`
	EventType   string         `json:"event_type"`
	EventSource string         `json:"event_source,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
}

// Logs wraps the logs table. It satisfies eventlog.Sink.
type Logs struct {
	resource *Resource
}

// Insert stores one event. Callers normally go through eventlog.Logger,
// which validates and sanitizes first.
func (l *Logs) Insert(ctx context.Context, ev eventlog.Event) apiclient.Result[LogRow] {
	row := LogRow{EventType: ev.EventType, EventSource: ev.EventSource, Metadata: ev.Metadata}
	return first(Insert[LogRow](ctx, l.resource, row), "logs.insert")
}

// InsertEvent implements eventlog.Sink.
func (l *Logs) InsertEvent(ctx context.Context, ev eventlog.Event) error {
	return l.Insert(ctx, ev).Err()
}
