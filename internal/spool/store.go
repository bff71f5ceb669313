package spool

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/config"
	"worldbuilder/internal/eventlog"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one spooled event.
type Entry struct {
	ID          string         `json:"id"`
	EventType   string         `json:"event_type"`
	EventSource string         `json:"event_source,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
	Category    string         `json:"category"`
	Attempts    int            `json:"attempts"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Event converts the entry back into a loggable event.
func (e Entry) Event() eventlog.Event {
	return eventlog.Event{EventType: e.EventType, EventSource: e.EventSource, Metadata: e.Metadata}
}

// Retryable reports whether the last failure is worth another attempt.
func (e Entry) Retryable() bool {
	return apiclient.Category(e.Category).Retryable() || e.Category == string(apiclient.CategoryUnknown)
}

// Store manages the spool database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the spool database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("spool path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create spool directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenFromConfig opens the spool under the configured state directory.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return Open(cfg.SpoolPath())
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record stores ev along with the error that kept it from the backend.
func (s *Store) Record(ctx context.Context, ev eventlog.Event, cause error) (*Entry, error) {
	metadataJSON, err := encodeMetadata(ev.Metadata)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	entry := &Entry{
		ID:          uuid.NewString(),
		EventType:   ev.EventType,
		EventSource: ev.EventSource,
		Metadata:    ev.Metadata,
		Category:    string(apiclient.Classify(cause)),
		Attempts:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dropped_events (
            id, event_type, event_source, metadata_json, error_message,
            error_category, attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EventType,
		nullableString(entry.EventSource),
		metadataJSON,
		nullableString(entry.Error),
		entry.Category,
		entry.Attempts,
		now.Format(timeLayout),
		now.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert dropped event: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, oldest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, event_type, event_source, metadata_json, error_message,
        error_category, attempts, created_at, updated_at
        FROM dropped_events ORDER BY created_at, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dropped events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dropped events: %w", err)
	}
	return entries, nil
}

// Count returns the number of spooled entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM dropped_events").Scan(&count); err != nil {
		return 0, fmt.Errorf("count dropped events: %w", err)
	}
	return count, nil
}

// Delete removes one entry and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM dropped_events WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete dropped event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM dropped_events")
	if err != nil {
		return 0, fmt.Errorf("clear dropped events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func (s *Store) markFailed(ctx context.Context, id string, cause error) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE dropped_events
         SET attempts = attempts + 1, error_message = ?, error_category = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(cause.Error()),
		string(apiclient.Classify(cause)),
		s.now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("update dropped event: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry        Entry
		source       sql.NullString
		metadataJSON sql.NullString
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.EventType,
		&source,
		&metadataJSON,
		&errorMessage,
		&entry.Category,
		&entry.Attempts,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Entry{}, fmt.Errorf("scan dropped event: %w", err)
	}
	entry.EventSource = source.String
	entry.Error = errorMessage.String
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata); err != nil {
			return Entry{}, fmt.Errorf("decode metadata for %s: %w", entry.ID, err)
		}
	}
	entry.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	entry.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return entry, nil
}

func encodeMetadata(metadata map[string]any) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
