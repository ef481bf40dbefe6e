// CLAUDE:SUMMARY SQLite-backed export journal — records one row per attempted export, errors never propagate.
// Package journal persists export events in SQLite. Recording is
// observability, not bookkeeping: a failing journal never blocks or fails an
// export, it only logs via slog.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event is one attempted export.
type Event struct {
	EventID    string `json:"event_id"`
	Format     string `json:"format"` // vector | raster | document | markdown | raw
	Filename   string `json:"filename"`
	PageURL    string `json:"page_url,omitempty"`
	Status     string `json:"status"` // success | error
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  int64  `json:"created_at"` // unix seconds
}

// Journal writes and reads export events.
type Journal struct {
	db    *sql.DB
	newID func() string
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithIDGenerator sets a custom generator for event IDs.
func WithIDGenerator(gen func() string) JournalOption {
	return func(j *Journal) { j.newID = gen }
}

// New creates a Journal over an open database. Call Init before recording.
func New(db *sql.DB, opts ...JournalOption) *Journal {
	j := &Journal{
		db: db,
		// Prefixed UUIDv7: time-sortable, ecosystem convention.
		newID: func() string { return "exp_" + uuid.Must(uuid.NewV7()).String() },
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Init creates the journal schema. Idempotent.
func (j *Journal) Init(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS export_events (
			event_id    TEXT PRIMARY KEY,
			format      TEXT NOT NULL,
			filename    TEXT NOT NULL,
			page_url    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			error       TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_export_events_created ON export_events(created_at);
	`)
	if err != nil {
		return fmt.Errorf("journal: init schema: %w", err)
	}
	return nil
}

// Record inserts an event. Errors are logged via slog but do not propagate,
// so a failing journal never blocks an export.
func (j *Journal) Record(ctx context.Context, ev Event) {
	if ev.EventID == "" {
		ev.EventID = j.newID()
	}
	if ev.CreatedAt == 0 {
		ev.CreatedAt = time.Now().Unix()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO export_events (
			event_id, format, filename, page_url, status, error, duration_ms, created_at
		) VALUES (?,?,?,?,?,?,?,?)`,
		ev.EventID, ev.Format, ev.Filename, ev.PageURL, ev.Status, ev.Error, ev.DurationMs, ev.CreatedAt)
	if err != nil {
		slog.Error("journal: record failed", "error", err, "format", ev.Format, "filename", ev.Filename)
	}
}

// Recent returns the latest events, newest first. limit <= 0 means 50.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT event_id, format, filename, page_url, status, error, duration_ms, created_at
		FROM export_events ORDER BY created_at DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.EventID, &ev.Format, &ev.Filename, &ev.PageURL,
			&ev.Status, &ev.Error, &ev.DurationMs, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Cleanup deletes events older than the retention window. Zero days means
// keep everything.
func (j *Journal) Cleanup(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days*86400)
	if _, err := j.db.ExecContext(ctx, `DELETE FROM export_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("journal: cleanup: %w", err)
	}
	return nil
}
