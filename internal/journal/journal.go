// Package journal keeps a station-local SQLite record of lost-update
// collisions detected on the shared documents.
//
// The database always lives in the local state directory: SQLite locking is
// unreliable over network filesystems, and the journal is per-station
// diagnostics rather than shared state.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"manifestboard/internal/shared"
)

// Entry is one journaled collision.
type Entry struct {
	ID         int64
	DetectedAt time.Time
	InstanceID string
	Document   string
	Kind       string
	Key        string
	Detail     string
}

// Journal is the collision journal.
type Journal struct {
	db         *sql.DB
	path       string
	instanceID string
	now        func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed-width UTC timestamps sort lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// Open creates or opens the journal at path. instanceID tags new rows.
func Open(path, instanceID string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
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

	j := &Journal{db: db, path: path, instanceID: instanceID, now: time.Now}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordCollision appends a collision row.
func (j *Journal) RecordCollision(ctx context.Context, c shared.Collision) error {
	return j.retryOnBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO collisions (detected_at, instance_id, document, kind, key, detail) VALUES (?, ?, ?, ?, ?, ?)`,
			j.now().UTC().Format(timestampLayout), j.instanceID, c.Document, c.Kind, c.Key, c.Detail,
		)
		return err
	})
}

// Recent returns up to limit collisions, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, detected_at, instance_id, document, kind, key, detail
		   FROM collisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query collisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			detected string
		)
		if err := rows.Scan(&e.ID, &detected, &e.InstanceID, &e.Document, &e.Kind, &e.Key, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan collision: %w", err)
		}
		if t, err := time.Parse(timestampLayout, detected); err == nil {
			e.DetectedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of journaled collisions.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM collisions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count collisions: %w", err)
	}
	return n, nil
}

// Prune deletes collisions detected before cutoff and returns how many were
// removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := j.retryOnBusy(ctx, func() error {
		res, err := j.db.ExecContext(ctx, `DELETE FROM collisions WHERE detected_at < ?`,
			cutoff.UTC().Format(timestampLayout))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (j *Journal) retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
