package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339

var migrations = []string{
	`CREATE TABLE notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		raw_line TEXT NOT NULL DEFAULT '',
		observed_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_notifications_observed_at ON notifications(observed_at)`,
}

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, zero CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
// The database file is created with 0600 permissions and its parent
// directory with 0700.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("creating database file: %w", err)
		}
		_ = f.Close()
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		slog.Info("applying migration", "version", i+1)
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert stores one notification record and fills in its ID.
func (s *SQLiteStore) Insert(r *NotificationRecord) error {
	res, err := s.db.Exec(
		"INSERT INTO notifications (kind, raw_line, observed_at) VALUES (?, ?, ?)",
		r.Kind, r.RawLine, formatTime(r.ObservedAt))
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// List returns history matching the filter, newest first.
func (s *SQLiteStore) List(f Filter) ([]NotificationRecord, error) {
	query := "SELECT id, kind, raw_line, observed_at FROM notifications WHERE 1=1"
	var args []interface{}

	if f.Kind != "" && f.Kind != "all" {
		query += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if !f.Since.IsZero() {
		query += " AND observed_at >= ?"
		args = append(args, formatTime(f.Since))
	}

	query += " ORDER BY observed_at DESC, id DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []NotificationRecord
	for rows.Next() {
		var r NotificationRecord
		var observedAt string
		if err := rows.Scan(&r.ID, &r.Kind, &r.RawLine, &observedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		r.ObservedAt = parseTime(observedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByKind returns how many notifications of each kind were recorded
// since the given time.
func (s *SQLiteStore) CountByKind(since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(
		"SELECT kind, COUNT(*) FROM notifications WHERE observed_at >= ? GROUP BY kind",
		formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("counting notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// Prune deletes records observed before olderThan and reports how many were
// removed.
func (s *SQLiteStore) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM notifications WHERE observed_at < ?", formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("pruning notifications: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StartPruneLoop deletes records older than retention on a fixed interval
// until ctx is cancelled.
func (s *SQLiteStore) StartPruneLoop(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Prune(time.Now().Add(-retention))
			if err != nil {
				slog.Warn("history prune failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("history pruned", "deleted", n)
			}
		}
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeFormat, s)
	return t
}
