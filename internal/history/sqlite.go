//go:build !mips64 && !mips64le && !ppc64 && !s390x

// SQLite support is built with modernc.org/sqlite, a pure-Go driver, so it
// is available everywhere cgo would normally be required; it is excluded
// only on the few architectures that driver itself does not support.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	unit_name TEXT NOT NULL,
	pid INTEGER NOT NULL,
	kind TEXT NOT NULL,
	detail TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_unit_name ON events(unit_name);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
`

// SQLiteStore persists events to a SQLite database in WAL mode, so the API
// server can read concurrently with the watchdog server's writes.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(e Event) error {
	_, err := s.db.Exec(
		`INSERT INTO events (ts, unit_name, pid, kind, detail) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), e.UnitName, e.PID, e.Kind, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("history: insert event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(opts ListOptions) ([]Event, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, ts, unit_name, pid, kind, detail FROM events`
	args := []any{}
	if opts.UnitName != "" {
		query += ` WHERE unit_name = ?`
		args = append(args, opts.UnitName)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var tsMillis int64
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &tsMillis, &e.UnitName, &e.PID, &e.Kind, &detail); err != nil {
			return nil, fmt.Errorf("history: scan event: %w", err)
		}
		e.Timestamp = time.UnixMilli(tsMillis)
		e.Detail = detail.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate events: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
