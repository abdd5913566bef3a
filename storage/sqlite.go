// SQLite history sink.
//
// Information Hiding:
// - SQLite connection management hidden behind the History interface
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteHistory implements History over a SQLite database file.
type SqliteHistory struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteHistory, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	history := &SqliteHistory{db: db}
	if err := history.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return history, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteHistory, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	history := &SqliteHistory{db: db}
	if err := history.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return history, nil
}

// Close closes the database connection.
func (s *SqliteHistory) Close() error {
	return s.db.Close()
}

func (s *SqliteHistory) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			model TEXT NOT NULL,
			turns TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_ts
		ON history(ts DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Append stores a record. An empty ID is filled with a fresh uuid; a zero TS
// is filled with the current UTC time.
func (s *SqliteHistory) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.TS.IsZero() {
		rec.TS = time.Now().UTC()
	}

	turns, err := json.Marshal(rec.Turns)
	if err != nil {
		return fmt.Errorf("failed to encode turns: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO history (id, ts, model, turns) VALUES (?, ?, ?, ?)",
		rec.ID, rec.TS.Format(time.RFC3339Nano), rec.Model, string(turns),
	)
	if err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *SqliteHistory) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, ts, model, turns FROM history ORDER BY ts DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts, turns string
		if err := rows.Scan(&rec.ID, &ts, &rec.Model, &turns); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if rec.TS, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp in history record %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(turns), &rec.Turns); err != nil {
			return nil, fmt.Errorf("invalid turns in history record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return records, nil
}

// Verify SqliteHistory implements History
var _ History = (*SqliteHistory)(nil)
