// Package history keeps a local record of past searches in a SQLite
// database, so queries can be recalled and replayed between sessions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	query       TEXT    NOT NULL,
	mode        TEXT    NOT NULL,
	searched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_history_time ON search_history (searched_at DESC);
`

// Entry is one recorded search.
type Entry struct {
	ID         int64     `json:"id" yaml:"id"`
	Query      string    `json:"query" yaml:"query"`
	Mode       string    `json:"mode" yaml:"mode"`
	SearchedAt time.Time `json:"searched_at" yaml:"searched_at"`
}

// Store is a search-history database handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one search. Empty queries are not worth recalling and are
// silently skipped; a query identical to the most recent entry is skipped
// too, so repeated pagination of one search leaves a single row.
func (s *Store) Record(ctx context.Context, query, mode string) error {
	if query == "" {
		return nil
	}

	var lastQuery, lastMode string
	err := s.db.QueryRowContext(ctx,
		`SELECT query, mode FROM search_history ORDER BY searched_at DESC, id DESC LIMIT 1`,
	).Scan(&lastQuery, &lastMode)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read last history entry: %w", err)
	}
	if err == nil && lastQuery == query && lastMode == mode {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_history (query, mode, searched_at) VALUES (?, ?, ?)`,
		query, mode, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, mode, searched_at FROM search_history ORDER BY searched_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Query, &e.Mode, &ts); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.SearchedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	return entries, nil
}

// Clear deletes the whole history.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM search_history`); err != nil {
		return fmt.Errorf("clear search history: %w", err)
	}
	return nil
}
