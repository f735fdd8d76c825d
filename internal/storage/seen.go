package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SeenStore records which article keys were forwarded by earlier runs.
type SeenStore struct {
	db *sql.DB
}

// NewSeenStore opens (or creates) the SQLite index at dbPath.
func NewSeenStore(dbPath string) (*SeenStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create seen index dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &SeenStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SeenStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seen (
		key TEXT PRIMARY KEY,
		scraper TEXT NOT NULL,
		first_seen TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Seen reports whether key was marked before.
func (s *SeenStore) Seen(key string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM seen WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query seen index: %w", err)
	}
	return n > 0, nil
}

// Mark records key. Marking an existing key keeps its first-seen time.
func (s *SeenStore) Mark(key, scraper string, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO seen (key, scraper, first_seen) VALUES (?, ?, ?)`,
		key, scraper, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("update seen index: %w", err)
	}
	return nil
}

// Count returns the number of recorded keys.
func (s *SeenStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM seen`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count seen index: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SeenStore) Close() error {
	return s.db.Close()
}

// MarkingStorage marks each event's article as seen once the wrapped
// backend accepted it.
type MarkingStorage struct {
	next Storage
	seen *SeenStore
}

// NewMarkingStorage wraps next. The SeenStore is not closed by Close.
func NewMarkingStorage(next Storage, seen *SeenStore) *MarkingStorage {
	return &MarkingStorage{next: next, seen: seen}
}

func (s *MarkingStorage) Name() string { return s.next.Name() }

func (s *MarkingStorage) Store(ctx context.Context, ev *Event) error {
	if err := s.next.Store(ctx, ev); err != nil {
		return err
	}
	if ev.Payload == nil {
		return nil
	}
	return s.seen.Mark(ev.Payload.Key(), ev.Scraper, ev.Timestamp)
}

func (s *MarkingStorage) Close() error { return s.next.Close() }
