package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding one or more vector collections.
// Each collection lives in its own table; collections are independent
// namespaces and vectors from different collections are never compared.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "manualqa.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// WAL keeps concurrent query-time reads cheap while ingestion writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var validCollectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Collection returns a repository over the named collection, creating its
// table if it does not exist yet. The name must be a plain SQL identifier
// since it is interpolated into statements.
func (s *Store) Collection(name string) (*Collection, error) {
	if !validCollectionName.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL DEFAULT 0,
		total_chunks INTEGER NOT NULL DEFAULT 0,
		page INTEGER NOT NULL DEFAULT 0,
		text_chunk TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`, name)
	if _, err := s.db.Exec(create); err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", name, err)
	}

	return &Collection{db: s.db, table: name}, nil
}
