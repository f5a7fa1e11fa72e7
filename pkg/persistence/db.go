// Package persistence provides SQLite-based storage for finished interview
// sessions: transcript, evaluation metrics, and final feedback.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"interview/pkg/logx"
)

// Store owns one database connection. SQLite supports a single writer, so
// the pool is pinned to one connection.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open creates or opens the session database at dbPath and ensures the
// schema is current.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("📦 Database initialized: %s", dbPath)

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
