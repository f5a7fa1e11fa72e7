package persistence

import (
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion defines the current schema version for migration
// support.
const CurrentSchemaVersion = 1

// initializeSchema ensures the database schema is at the current version.
// Idempotent and safe to call on every open.
func initializeSchema(db *sql.DB) error {
	version, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == 0 {
		return createSchema(db)
	}
	if version == CurrentSchemaVersion {
		return nil
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}
	// No migrations exist yet below the current version.
	return fmt.Errorf("no migration path from schema version %d", version)
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read user_version: %w", err)
	}
	return version, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		candidate_name TEXT NOT NULL,
		role           TEXT NOT NULL,
		first_time     INTEGER NOT NULL DEFAULT 0,
		max_questions  INTEGER NOT NULL,
		question_count INTEGER NOT NULL,
		clarity        REAL NOT NULL,
		relevance      REAL NOT NULL,
		depth          REAL NOT NULL,
		tier           TEXT NOT NULL,
		overall_score  INTEGER NOT NULL,
		fallback_score INTEGER NOT NULL DEFAULT 0,
		narrative      TEXT NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		completed_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transcript_lines (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		speaker    TEXT NOT NULL,
		text       TEXT NOT NULL,
		spoken_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS feedback_labels (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		kind       TEXT NOT NULL CHECK (kind IN ('strength', 'improvement')),
		label      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_labels_session ON feedback_labels(session_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
