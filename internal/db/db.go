package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/errsolve/errsolve/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/solutions.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.errsolve.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "solutions.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(database); err != nil {
		database.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return database, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(database *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(database *sql.DB) error {
	version, err := GetUserVersion(database)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: initial schema. The inverted_index and solution_stats
	// tables are derived state; they must only ever be written in the same
	// transaction as the solutions row they describe.
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS solutions (
		  id               TEXT PRIMARY KEY,
		  title            TEXT NOT NULL,
		  error_message    TEXT NOT NULL,
		  error_type       TEXT NOT NULL,
		  context          TEXT NOT NULL,
		  root_cause       TEXT NOT NULL,
		  solution         TEXT NOT NULL,
		  code_changes     TEXT,
		  tags_json        TEXT NOT NULL,
		  labels_json      TEXT,
		  cli_library_id   TEXT,
		  environment_json TEXT,
		  project_path     TEXT,
		  created_at       TEXT NOT NULL,
		  embedding        BLOB
		);

		CREATE INDEX IF NOT EXISTS idx_solutions_created_at
		ON solutions(created_at DESC, id DESC);

		CREATE TABLE IF NOT EXISTS solution_stats (
		  solution_id TEXT PRIMARY KEY,
		  doc_length  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS inverted_index (
		  term        TEXT NOT NULL,
		  solution_id TEXT NOT NULL,
		  term_freq   INTEGER NOT NULL,
		  PRIMARY KEY (term, solution_id)
		);

		CREATE INDEX IF NOT EXISTS idx_inverted_term ON inverted_index(term);
		CREATE INDEX IF NOT EXISTS idx_inverted_solution ON inverted_index(solution_id);
		`
		if _, err := database.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(database, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// Migrate runs the idempotent startup recovery: ensure the schema is
// current and rebuild the lexical index from records if it is empty.
// Safe to call on every startup.
func Migrate(database *sql.DB) error {
	if err := migrate(database); err != nil {
		return err
	}
	return EnsureSparseIndex(database)
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(database *sql.DB) error {
	var journalMode string
	if err := database.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(database *sql.DB) (int, error) {
	var version int
	if err := database.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(database *sql.DB, version int) error {
	_, err := database.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
