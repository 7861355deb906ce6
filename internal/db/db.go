package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/spark/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file created inside the base directory.
const FileName = "spark.db"

// Init initializes the SQLite database at baseDir/spark.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.spark.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	return Open(filepath.Join(baseDir, FileName))
}

// Open opens (creating if needed) the SQLite database at dbPath and applies migrations.
func Open(dbPath string) (*sql.DB, error) {
	// Pragmas in the connection string apply to all pooled connections
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: catalog table and its external-content FTS5 index.
	// seq is the FTS rowid; it also records catalog insertion order.
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS projects (
		  seq                       INTEGER PRIMARY KEY AUTOINCREMENT,
		  id                        TEXT NOT NULL UNIQUE,
		  title                     TEXT NOT NULL,
		  description               TEXT NOT NULL,
		  solutions                 TEXT NOT NULL DEFAULT '',
		  solutions_text            TEXT NOT NULL DEFAULT '',
		  tech_stack_json           TEXT,
		  difficulty                TEXT,
		  estimated_hours           REAL,
		  learning_outcomes_json    TEXT,
		  implementation_steps_json TEXT,
		  url                       TEXT,
		  created_at                INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_projects_created
		ON projects(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS projects_fts USING fts5(
		  title, description, solutions_text,
		  content='projects', content_rowid='seq',
		  tokenize='porter unicode61'
		);

		CREATE TRIGGER IF NOT EXISTS projects_ai AFTER INSERT ON projects BEGIN
		  INSERT INTO projects_fts(rowid, title, description, solutions_text)
		  VALUES (new.seq, new.title, new.description, new.solutions_text);
		END;

		CREATE TRIGGER IF NOT EXISTS projects_ad AFTER DELETE ON projects BEGIN
		  INSERT INTO projects_fts(projects_fts, rowid, title, description, solutions_text)
		  VALUES ('delete', old.seq, old.title, old.description, old.solutions_text);
		END;

		CREATE TRIGGER IF NOT EXISTS projects_au AFTER UPDATE ON projects BEGIN
		  INSERT INTO projects_fts(projects_fts, rowid, title, description, solutions_text)
		  VALUES ('delete', old.seq, old.title, old.description, old.solutions_text);
		  INSERT INTO projects_fts(rowid, title, description, solutions_text)
		  VALUES (new.seq, new.title, new.description, new.solutions_text);
		END;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
