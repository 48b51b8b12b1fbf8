package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const migrationV1Up = `
-- Regular files
CREATE TABLE IF NOT EXISTS hard_files (
    path TEXT PRIMARY KEY,
    size INTEGER NOT NULL DEFAULT 0,
    is_binary BOOLEAN NOT NULL DEFAULT 0,
    number_of_lines INTEGER NOT NULL DEFAULT 0,
    processed BOOLEAN NOT NULL DEFAULT 0,
    mod_time INTEGER
);

CREATE INDEX IF NOT EXISTS idx_hard_files_processed ON hard_files(processed);

-- Symbolic links and the regular file they resolve to
CREATE TABLE IF NOT EXISTS soft_files (
    path TEXT PRIMARY KEY,
    hard_path TEXT NOT NULL,
    FOREIGN KEY (hard_path) REFERENCES hard_files(path)
);

CREATE INDEX IF NOT EXISTS idx_soft_files_hard_path ON soft_files(hard_path);
`

const migrationV1Down = `
DROP TABLE IF EXISTS soft_files;
DROP TABLE IF EXISTS hard_files;
`

const migrationV11Up = `
-- Named elements inside hard files, written by downstream consumers
CREATE TABLE IF NOT EXISTS nodes (
    hard_file_path TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT,
    container_hard_file_path TEXT,
    container_name TEXT,
    PRIMARY KEY (hard_file_path, name),
    FOREIGN KEY (hard_file_path) REFERENCES hard_files(path),
    FOREIGN KEY (container_hard_file_path, container_name)
        REFERENCES nodes(hard_file_path, name)
);

-- One row per indexer invocation
CREATE TABLE IF NOT EXISTS index_runs (
    id TEXT PRIMARY KEY,
    root_path TEXT NOT NULL,
    wipe BOOLEAN NOT NULL DEFAULT 0,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    hard_files INTEGER NOT NULL DEFAULT 0,
    soft_files INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    failures INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_index_runs_root ON index_runs(root_path, started_at);
`

const migrationV11Down = `
DROP TABLE IF EXISTS index_runs;
DROP TABLE IF EXISTS nodes;
`

// currentVersion returns the highest applied schema version, or 0.0.0
func currentVersion(ctx context.Context, q querier) (*semver.Version, error) {
	rows, err := q.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// applied_at has second resolution, so order by the version itself
	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !current.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		current = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		if semver.MustParse(AllMigrations[i].Version).Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}

// RollbackAll rolls back every applied migration, newest first
func RollbackAll(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	for range AllMigrations {
		current, err := currentVersion(ctx, db)
		if err != nil {
			return err
		}
		if current.Equal(semver.MustParse("0.0.0")) {
			return nil
		}
		if err := RollbackMigration(ctx, db); err != nil {
			return err
		}
	}
	return nil
}
