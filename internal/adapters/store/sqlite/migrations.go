package sqlite

import (
	"database/sql"
	"fmt"
)

// applyMigrations applies all database migrations in order.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("could not enable WAL: %w", err)
	}

	if err := createMigrationsTable(db); err != nil {
		return err
	}

	migrations := []struct {
		version int
		name    string
		sql     string
	}{
		{1, "create_pending_actions_table", createPendingActionsTable},
		{2, "create_snapshots_table", createSnapshotsTable},
		{3, "create_dead_letters_table", createDeadLettersTable},
		{4, "create_leases_table", createLeasesTable},
		{5, "create_sync_meta_table", createSyncMetaTable},
		{6, "create_indices", createIndices},
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.version)
		if err != nil {
			return fmt.Errorf("could not check migration %d: %w", m.version, err)
		}

		if applied {
			continue
		}

		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("could not apply migration %d (%s): %w", m.version, m.name, err)
		}

		if err := recordMigration(db, m.version, m.name); err != nil {
			return fmt.Errorf("could not record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table.
func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has been applied.
func isMigrationApplied(db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recordMigration records that a migration has been applied.
func recordMigration(db *sql.DB, version int, name string) error {
	_, err := db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// Migration SQL statements

// seq assigns the FIFO position; insertion order is replay order and must
// survive restarts.
const createPendingActionsTable = `
CREATE TABLE pending_actions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	payload TEXT,
	enqueued_at TIMESTAMP NOT NULL,
	retries INTEGER NOT NULL DEFAULT 0
);
`

const createSnapshotsTable = `
CREATE TABLE snapshots (
	key TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	cached_at TIMESTAMP NOT NULL
);
`

const createDeadLettersTable = `
CREATE TABLE dead_letters (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	payload TEXT,
	retries INTEGER NOT NULL DEFAULT 0,
	reason TEXT NOT NULL,
	failed_at TIMESTAMP NOT NULL
);
`

const createLeasesTable = `
CREATE TABLE leases (
	name TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	expires_at TIMESTAMP NOT NULL
);
`

const createSyncMetaTable = `
CREATE TABLE sync_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const createIndices = `
CREATE INDEX IF NOT EXISTS idx_pending_actions_id ON pending_actions(id);
CREATE INDEX IF NOT EXISTS idx_pending_actions_type ON pending_actions(type);
CREATE INDEX IF NOT EXISTS idx_dead_letters_failed ON dead_letters(failed_at);
`
