package store

import (
	"context"
	"fmt"
)

// migration is one additive, idempotent step applied to the schema.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of additive schema changes. Every
// statement uses IF NOT EXISTS / ADD COLUMN with a default so re-applying
// an already-applied migration (or opening a database created by an
// older binary) is a no-op.
var migrations = []migration{
	{1, migrationV1Features},
	{2, migrationV2TestRuns},
	{3, migrationV3AgentMemory},
}

const migrationV1Features = `
CREATE TABLE IF NOT EXISTS features (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	priority INTEGER NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	steps TEXT NOT NULL DEFAULT '[]',
	dependencies TEXT NOT NULL DEFAULT '[]',
	passes INTEGER NOT NULL DEFAULT 0,
	in_progress INTEGER NOT NULL DEFAULT 0,
	review_status TEXT NOT NULL DEFAULT 'none',
	review_notes TEXT NOT NULL DEFAULT '',
	planning_work_item_id TEXT NOT NULL DEFAULT '',
	synced_at DATETIME,
	updated_at DATETIME NOT NULL,
	last_status_hash TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_features_priority ON features(priority);
CREATE INDEX IF NOT EXISTS idx_features_passes ON features(passes);
`

const migrationV2TestRuns = `
CREATE TABLE IF NOT EXISTS test_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	feature_id INTEGER NOT NULL REFERENCES features(id) ON DELETE CASCADE,
	passed INTEGER NOT NULL,
	agent_type TEXT NOT NULL,
	agent_pid INTEGER NOT NULL DEFAULT 0,
	feature_ids_in_batch TEXT NOT NULL DEFAULT '[]',
	started_at DATETIME NOT NULL,
	completed_at DATETIME NOT NULL,
	return_code INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_test_runs_feature_id ON test_runs(feature_id);
`

const migrationV3AgentMemory = `
CREATE TABLE IF NOT EXISTS agent_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL,
	memory_key TEXT NOT NULL,
	value TEXT NOT NULL,
	feature_id INTEGER,
	relevance_count INTEGER NOT NULL DEFAULT 0,
	superseded_by INTEGER,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agent_memory_slot ON agent_memory(category, memory_key);
CREATE INDEX IF NOT EXISTS idx_agent_memory_feature_id ON agent_memory(feature_id);
`

// migrate applies every migration not yet recorded in schema_version,
// each inside its own transaction, and normalizes legacy NULL boolean
// columns to false.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return err
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE features SET passes = 0 WHERE passes IS NULL`); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE features SET in_progress = 0 WHERE in_progress IS NULL`); err != nil {
		return err
	}
	return nil
}
