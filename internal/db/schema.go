package db

import "fmt"

// SchemaSQL is the complete schema for fresh installs. The sqlite index
// is a rebuildable cache over the filesystem ledgers; dropping the
// database loses nothing that `loopctl history reindex` cannot restore.
//
// This is the single source of truth for the schema. Tests load it via
// GetSchemaSQL() rather than hardcoding CREATE TABLE statements.
const SchemaSQL = `
-- Bottleneck history index (mirror of per-business ledger files)
CREATE TABLE IF NOT EXISTS bottleneck_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	business TEXT NOT NULL,
	run_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	diagnosis_status TEXT NOT NULL CHECK(diagnosis_status IN ('ok', 'no_bottleneck', 'partial_data', 'insufficient_data')),
	constraint_key TEXT NOT NULL,
	constraint_stage TEXT,
	constraint_metric TEXT,
	reason_code TEXT,
	severity TEXT NOT NULL CHECK(severity IN ('critical', 'moderate', 'minor', 'none')),
	indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(business, run_id)
);

CREATE INDEX IF NOT EXISTS idx_bottleneck_history_business ON bottleneck_history(business, run_id);
CREATE INDEX IF NOT EXISTS idx_bottleneck_history_severity ON bottleneck_history(business, severity);
`

// GetSchemaSQL returns the authoritative schema SQL.
func GetSchemaSQL() string {
	return SchemaSQL
}

// InitSchema applies the schema to the shared connection.
func InitSchema() error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	if _, err := conn.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
