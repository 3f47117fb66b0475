package sqlitestore

import "fmt"

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "decisions: recorded strategic decisions",
		SQL: `
CREATE TABLE decisions (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL DEFAULT '',
    summary              TEXT NOT NULL DEFAULT '',
    body_text            TEXT NOT NULL DEFAULT '',
    gate_decision        TEXT CHECK (gate_decision IN ('approved', 'revision_required', 'rejected', 'blocked')),
    dqs                  REAL,
    final_recommendation TEXT,
    executive_summary    TEXT NOT NULL DEFAULT '',
    blockers             TEXT NOT NULL DEFAULT '[]',
    required_revisions   TEXT NOT NULL DEFAULT '[]',
    last_run_at          INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_decisions_last_run ON decisions(last_run_at DESC);
`,
	},
	{
		Version:     2,
		Description: "decision_embeddings: content-addressed embedding cache",
		SQL: `
CREATE TABLE decision_embeddings (
    decision_id TEXT PRIMARY KEY,
    source_hash TEXT NOT NULL,
    provider    TEXT NOT NULL,
    model       TEXT NOT NULL,
    dimensions  INTEGER NOT NULL,
    vector      BLOB NOT NULL,
    updated_at  INTEGER NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, strftime('%s','now'))`, m.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}
