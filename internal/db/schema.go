package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// migrations run in order; the schema_version table records the highest
// applied version. Each migration runs inside its own transaction together
// with the version bump, so a failure leaves the version unchanged.
var migrations = []func(*sql.Tx) error{
	migrationV1, // baseline: projects, events, search_cache, insights
	migrationV2, // artifacts, findings, links
	migrationV3, // backfill insights -> findings
	migrationV4, // branches, hypotheses, branch_id backfill
	migrationV5, // embeddings + synthesis link uniqueness
	migrationV6, // verification missions
	migrationV7, // watch targets
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.conn.QueryRow("SELECT version FROM schema_version").Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// RunMigrations applies all not-yet-applied migrations in ascending order.
// Idempotent: a second call after success applies nothing.
func (db *DB) RunMigrations() error {
	if _, err := db.conn.Exec(
		"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)",
	); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, migrate := range migrations {
		version := i + 1
		if version <= current {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", version, err)
		}
		if err := migrate(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d: %w", version, err)
		}
		if current == 0 && version == 1 {
			_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
		} else {
			_, err = tx.Exec("UPDATE schema_version SET version = ?", version)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", version, err)
		}
		current = version
	}

	return nil
}

func migrationV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT,
			objective TEXT,
			status TEXT,
			created_at TEXT,
			priority INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT,
			event_type TEXT,
			step INTEGER,
			payload TEXT,
			confidence REAL DEFAULT 1.0,
			source TEXT DEFAULT 'unknown',
			tags TEXT DEFAULT '',
			timestamp TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id)
		)`,
		`CREATE TABLE IF NOT EXISTS search_cache (
			query_hash TEXT PRIMARY KEY,
			query TEXT,
			result TEXT,
			timestamp TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS insights (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT,
			title TEXT,
			content TEXT,
			source_url TEXT,
			tags TEXT,
			timestamp TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id)
		)`,
	}
	return execAll(tx, stmts)
}

func migrationV2(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			project_id TEXT,
			type TEXT,
			path TEXT,
			metadata TEXT,
			created_at TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id)
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id TEXT PRIMARY KEY,
			project_id TEXT,
			title TEXT,
			content TEXT,
			evidence TEXT,
			confidence REAL,
			tags TEXT,
			created_at TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id)
		)`,
		`CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT,
			target_id TEXT,
			link_type TEXT,
			metadata TEXT,
			created_at TEXT
		)`,
	}
	return execAll(tx, stmts)
}

// migrationV3 backfills legacy insight rows into the findings table,
// preserving evidence, tags, and timestamps.
func migrationV3(tx *sql.Tx) error {
	rows, err := tx.Query("SELECT project_id, title, content, source_url, tags, timestamp FROM insights")
	if err != nil {
		return err
	}
	defer rows.Close()

	type legacyInsight struct {
		projectID, title, content, sourceURL, tags, timestamp sql.NullString
	}
	var insights []legacyInsight
	for rows.Next() {
		var li legacyInsight
		if err := rows.Scan(&li.projectID, &li.title, &li.content, &li.sourceURL, &li.tags, &li.timestamp); err != nil {
			return err
		}
		insights = append(insights, li)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, li := range insights {
		evidence, err := json.Marshal(map[string]string{"source_url": li.sourceURL.String})
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO findings (id, project_id, title, content, evidence, confidence, tags, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			newFindingID(), li.projectID.String, li.title.String, li.content.String,
			string(evidence), 1.0, li.tags.String, li.timestamp.String,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func migrationV4(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS branches (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			parent_id TEXT,
			hypothesis TEXT DEFAULT '',
			status TEXT DEFAULT 'active',
			created_at TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id),
			FOREIGN KEY(parent_id) REFERENCES branches(id),
			UNIQUE(project_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS hypotheses (
			id TEXT PRIMARY KEY,
			branch_id TEXT NOT NULL,
			statement TEXT NOT NULL,
			rationale TEXT DEFAULT '',
			confidence REAL DEFAULT 0.5,
			status TEXT DEFAULT 'open',
			created_at TEXT,
			updated_at TEXT,
			FOREIGN KEY(branch_id) REFERENCES branches(id)
		)`,
	}
	if err := execAll(tx, stmts); err != nil {
		return err
	}

	for _, table := range []string{"events", "findings", "artifacts"} {
		if err := addColumnIfMissing(tx, table, "branch_id", "TEXT"); err != nil {
			return err
		}
	}

	idx := []string{
		"CREATE INDEX IF NOT EXISTS idx_branches_project ON branches(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_hypotheses_branch ON hypotheses(branch_id)",
		"CREATE INDEX IF NOT EXISTS idx_events_project_branch ON events(project_id, branch_id)",
		"CREATE INDEX IF NOT EXISTS idx_findings_project_branch ON findings(project_id, branch_id)",
		"CREATE INDEX IF NOT EXISTS idx_artifacts_project_branch ON artifacts(project_id, branch_id)",
	}
	if err := execAll(tx, idx); err != nil {
		return err
	}

	// Give every existing project a main branch and adopt orphaned rows.
	rows, err := tx.Query("SELECT id FROM projects")
	if err != nil {
		return err
	}
	var projectIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		projectIDs = append(projectIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	ts := now()
	for _, projectID := range projectIDs {
		branchID := branchIDFor(projectID, "main")
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO branches (id, project_id, name, parent_id, hypothesis, status, created_at)
			 VALUES (?, ?, 'main', NULL, '', 'active', ?)`,
			branchID, projectID, ts,
		); err != nil {
			return err
		}
		for _, table := range []string{"events", "findings", "artifacts"} {
			if _, err := tx.Exec(
				fmt.Sprintf("UPDATE %s SET branch_id = ? WHERE project_id = ? AND (branch_id IS NULL OR branch_id = '')", table),
				branchID, projectID,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func migrationV5(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS embeddings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			model TEXT NOT NULL,
			dims INTEGER NOT NULL,
			vector BLOB NOT NULL,
			content_hash TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(entity_type, entity_id, model)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_embeddings_entity ON embeddings(entity_type, entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model)",
		// Uniqueness only for synthesis links; legacy link rows stay as-is.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_links_synthesis_pair
		 ON links(source_id, target_id) WHERE link_type='SYNTHESIS_SIMILARITY'`,
	}
	return execAll(tx, stmts)
}

func migrationV6(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS verification_missions (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			branch_id TEXT NOT NULL,
			finding_id TEXT NOT NULL,
			mission_type TEXT NOT NULL,
			query TEXT NOT NULL,
			query_hash TEXT NOT NULL,
			question TEXT DEFAULT '',
			rationale TEXT DEFAULT '',
			status TEXT DEFAULT 'open',
			priority INTEGER DEFAULT 0,
			result_meta TEXT DEFAULT '',
			last_error TEXT DEFAULT '',
			created_at TEXT,
			updated_at TEXT,
			completed_at TEXT,
			dedup_hash TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id),
			FOREIGN KEY(branch_id) REFERENCES branches(id),
			FOREIGN KEY(finding_id) REFERENCES findings(id),
			UNIQUE(dedup_hash)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_missions_project_status ON verification_missions(project_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_missions_branch_status ON verification_missions(branch_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_missions_finding ON verification_missions(finding_id)",
	}
	return execAll(tx, stmts)
}

func migrationV7(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watch_targets (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			branch_id TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target TEXT NOT NULL,
			tags TEXT DEFAULT '',
			interval_s INTEGER DEFAULT 3600,
			status TEXT DEFAULT 'active',
			last_run_at TEXT,
			last_result_hash TEXT DEFAULT '',
			last_error TEXT DEFAULT '',
			created_at TEXT,
			updated_at TEXT,
			dedup_hash TEXT NOT NULL,
			FOREIGN KEY(project_id) REFERENCES projects(id),
			FOREIGN KEY(branch_id) REFERENCES branches(id),
			UNIQUE(dedup_hash)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_watch_project_status ON watch_targets(project_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_watch_branch_status ON watch_targets(branch_id, status)",
	}
	return execAll(tx, stmts)
}

func execAll(tx *sql.Tx, stmts []string) error {
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfMissing(tx *sql.Tx, table, column, decl string) error {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}
