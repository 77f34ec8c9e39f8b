package db

import (
	"database/sql"
	"fmt"

	"github.com/marcus/vault/internal/models"
)

// InsertMission adds a verification mission unless an identical one already
// exists. Identity is the dedup hash; a duplicate insert is a silent no-op
// and inserted reports false.
func (db *DB) InsertMission(m *models.Mission) (inserted bool, err error) {
	if m.Status == "" {
		m.Status = models.MissionOpen
	}
	ts := now()
	err = withRetry(func() error {
		res, err := db.conn.Exec(
			`INSERT OR IGNORE INTO verification_missions
			 (id, project_id, branch_id, finding_id, mission_type, query, query_hash,
			  question, rationale, status, priority, result_meta, last_error,
			  created_at, updated_at, completed_at, dedup_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', '', ?, ?, NULL, ?)`,
			m.ID, m.ProjectID, m.BranchID, m.FindingID, m.Type, m.Query, m.QueryHash,
			m.Question, m.Rationale, m.Status, m.Priority, ts, ts, m.DedupHash,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if inserted {
		m.CreatedAt = parseTime(ts)
		m.UpdatedAt = m.CreatedAt
	}
	return inserted, nil
}

// GetMission fetches a mission by id.
func (db *DB) GetMission(id string) (*models.Mission, error) {
	row := db.conn.QueryRow(missionSelect+" WHERE id = ?", id)
	m, err := scanMission(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("mission %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMissions returns a branch's missions ordered by priority then age.
// status filters when non-empty.
func (db *DB) ListMissions(projectID, branch, status string, limit int) ([]*models.Mission, error) {
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := missionSelect + " WHERE project_id = ? AND branch_id = ?"
	args := []any{projectID, branchID}
	if status != "" {
		if !models.IsValidMissionStatus(status) {
			return nil, fmt.Errorf("%w: invalid mission status %q", models.ErrValidation, status)
		}
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY priority DESC, created_at ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missions []*models.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

// SelectOpenMissions claims up to limit open missions for execution, highest
// priority first, oldest first within a priority. Claimed missions move to
// in_progress before being returned.
func (db *DB) SelectOpenMissions(projectID, branchID string, limit int) ([]*models.Mission, error) {
	if limit <= 0 {
		limit = 5
	}
	var missions []*models.Mission
	err := withRetry(func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		rows, err := tx.Query(
			missionSelect+` WHERE project_id = ? AND branch_id = ? AND status = ?
			 ORDER BY priority DESC, created_at ASC LIMIT ?`,
			projectID, branchID, models.MissionOpen, limit,
		)
		if err != nil {
			return err
		}
		missions = missions[:0]
		for rows.Next() {
			m, err := scanMission(rows.Scan)
			if err != nil {
				rows.Close()
				return err
			}
			missions = append(missions, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		ts := now()
		for _, m := range missions {
			if _, err := tx.Exec(
				"UPDATE verification_missions SET status = ?, updated_at = ? WHERE id = ?",
				models.MissionInProgress, ts, m.ID,
			); err != nil {
				return err
			}
			m.Status = models.MissionInProgress
			m.UpdatedAt = parseTime(ts)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return missions, nil
}

// CompleteMission marks a mission done and records its result metadata.
func (db *DB) CompleteMission(id, resultMeta string) error {
	ts := now()
	return db.updateMission(id,
		"UPDATE verification_missions SET status = ?, result_meta = ?, last_error = '', updated_at = ?, completed_at = ? WHERE id = ?",
		models.MissionDone, resultMeta, ts, ts, id,
	)
}

// BlockMission marks a mission blocked with the reason it cannot run.
func (db *DB) BlockMission(id, reason string) error {
	return db.updateMission(id,
		"UPDATE verification_missions SET status = ?, last_error = ?, updated_at = ? WHERE id = ?",
		models.MissionBlocked, reason, now(), id,
	)
}

// ReopenMission returns a mission to the open queue after a transient
// failure, keeping the error for inspection.
func (db *DB) ReopenMission(id, lastError string) error {
	return db.updateMission(id,
		"UPDATE verification_missions SET status = ?, last_error = ?, updated_at = ? WHERE id = ?",
		models.MissionOpen, lastError, now(), id,
	)
}

// CancelMission removes a mission from the queue without running it.
func (db *DB) CancelMission(id string) error {
	return db.updateMission(id,
		"UPDATE verification_missions SET status = ?, updated_at = ? WHERE id = ?",
		models.MissionCancelled, now(), id,
	)
}

// CountMissionsByStatus returns mission counts per status for a branch.
func (db *DB) CountMissionsByStatus(projectID, branchID string) (map[string]int, error) {
	rows, err := db.conn.Query(
		"SELECT status, COUNT(*) FROM verification_missions WHERE project_id = ? AND branch_id = ? GROUP BY status",
		projectID, branchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (db *DB) updateMission(id, query string, args ...any) error {
	return withRetry(func() error {
		res, err := db.conn.Exec(query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("mission %q: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

const missionSelect = `SELECT id, project_id, branch_id, finding_id, mission_type, query, query_hash,
	question, rationale, status, priority, result_meta, last_error,
	created_at, updated_at, COALESCE(completed_at, ''), dedup_hash
	FROM verification_missions`

func scanMission(scan func(...any) error) (*models.Mission, error) {
	var m models.Mission
	var created, updated, completed string
	err := scan(&m.ID, &m.ProjectID, &m.BranchID, &m.FindingID, &m.Type, &m.Query, &m.QueryHash,
		&m.Question, &m.Rationale, &m.Status, &m.Priority, &m.ResultMeta, &m.LastError,
		&created, &updated, &completed, &m.DedupHash)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	if completed != "" {
		t := parseTime(completed)
		m.CompletedAt = &t
	}
	return &m, nil
}
