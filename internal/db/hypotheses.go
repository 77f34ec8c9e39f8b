package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/marcus/vault/internal/models"
)

// AddHypothesis attaches a falsifiable statement to a branch.
func (db *DB) AddHypothesis(projectID, branch, statement, rationale string, confidence float64) (*models.Hypothesis, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, fmt.Errorf("%w: hypothesis statement is required", models.ErrValidation)
	}
	if !models.IsValidConfidence(confidence) {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", models.ErrValidation, confidence)
	}
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	h := &models.Hypothesis{
		ID:         newHypothesisID(),
		BranchID:   branchID,
		Statement:  statement,
		Rationale:  rationale,
		Confidence: confidence,
		Status:     models.HypothesisOpen,
	}
	ts := now()
	err = withRetry(func() error {
		_, err := db.conn.Exec(
			`INSERT INTO hypotheses (id, branch_id, statement, rationale, confidence, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, h.BranchID, h.Statement, h.Rationale, h.Confidence, h.Status, ts, ts,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.CreatedAt = parseTime(ts)
	h.UpdatedAt = h.CreatedAt
	return h, nil
}

// UpdateHypothesisStatus transitions a hypothesis and optionally adjusts its
// confidence. Pass confidence < 0 to leave it unchanged.
func (db *DB) UpdateHypothesisStatus(id, status string, confidence float64) error {
	if !models.IsValidHypothesisStatus(status) {
		return fmt.Errorf("%w: invalid status %q", models.ErrValidation, status)
	}
	if confidence >= 0 && !models.IsValidConfidence(confidence) {
		return fmt.Errorf("%w: confidence %v outside [0,1]", models.ErrValidation, confidence)
	}
	return withRetry(func() error {
		var res sql.Result
		var err error
		if confidence >= 0 {
			res, err = db.conn.Exec(
				"UPDATE hypotheses SET status = ?, confidence = ?, updated_at = ? WHERE id = ?",
				status, confidence, now(), id,
			)
		} else {
			res, err = db.conn.Exec(
				"UPDATE hypotheses SET status = ?, updated_at = ? WHERE id = ?",
				status, now(), id,
			)
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("hypothesis %q: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

// ListHypotheses returns hypotheses for a project, joined with their branch
// name. branch filters to a single branch when non-empty.
func (db *DB) ListHypotheses(projectID, branch string) ([]*models.Hypothesis, error) {
	query := `SELECT h.id, h.branch_id, b.name, h.statement, h.rationale, h.confidence, h.status, h.created_at, h.updated_at
		 FROM hypotheses h JOIN branches b ON h.branch_id = b.id
		 WHERE b.project_id = ?`
	args := []any{projectID}
	if branch != "" {
		query += " AND b.name = ?"
		args = append(args, branch)
	}
	query += " ORDER BY h.created_at ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hypotheses []*models.Hypothesis
	for rows.Next() {
		var h models.Hypothesis
		var created, updated string
		if err := rows.Scan(&h.ID, &h.BranchID, &h.Branch, &h.Statement, &h.Rationale, &h.Confidence, &h.Status, &created, &updated); err != nil {
			return nil, err
		}
		h.CreatedAt = parseTime(created)
		h.UpdatedAt = parseTime(updated)
		hypotheses = append(hypotheses, &h)
	}
	return hypotheses, rows.Err()
}
