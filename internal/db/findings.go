package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/scrub"
)

// AddFinding persists a scrubbed finding on a branch. Evidence may be nil;
// when a source URL is known, pass it in evidence under "source_url".
func (db *DB) AddFinding(projectID, branch, title, content string, evidence map[string]any, confidence float64, tags string) (*models.Finding, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: finding title is required", models.ErrValidation)
	}
	if !models.IsValidConfidence(confidence) {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", models.ErrValidation, confidence)
	}
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	if evidence == nil {
		evidence = map[string]any{}
	}
	raw, err := json.Marshal(scrub.Value(evidence))
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}

	f := &models.Finding{
		ID:         newFindingID(),
		ProjectID:  projectID,
		BranchID:   branchID,
		Title:      scrub.Text(title),
		Content:    scrub.Text(content),
		Evidence:   string(raw),
		Confidence: confidence,
		Tags:       scrub.Text(tags),
	}
	ts := now()
	err = withRetry(func() error {
		_, err := db.conn.Exec(
			`INSERT INTO findings (id, project_id, branch_id, title, content, evidence, confidence, tags, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.ProjectID, f.BranchID, f.Title, f.Content, f.Evidence, f.Confidence, f.Tags, ts,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(ts)
	return f, nil
}

// GetFinding fetches a finding by id.
func (db *DB) GetFinding(id string) (*models.Finding, error) {
	row := db.conn.QueryRow(
		`SELECT id, project_id, COALESCE(branch_id, ''), title, content, evidence, confidence, tags, created_at
		 FROM findings WHERE id = ?`, id,
	)
	f, err := scanFinding(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("finding %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFindings returns a branch's findings, newest first. tag filters by
// substring match against the comma-separated tag field; empty means all.
func (db *DB) ListFindings(projectID, branch, tag string, limit int) ([]*models.Finding, error) {
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, project_id, COALESCE(branch_id, ''), title, content, evidence, confidence, tags, created_at
		 FROM findings WHERE project_id = ? AND branch_id = ?`
	args := []any{projectID, branchID}
	if tag != "" {
		query += " AND tags LIKE ?"
		args = append(args, "%"+tag+"%")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []*models.Finding
	for rows.Next() {
		f, err := scanFinding(rows.Scan)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// CountFindings returns the number of findings on a branch.
func (db *DB) CountFindings(projectID, branchID string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM findings WHERE project_id = ? AND branch_id = ?",
		projectID, branchID,
	).Scan(&n)
	return n, err
}

func scanFinding(scan func(...any) error) (*models.Finding, error) {
	var f models.Finding
	var created string
	err := scan(&f.ID, &f.ProjectID, &f.BranchID, &f.Title, &f.Content, &f.Evidence, &f.Confidence, &f.Tags, &created)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(created)
	return &f, nil
}
