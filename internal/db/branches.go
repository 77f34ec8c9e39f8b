package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/marcus/vault/internal/models"
)

// CreateBranch adds a named branch to a project. Branch names are unique per
// project; a duplicate name fails with models.ErrAlreadyExists. parentName
// may be empty, in which case the branch forks from main.
func (db *DB) CreateBranch(projectID, name, parentName, hypothesis string) (*models.Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: branch name is required", models.ErrValidation)
	}
	if _, err := db.GetProject(projectID); err != nil {
		return nil, err
	}

	parentID := ""
	if parentName == "" {
		parentName = models.DefaultBranch
	}
	if name != models.DefaultBranch {
		parent, err := db.GetBranch(projectID, parentName)
		if err != nil {
			return nil, fmt.Errorf("parent branch: %w", err)
		}
		parentID = parent.ID
	}

	id := branchIDFor(projectID, name)
	ts := now()
	err := withRetry(func() error {
		var existing string
		err := db.conn.QueryRow(
			"SELECT id FROM branches WHERE project_id = ? AND name = ?", projectID, name,
		).Scan(&existing)
		if err == nil {
			return fmt.Errorf("branch %q: %w", name, models.ErrAlreadyExists)
		}
		if err != sql.ErrNoRows {
			return err
		}
		_, err = db.conn.Exec(
			`INSERT INTO branches (id, project_id, name, parent_id, hypothesis, status, created_at)
			 VALUES (?, ?, ?, NULLIF(?, ''), ?, 'active', ?)`,
			id, projectID, name, parentID, hypothesis, ts,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return db.GetBranch(projectID, name)
}

// GetBranch fetches a branch by project and name.
func (db *DB) GetBranch(projectID, name string) (*models.Branch, error) {
	row := db.conn.QueryRow(
		`SELECT id, project_id, name, COALESCE(parent_id, ''), hypothesis, status, created_at
		 FROM branches WHERE project_id = ? AND name = ?`, projectID, name,
	)
	var b models.Branch
	var created string
	err := row.Scan(&b.ID, &b.ProjectID, &b.Name, &b.ParentID, &b.Hypothesis, &b.Status, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("branch %q in project %q: %w", name, projectID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	b.CreatedAt = parseTime(created)
	return &b, nil
}

// ResolveBranchID maps a branch name to its id, defaulting to main when the
// name is empty. The main branch is created on demand so older databases and
// fresh projects behave the same.
func (db *DB) ResolveBranchID(projectID, name string) (string, error) {
	if name == "" {
		name = models.DefaultBranch
	}
	b, err := db.GetBranch(projectID, name)
	if err == nil {
		return b.ID, nil
	}
	if name != models.DefaultBranch {
		return "", err
	}

	id := branchIDFor(projectID, models.DefaultBranch)
	insertErr := withRetry(func() error {
		_, err := db.conn.Exec(
			`INSERT OR IGNORE INTO branches (id, project_id, name, parent_id, hypothesis, status, created_at)
			 VALUES (?, ?, ?, NULL, '', 'active', ?)`,
			id, projectID, models.DefaultBranch, now(),
		)
		return err
	})
	if insertErr != nil {
		return "", insertErr
	}
	return id, nil
}

// ListBranches returns a project's branches ordered by creation time, main
// first.
func (db *DB) ListBranches(projectID string) ([]*models.Branch, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, name, COALESCE(parent_id, ''), hypothesis, status, created_at
		 FROM branches WHERE project_id = ?
		 ORDER BY CASE WHEN name = ? THEN 0 ELSE 1 END, created_at ASC`,
		projectID, models.DefaultBranch,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		var b models.Branch
		var created string
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Name, &b.ParentID, &b.Hypothesis, &b.Status, &created); err != nil {
			return nil, err
		}
		b.CreatedAt = parseTime(created)
		branches = append(branches, &b)
	}
	return branches, rows.Err()
}
