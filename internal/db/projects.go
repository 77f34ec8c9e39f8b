package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/marcus/vault/internal/models"
)

// CreateProject inserts a new project and its deterministic main branch.
// The project id is caller-chosen; re-creating an existing id fails with
// models.ErrAlreadyExists and leaves the stored record untouched.
func (db *DB) CreateProject(id, name, objective string) (*models.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: project id is required", models.ErrValidation)
	}
	if name == "" {
		name = id
	}

	ts := now()
	err := withRetry(func() error {
		tx, err := db.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var existing string
		err = tx.QueryRow("SELECT id FROM projects WHERE id = ?", id).Scan(&existing)
		if err == nil {
			return fmt.Errorf("project %q: %w", id, models.ErrAlreadyExists)
		}
		if err != sql.ErrNoRows {
			return err
		}

		if _, err := tx.Exec(
			"INSERT INTO projects (id, name, objective, status, created_at, priority) VALUES (?, ?, ?, ?, ?, 0)",
			id, name, objective, models.ProjectActive, ts,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO branches (id, project_id, name, parent_id, hypothesis, status, created_at)
			 VALUES (?, ?, ?, NULL, '', 'active', ?)`,
			branchIDFor(id, models.DefaultBranch), id, models.DefaultBranch, ts,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return db.GetProject(id)
}

// GetProject fetches a project by id.
func (db *DB) GetProject(id string) (*models.Project, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, objective, status, created_at, priority FROM projects WHERE id = ?", id,
	)
	var p models.Project
	var created string
	err := row.Scan(&p.ID, &p.Name, &p.Objective, &p.Status, &created, &p.Priority)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

// ListProjects returns all projects ordered by priority then creation time.
func (db *DB) ListProjects() ([]*models.Project, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, objective, status, created_at, priority FROM projects ORDER BY priority DESC, created_at ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		var created string
		if err := rows.Scan(&p.ID, &p.Name, &p.Objective, &p.Status, &created, &p.Priority); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// UpdateProjectStatus transitions a project to a new lifecycle status.
func (db *DB) UpdateProjectStatus(id, status string) error {
	if !models.IsValidProjectStatus(status) {
		return fmt.Errorf("%w: invalid status %q", models.ErrValidation, status)
	}
	return withRetry(func() error {
		res, err := db.conn.Exec("UPDATE projects SET status = ? WHERE id = ?", status, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("project %q: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

// UpdateProjectPriority sets a project's scheduling priority.
func (db *DB) UpdateProjectPriority(id string, priority int) error {
	return withRetry(func() error {
		res, err := db.conn.Exec("UPDATE projects SET priority = ? WHERE id = ?", priority, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("project %q: %w", id, models.ErrNotFound)
		}
		return nil
	})
}
