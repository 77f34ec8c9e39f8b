package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/scrub"
)

// AddArtifact records an ingested external reference. Metadata is scrubbed
// before persistence.
func (db *DB) AddArtifact(projectID, branch, artifactType, path string, metadata map[string]any) (*models.Artifact, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: artifact path is required", models.ErrValidation)
	}
	if artifactType == "" {
		artifactType = "file"
	}
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(scrub.Value(metadata))
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	a := &models.Artifact{
		ID:        newArtifactID(),
		ProjectID: projectID,
		BranchID:  branchID,
		Type:      artifactType,
		Path:      path,
		Metadata:  string(raw),
	}
	ts := now()
	err = withRetry(func() error {
		_, err := db.conn.Exec(
			`INSERT INTO artifacts (id, project_id, branch_id, type, path, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.ProjectID, a.BranchID, a.Type, a.Path, a.Metadata, ts,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(ts)
	return a, nil
}

// GetArtifact fetches an artifact by id.
func (db *DB) GetArtifact(id string) (*models.Artifact, error) {
	row := db.conn.QueryRow(
		`SELECT id, project_id, COALESCE(branch_id, ''), type, path, metadata, created_at
		 FROM artifacts WHERE id = ?`, id,
	)
	var a models.Artifact
	var created string
	err := row.Scan(&a.ID, &a.ProjectID, &a.BranchID, &a.Type, &a.Path, &a.Metadata, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artifact %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// ListArtifacts returns a branch's artifacts, newest first.
func (db *DB) ListArtifacts(projectID, branch string, limit int) ([]*models.Artifact, error) {
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, COALESCE(branch_id, ''), type, path, metadata, created_at
		 FROM artifacts WHERE project_id = ? AND branch_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		projectID, branchID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*models.Artifact
	for rows.Next() {
		var a models.Artifact
		var created string
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.BranchID, &a.Type, &a.Path, &a.Metadata, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(created)
		artifacts = append(artifacts, &a)
	}
	return artifacts, rows.Err()
}
