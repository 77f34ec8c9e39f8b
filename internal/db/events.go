package db

import (
	"encoding/json"
	"fmt"

	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/scrub"
)

// AppendEvent writes an audit row. The payload is scrubbed before persistence
// and the branch name resolves to an id (empty means main). Events are
// append-only; there is no update or delete path.
func (db *DB) AppendEvent(projectID, branch, eventType string, step int, payload any, confidence float64, source, tags string) (*models.Event, error) {
	if eventType == "" {
		return nil, fmt.Errorf("%w: event type is required", models.ErrValidation)
	}
	if !models.IsValidConfidence(confidence) {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", models.ErrValidation, confidence)
	}
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(scrub.Value(payload))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if source == "" {
		source = "unknown"
	}

	ts := now()
	var id int64
	err = withRetry(func() error {
		res, err := db.conn.Exec(
			`INSERT INTO events (project_id, branch_id, event_type, step, payload, confidence, source, tags, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			projectID, branchID, eventType, step, string(raw), confidence, source, tags, ts,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.Event{
		ID:         id,
		ProjectID:  projectID,
		BranchID:   branchID,
		Type:       eventType,
		Step:       step,
		Payload:    string(raw),
		Confidence: confidence,
		Source:     source,
		Tags:       tags,
		Timestamp:  parseTime(ts),
	}, nil
}

// NextStep returns one past the highest recorded step for a branch, so
// callers that do not track their own counter get a monotonic default.
func (db *DB) NextStep(projectID, branchID string) (int, error) {
	var maxStep int
	err := db.conn.QueryRow(
		"SELECT COALESCE(MAX(step), 0) FROM events WHERE project_id = ? AND branch_id = ?",
		projectID, branchID,
	).Scan(&maxStep)
	if err != nil {
		return 0, err
	}
	return maxStep + 1, nil
}

// ListRecentEvents returns the newest events for a branch, newest first.
func (db *DB) ListRecentEvents(projectID, branch string, limit int) ([]*models.Event, error) {
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, branch_id, event_type, step, payload, confidence, source, tags, timestamp
		 FROM events WHERE project_id = ? AND branch_id = ?
		 ORDER BY id DESC LIMIT ?`,
		projectID, branchID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		var ts string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.BranchID, &e.Type, &e.Step, &e.Payload, &e.Confidence, &e.Source, &e.Tags, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// CountEvents returns the number of events recorded for a branch.
func (db *DB) CountEvents(projectID, branchID string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM events WHERE project_id = ? AND branch_id = ?",
		projectID, branchID,
	).Scan(&n)
	return n, err
}
