package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/marcus/vault/internal/models"
)

var watchWhitespace = regexp.MustCompile(`\s+`)

// normalizeWatchTarget canonicalizes a target for dedup purposes. Query
// targets fold case and collapse whitespace; URL targets only fold case.
func normalizeWatchTarget(targetType, target string) string {
	target = strings.TrimSpace(strings.ToLower(target))
	if targetType == models.WatchTypeQuery {
		target = watchWhitespace.ReplaceAllString(target, " ")
	}
	return target
}

func watchDedupHash(projectID, branchID, targetType, target string) string {
	sum := sha256.Sum256([]byte(projectID + "|" + branchID + "|" + targetType + "|" + normalizeWatchTarget(targetType, target)))
	return hex.EncodeToString(sum[:])
}

// AddWatchTarget registers a target for periodic re-checking. Re-adding an
// equivalent target returns the existing record with created reporting false.
func (db *DB) AddWatchTarget(projectID, branch, targetType, target, tags string, intervalSec int) (wt *models.WatchTarget, created bool, err error) {
	if targetType != models.WatchTypeURL && targetType != models.WatchTypeQuery {
		return nil, false, fmt.Errorf("%w: invalid watch target type %q", models.ErrValidation, targetType)
	}
	if strings.TrimSpace(target) == "" {
		return nil, false, fmt.Errorf("%w: watch target is required", models.ErrValidation)
	}
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, false, err
	}
	if intervalSec <= 0 {
		intervalSec = 3600
	}

	dedup := watchDedupHash(projectID, branchID, targetType, target)
	id := newWatchID()
	ts := now()
	err = withRetry(func() error {
		res, err := db.conn.Exec(
			`INSERT OR IGNORE INTO watch_targets
			 (id, project_id, branch_id, target_type, target, tags, interval_s, status,
			  last_run_at, last_result_hash, last_error, created_at, updated_at, dedup_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, '', '', ?, ?, ?)`,
			id, projectID, branchID, targetType, target, tags, intervalSec,
			models.WatchActive, ts, ts, dedup,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n > 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	row := db.conn.QueryRow(watchSelect+" WHERE dedup_hash = ?", dedup)
	wt, err = scanWatchTarget(row.Scan)
	if err != nil {
		return nil, false, err
	}
	return wt, created, nil
}

// ListWatchTargets returns a branch's watch targets, active first.
func (db *DB) ListWatchTargets(projectID, branch string, includeDisabled bool) ([]*models.WatchTarget, error) {
	branchID, err := db.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	query := watchSelect + " WHERE project_id = ? AND branch_id = ?"
	args := []any{projectID, branchID}
	if !includeDisabled {
		query += " AND status = ?"
		args = append(args, models.WatchActive)
	}
	query += " ORDER BY created_at ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*models.WatchTarget
	for rows.Next() {
		wt, err := scanWatchTarget(rows.Scan)
		if err != nil {
			return nil, err
		}
		targets = append(targets, wt)
	}
	return targets, rows.Err()
}

// DisableWatchTarget takes a target out of rotation without deleting it.
func (db *DB) DisableWatchTarget(id string) error {
	return withRetry(func() error {
		res, err := db.conn.Exec(
			"UPDATE watch_targets SET status = ?, updated_at = ? WHERE id = ?",
			models.WatchDisabled, now(), id,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("watch target %q: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

// RecordWatchRun stores the outcome of checking a target.
func (db *DB) RecordWatchRun(id, resultHash, lastError string) error {
	ts := now()
	return withRetry(func() error {
		res, err := db.conn.Exec(
			"UPDATE watch_targets SET last_run_at = ?, last_result_hash = ?, last_error = ?, updated_at = ? WHERE id = ?",
			ts, resultHash, lastError, ts, id,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("watch target %q: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

const watchSelect = `SELECT id, project_id, branch_id, target_type, target, tags, interval_s, status,
	COALESCE(last_run_at, ''), last_result_hash, last_error, created_at, updated_at, dedup_hash
	FROM watch_targets`

func scanWatchTarget(scan func(...any) error) (*models.WatchTarget, error) {
	var wt models.WatchTarget
	var lastRun, created, updated string
	err := scan(&wt.ID, &wt.ProjectID, &wt.BranchID, &wt.Type, &wt.Target, &wt.Tags, &wt.IntervalSec,
		&wt.Status, &lastRun, &wt.LastResultHash, &wt.LastError, &created, &updated, &wt.DedupHash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("watch target: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if lastRun != "" {
		t := parseTime(lastRun)
		wt.LastRunAt = &t
	}
	wt.CreatedAt = parseTime(created)
	wt.UpdatedAt = parseTime(updated)
	return &wt, nil
}
