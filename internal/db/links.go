package db

import (
	"time"

	"github.com/marcus/vault/internal/models"
)

// UpsertSynthesisLink records a similarity link between two content records.
// The pair is stored with the lexically smaller id first, so (a,b) and (b,a)
// are the same link; re-recording replaces the metadata in place.
func (db *DB) UpsertSynthesisLink(a, b, metadata string) error {
	sourceID, targetID := a, b
	if targetID < sourceID {
		sourceID, targetID = targetID, sourceID
	}
	return withRetry(func() error {
		_, err := db.conn.Exec(
			`INSERT OR REPLACE INTO links (source_id, target_id, link_type, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			sourceID, targetID, models.SynthesisLinkType, metadata, now(),
		)
		return err
	})
}

// ListSynthesisLinks returns all similarity links touching the given entity
// ids (typically one branch's findings and artifacts).
func (db *DB) ListSynthesisLinks(entityIDs []string) ([]*models.Link, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	members := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		members[id] = true
	}

	rows, err := db.conn.Query(
		"SELECT id, source_id, target_id, link_type, metadata, created_at FROM links WHERE link_type = ?",
		models.SynthesisLinkType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.Link
	for rows.Next() {
		var l models.Link
		var created string
		if err := rows.Scan(&l.ID, &l.SourceID, &l.TargetID, &l.LinkType, &l.Metadata, &created); err != nil {
			return nil, err
		}
		if !members[l.SourceID] && !members[l.TargetID] {
			continue
		}
		l.CreatedAt = parseTime(created)
		links = append(links, &l)
	}
	return links, rows.Err()
}

// CountSynthesisLinks returns how many similarity links touch the given
// entity ids.
func (db *DB) CountSynthesisLinks(entityIDs []string) (int, error) {
	links, err := db.ListSynthesisLinks(entityIDs)
	if err != nil {
		return 0, err
	}
	return len(links), nil
}

// LatestSynthesisLinkTime returns the creation time of the newest similarity
// link touching the given entity ids, or the zero time when none exist.
func (db *DB) LatestSynthesisLinkTime(entityIDs []string) (time.Time, error) {
	links, err := db.ListSynthesisLinks(entityIDs)
	if err != nil {
		return time.Time{}, err
	}
	var latest time.Time
	for _, l := range links {
		if l.CreatedAt.After(latest) {
			latest = l.CreatedAt
		}
	}
	return latest, nil
}
