package db

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

var queryWhitespace = regexp.MustCompile(`\s+`)

// NormalizeQuery folds case and collapses whitespace so equivalent queries
// share one cache entry.
func NormalizeQuery(q string) string {
	return queryWhitespace.ReplaceAllString(strings.TrimSpace(strings.ToLower(q)), " ")
}

// QueryHash returns the cache key for a query.
func QueryHash(q string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(q)))
	return hex.EncodeToString(sum[:])
}

// CheckSearch looks up a cached result for the query. The second return is
// false on a miss or when the entry is older than ttl.
func (db *DB) CheckSearch(query string, ttl time.Duration) ([]byte, bool) {
	var result, ts string
	err := db.conn.QueryRow(
		"SELECT result, timestamp FROM search_cache WHERE query_hash = ?", QueryHash(query),
	).Scan(&result, &ts)
	if err != nil {
		return nil, false
	}
	if ttl > 0 && time.Since(parseTime(ts)) > ttl {
		return nil, false
	}
	return []byte(result), true
}

// LogSearch stores a search result, replacing any stale entry for the same
// normalized query.
func (db *DB) LogSearch(query string, result []byte) error {
	return withRetry(func() error {
		_, err := db.conn.Exec(
			"INSERT OR REPLACE INTO search_cache (query_hash, query, result, timestamp) VALUES (?, ?, ?, ?)",
			QueryHash(query), NormalizeQuery(query), string(result), now(),
		)
		return err
	})
}
