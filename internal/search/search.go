// Package search runs web queries through a pluggable provider with a
// database-backed cache in front.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus/vault/internal/db"
)

// Result is one hit from a provider.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Response is a full provider answer for one query.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Cached  bool     `json:"cached"`
}

// Provider executes a live search.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Client wraps a provider with the shared result cache.
type Client struct {
	store    *db.DB
	provider Provider
	ttl      time.Duration
}

// NewClient builds a caching search client. ttl <= 0 disables expiry.
func NewClient(store *db.DB, provider Provider, ttl time.Duration) *Client {
	return &Client{store: store, provider: provider, ttl: ttl}
}

// Search answers from the cache when a fresh equivalent query exists and
// falls through to the provider otherwise. Provider results are cached
// before being returned.
func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	if cached, ok := c.store.CheckSearch(query, c.ttl); ok {
		var results []Result
		if err := json.Unmarshal(cached, &results); err == nil {
			return &Response{Query: query, Results: results, Cached: true}, nil
		}
		// Undecodable cache rows are treated as misses and overwritten.
	}

	results, err := c.provider.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	if err := c.store.LogSearch(query, raw); err != nil {
		return nil, fmt.Errorf("cache results: %w", err)
	}
	return &Response{Query: query, Results: results, Cached: false}, nil
}
