package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
)

type fakeProvider struct {
	calls   int
	results []Result
	err     error
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func testStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Initialize(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSearchCachesResults(t *testing.T) {
	store := testStore(t)
	fake := &fakeProvider{results: []Result{{Title: "Hit", URL: "https://example.com"}}}
	client := NewClient(store, fake, time.Hour)

	resp, err := client.Search(context.Background(), "Quantum Codes")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Cached {
		t.Error("first call should not be cached")
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Hit" {
		t.Errorf("results = %+v", resp.Results)
	}

	// Equivalent query, provider must not be hit again.
	resp, err = client.Search(context.Background(), "  quantum   codes ")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Cached {
		t.Error("second call should be cached")
	}
	if fake.calls != 1 {
		t.Errorf("provider called %d times, want 1", fake.calls)
	}
}

func TestSearchProviderErrorNotCached(t *testing.T) {
	store := testStore(t)
	fake := &fakeProvider{err: models.ErrMissingAPIKey}
	client := NewClient(store, fake, time.Hour)

	_, err := client.Search(context.Background(), "anything")
	if !errors.Is(err, models.ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}

	// After the key appears, the query goes live rather than hit a cached error.
	fake.err = nil
	fake.results = []Result{{Title: "Later"}}
	resp, err := client.Search(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Cached || len(resp.Results) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestBraveProviderMissingKey(t *testing.T) {
	p := NewBraveProvider("")
	_, err := p.Search(context.Background(), "q")
	if !errors.Is(err, models.ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}
