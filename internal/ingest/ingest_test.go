package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
)

type stubConnector struct {
	name    string
	match   string
	draft   *ArtifactDraft
	fetches int
	err     error
}

func (s *stubConnector) Name() string { return s.name }
func (s *stubConnector) CanHandle(source string) bool {
	return source == s.match
}
func (s *stubConnector) Fetch(ctx context.Context, source string) (*ArtifactDraft, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.draft, nil
}

func testStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Initialize(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.CreateProject("p", "", ""); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestIngestNoConnector(t *testing.T) {
	svc := &Service{store: testStore(t)}
	svc.Register(&stubConnector{name: "only", match: "https://known.example/x"})

	_, err := svc.Ingest(context.Background(), "p", "", "ftp://unknown.example/y")
	if !errors.Is(err, models.ErrNoConnector) {
		t.Fatalf("error = %v, want ErrNoConnector", err)
	}
}

func TestIngestFetchErrorKeepsCause(t *testing.T) {
	svc := &Service{store: testStore(t)}
	cause := errors.New("upstream timeout")
	svc.Register(&stubConnector{name: "flaky", match: "https://a.example/", err: cause})

	_, err := svc.Ingest(context.Background(), "p", "", "https://a.example/")
	if errors.Is(err, models.ErrNoConnector) {
		t.Error("fetch failure must not look like a routing failure")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error = %v, want wrapped cause", err)
	}
}

func TestIngestFirstMatchWins(t *testing.T) {
	store := testStore(t)
	svc := &Service{store: store}
	first := &stubConnector{
		name: "first", match: "https://both.example/",
		draft: &ArtifactDraft{Title: "From first", Content: "c", SourceURL: "https://both.example/", Confidence: 0.8},
	}
	second := &stubConnector{
		name: "second", match: "https://both.example/",
		draft: &ArtifactDraft{Title: "From second", Content: "c", SourceURL: "https://both.example/", Confidence: 0.8},
	}
	svc.Register(first)
	svc.Register(second)

	res, err := svc.Ingest(context.Background(), "p", "", "https://both.example/")
	if err != nil {
		t.Fatal(err)
	}
	if res.Connector != "first" || second.fetches != 0 {
		t.Errorf("routing picked %q, second fetched %d times", res.Connector, second.fetches)
	}
}

func TestIngestPersistsFindingAndEvent(t *testing.T) {
	store := testStore(t)
	svc := &Service{store: store}
	svc.Register(&stubConnector{
		name: "stub", match: "https://src.example/page",
		draft: &ArtifactDraft{
			Title: "A result", Content: "body text", SourceURL: "https://src.example/page",
			Confidence: 0.8, Tags: []string{"web"},
		},
	})

	res, err := svc.Ingest(context.Background(), "p", "", "https://src.example/page")
	if err != nil {
		t.Fatal(err)
	}

	f, err := store.GetFinding(res.FindingID)
	if err != nil {
		t.Fatalf("finding not stored: %v", err)
	}
	if f.Title != "A result" || f.Confidence != 0.8 {
		t.Errorf("stored finding = %+v", f)
	}

	events, _ := store.ListRecentEvents("p", "", 10)
	if len(events) != 1 || events[0].Type != "INGEST" {
		t.Errorf("expected one INGEST event, got %+v", events)
	}
}

func TestConnectorRouting(t *testing.T) {
	video := NewVideoConnector()
	wiki := NewEncyclopediaConnector()
	social := NewSocialConnector()
	web := NewWebConnector()

	cases := []struct {
		source                   string
		video, wiki, social, web bool
	}{
		{"https://www.youtube.com/watch?v=abc", true, false, false, true},
		{"https://en.wikipedia.org/wiki/Quantum_computing", false, true, false, true},
		{"https://x.com/someone/status/1", false, false, true, true},
		{"https://example.com/article", false, false, false, true},
		{"not a url", false, false, false, false},
	}
	for _, tc := range cases {
		if got := video.CanHandle(tc.source); got != tc.video {
			t.Errorf("video.CanHandle(%q) = %v", tc.source, got)
		}
		if got := wiki.CanHandle(tc.source); got != tc.wiki {
			t.Errorf("wiki.CanHandle(%q) = %v", tc.source, got)
		}
		if got := social.CanHandle(tc.source); got != tc.social {
			t.Errorf("social.CanHandle(%q) = %v", tc.source, got)
		}
		if got := web.CanHandle(tc.source); got != tc.web {
			t.Errorf("web.CanHandle(%q) = %v", tc.source, got)
		}
	}
}

func TestCheckURLBlocksInternal(t *testing.T) {
	bad := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"http://localhost/admin",
		"http://127.0.0.1:8080/",
		"http://169.254.169.254/latest/meta-data/",
		"http://printer.local/",
		"http://db.internal/",
		"http://[::1]/",
	}
	for _, u := range bad {
		if _, err := checkURL(context.Background(), u); err == nil {
			t.Errorf("checkURL(%q) accepted a blocked destination", u)
		}
	}
}

func TestCheckURLAllowPrivateOverride(t *testing.T) {
	ctx := AllowPrivate(context.Background())
	if _, err := checkURL(ctx, "http://127.0.0.1:8080/notes"); err != nil {
		t.Errorf("checkURL with private networks allowed rejected loopback: %v", err)
	}
	// Scheme checks still apply.
	if _, err := checkURL(ctx, "file:///etc/passwd"); err == nil {
		t.Error("checkURL accepted a non-HTTP scheme under the override")
	}
}
