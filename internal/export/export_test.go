package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
)

func seededStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Initialize(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	if _, err := store.CreateProject("demo", "Demo", "explore the demo space"); err != nil {
		t.Fatal(err)
	}
	evidence := map[string]any{"source_url": "https://example.com/ref"}
	if _, err := store.AddFinding("demo", "", "First", "the first finding body", evidence, 0.9, "web"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddHypothesis("demo", "", "The demo holds", "early signals agree", 0.6); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRenderMarkdown(t *testing.T) {
	store := seededStore(t)
	snap, err := Build(store, "demo", "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(snap, FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}

	md := string(out)
	for _, want := range []string{"# Demo", "### First", "https://example.com/ref", "The demo holds"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	store := seededStore(t)
	snap, err := Build(store, "demo", "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(snap, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.Project.ID != "demo" || len(decoded.Findings) != 1 {
		t.Errorf("decoded snapshot = %+v", decoded)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	snap := &Snapshot{Project: &models.Project{}, Branch: &models.Branch{}}
	_, err := Render(snap, "xml")
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestWriteFileStaysInsideBase(t *testing.T) {
	store := seededStore(t)
	snap, err := Build(store, "demo", "")
	if err != nil {
		t.Fatal(err)
	}
	base := t.TempDir()

	good := filepath.Join(base, "out", "demo.md")
	if err := WriteFile(snap, FormatMarkdown, good, base); err != nil {
		t.Fatalf("WriteFile inside base: %v", err)
	}
	if _, err := os.Stat(good); err != nil {
		t.Errorf("export file not written: %v", err)
	}

	bad := filepath.Join(base, "..", "escape.md")
	if err := WriteFile(snap, FormatMarkdown, bad, base); !errors.Is(err, models.ErrValidation) {
		t.Errorf("traversal error = %v, want ErrValidation", err)
	}
}

func TestBuildUnknownBranch(t *testing.T) {
	store := seededStore(t)
	_, err := Build(store, "demo", "ghost")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
