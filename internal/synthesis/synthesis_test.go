package synthesis

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/marcus/vault/internal/db"
)

func TestEmbedDeterministic(t *testing.T) {
	a := Embed("quantum error correction with surface codes")
	b := Embed("quantum error correction with surface codes")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different vectors at dim %d", i)
		}
	}
}

func TestEmbedNormalized(t *testing.T) {
	v := Embed("superconducting qubit coherence times")
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("vector norm^2 = %v, want 1", norm)
	}
}

func TestEmbedEmptyText(t *testing.T) {
	for _, text := range []string{"", "the and for", "a b c"} {
		v := Embed(text)
		for i, x := range v {
			if x != 0 {
				t.Errorf("Embed(%q)[%d] = %v, want zero vector", text, i, x)
			}
		}
	}
}

func TestCosineSimilarTextsScoreHigher(t *testing.T) {
	a := Embed("quantum error correction using stabilizer codes on superconducting hardware")
	b := Embed("stabilizer codes for quantum error correction in superconducting systems")
	c := Embed("sourdough bread fermentation and hydration ratios")

	similar := Cosine(a, b)
	unrelated := Cosine(a, c)
	if similar <= unrelated {
		t.Errorf("similar texts scored %v, unrelated %v", similar, unrelated)
	}
	if Cosine(a, a) < 0.999 {
		t.Errorf("self similarity = %v, want ~1", Cosine(a, a))
	}
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

func seedFindings(t *testing.T, store *db.DB) {
	t.Helper()
	if _, err := store.CreateProject("p", "", ""); err != nil {
		t.Fatal(err)
	}
	texts := []struct{ title, content string }{
		{"Surface codes", "quantum error correction with surface codes on superconducting qubits"},
		{"Stabilizer review", "stabilizer codes for quantum error correction superconducting systems overview"},
		{"Bread notes", "sourdough bread fermentation hydration ratios baking schedule"},
	}
	for _, tx := range texts {
		if _, err := store.AddFinding("p", "", tx.title, tx.content, nil, 0.9, ""); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunLinksSimilarFindings(t *testing.T) {
	store := testStore(t)
	seedFindings(t, store)

	res, err := Run(store, "p", "", Options{Threshold: 0.3})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Entities != 3 {
		t.Errorf("entities = %d, want 3", res.Entities)
	}
	if res.Linked < 1 {
		t.Error("expected at least one link between the two quantum findings")
	}
}

func TestRunIdempotent(t *testing.T) {
	store := testStore(t)
	seedFindings(t, store)

	first, err := Run(store, "p", "", Options{Threshold: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Run(store, "p", "", Options{Threshold: 0.3}); err != nil {
		t.Fatal(err)
	}

	findings, _ := store.ListFindings("p", "", "", 0)
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.ID)
	}
	links, err := store.ListSynthesisLinks(ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != first.Linked {
		t.Errorf("after re-run got %d links, want %d", len(links), first.Linked)
	}
}

func TestRunDryRunPersistsNothing(t *testing.T) {
	store := testStore(t)
	seedFindings(t, store)

	res, err := Run(store, "p", "", Options{Threshold: 0.3, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Linked < 1 {
		t.Error("dry run reported no linkable pairs")
	}

	findings, _ := store.ListFindings("p", "", "", 0)
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.ID)
	}
	links, err := store.ListSynthesisLinks(ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Errorf("dry run stored %d links", len(links))
	}
}

func TestRunTooFewEntities(t *testing.T) {
	store := testStore(t)
	if _, err := store.CreateProject("p", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddFinding("p", "", "solo", "only one finding here", nil, 0.9, ""); err != nil {
		t.Fatal(err)
	}

	res, err := Run(store, "p", "", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Linked != 0 || res.Candidates != 0 {
		t.Errorf("single entity pass produced links: %+v", res)
	}
}
