package verify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/search"
)

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

func TestPlanTargetsShakyFindings(t *testing.T) {
	store := testStore(t)
	if _, err := store.AddFinding("p", "", "Solid claim", "well sourced content", nil, 0.95, "verified"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddFinding("p", "", "Shaky claim", "thin sourcing here", nil, 0.4, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddFinding("p", "", "Tagged claim", "looks fine numerically", nil, 0.9, "unverified"); err != nil {
		t.Fatal(err)
	}

	res, err := Plan(store, "p", "", PlanOptions{MaxMissions: 100})
	if err != nil {
		t.Fatal(err)
	}
	if res.Candidates != 2 {
		t.Errorf("candidates = %d, want 2 (low confidence + unverified tag)", res.Candidates)
	}
	if res.Created == 0 {
		t.Error("no missions created")
	}

	missions, _ := store.ListMissions("p", "", "", 0)
	for _, m := range missions {
		if m.Status != models.MissionOpen {
			t.Errorf("mission %s status = %q, want open", m.ID, m.Status)
		}
	}
}

func TestPlanIdempotent(t *testing.T) {
	store := testStore(t)
	if _, err := store.AddFinding("p", "", "Shaky claim", "thin sourcing here", nil, 0.4, ""); err != nil {
		t.Fatal(err)
	}

	first, err := Plan(store, "p", "", PlanOptions{MaxMissions: 100})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Plan(store, "p", "", PlanOptions{MaxMissions: 100})
	if err != nil {
		t.Fatal(err)
	}
	if second.Created != 0 {
		t.Errorf("re-plan created %d missions, want 0", second.Created)
	}
	if second.Skipped != first.Created {
		t.Errorf("re-plan skipped %d, want %d", second.Skipped, first.Created)
	}
}

func TestMissionPriority(t *testing.T) {
	cases := []struct {
		confidence float64
		want       int
	}{
		{0.0, 100},
		{0.4, 60},
		{0.7, 30},
		{1.0, 0},
	}
	for _, tc := range cases {
		if got := missionPriority(tc.confidence); got != tc.want {
			t.Errorf("missionPriority(%v) = %d, want %d", tc.confidence, got, tc.want)
		}
	}
}

func TestQueryVariants(t *testing.T) {
	f := &models.Finding{
		Title:    "Surface codes reduce logical error rates",
		Content:  "surface codes lower logical error rates in superconducting qubit experiments",
		Evidence: `{"source_url":"https://arxiv.org/abs/1234.5678"}`,
	}
	variants := queryVariants(f)
	if len(variants) == 0 {
		t.Fatal("no variants produced")
	}
	if variants[0] != f.Title {
		t.Errorf("first variant = %q, want bare title", variants[0])
	}

	hasSite := false
	seen := make(map[string]bool)
	for _, v := range variants {
		norm := db.NormalizeQuery(v)
		if seen[norm] {
			t.Errorf("duplicate variant %q", v)
		}
		seen[norm] = true
		if len(v) > 5 && v[:5] == "site:" {
			hasSite = true
		}
	}
	if !hasSite {
		t.Error("expected a site-restricted variant from the evidence URL")
	}
}

type fakeProvider struct {
	err     error
	results []search.Result
}

func (f *fakeProvider) Search(ctx context.Context, q string) ([]search.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestRunCompletesMissions(t *testing.T) {
	store := testStore(t)
	if _, err := store.AddFinding("p", "", "Shaky claim", "thin sourcing here", nil, 0.4, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := Plan(store, "p", "", PlanOptions{MaxMissions: 3}); err != nil {
		t.Fatal(err)
	}

	client := search.NewClient(store, &fakeProvider{
		results: []search.Result{{Title: "Corroboration", URL: "https://example.com/a"}},
	}, time.Hour)

	res, err := Run(context.Background(), store, client, "p", "", RunOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Done != res.Attempted || res.Done == 0 {
		t.Errorf("run result = %+v, want all attempted done", res)
	}

	done, _ := store.ListMissions("p", "", models.MissionDone, 0)
	for _, m := range done {
		if m.ResultMeta == "" {
			t.Errorf("mission %s completed without result meta", m.ID)
		}
	}
}

func TestRunMissingKeyBlocks(t *testing.T) {
	store := testStore(t)
	if _, err := store.AddFinding("p", "", "Shaky claim", "thin sourcing here", nil, 0.4, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := Plan(store, "p", "", PlanOptions{MaxMissions: 2}); err != nil {
		t.Fatal(err)
	}

	client := search.NewClient(store, &fakeProvider{err: models.ErrMissingAPIKey}, time.Hour)
	res, err := Run(context.Background(), store, client, "p", "", RunOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Blocked != res.Attempted {
		t.Errorf("blocked = %d, attempted = %d; missing key must block, not fail", res.Blocked, res.Attempted)
	}

	open, _ := store.ListMissions("p", "", models.MissionOpen, 0)
	if len(open) != 0 {
		t.Errorf("%d missions back in open after a blocking error", len(open))
	}
}

func TestRunTransientErrorReopens(t *testing.T) {
	store := testStore(t)
	if _, err := store.AddFinding("p", "", "Shaky claim", "thin sourcing here", nil, 0.4, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := Plan(store, "p", "", PlanOptions{MaxMissions: 1}); err != nil {
		t.Fatal(err)
	}

	client := search.NewClient(store, &fakeProvider{err: context.DeadlineExceeded}, time.Hour)
	res, err := Run(context.Background(), store, client, "p", "", RunOptions{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 {
		t.Errorf("failed = %d, want 1", res.Failed)
	}

	open, _ := store.ListMissions("p", "", models.MissionOpen, 0)
	if len(open) != 1 {
		t.Errorf("transient failure left %d open missions, want 1", len(open))
	}
	if open[0].LastError == "" {
		t.Error("reopened mission lost its error")
	}
}
