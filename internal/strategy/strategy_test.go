package strategy

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/search"
)

func TestRecommendPrecedence(t *testing.T) {
	cases := []struct {
		name string
		st   State
		want string
	}{
		{
			name: "shaky findings without queue plan verification",
			st:   State{Findings: 10, ShakyFindings: 3, Coverage: 0.8, Density: 10},
			want: ActionVerifyPlan,
		},
		{
			name: "queued missions run even when density is high",
			st:   State{Findings: 10, ShakyFindings: 3, OpenMissions: 4, Coverage: 0.8, Density: 20, SynthesisStale: true},
			want: ActionVerifyRun,
		},
		{
			name: "dense stale branch synthesizes",
			st:   State{Findings: 10, Coverage: 0.8, Density: 12, Synthesized: true, SynthesisStale: true},
			want: ActionSynthesize,
		},
		{
			name: "dense never-synthesized branch synthesizes",
			st:   State{Findings: 10, Coverage: 0.8, Density: 12},
			want: ActionSynthesize,
		},
		{
			name: "thin branch gathers more",
			st:   State{Findings: 2, Coverage: 0.9, Density: 2},
			want: ActionScuttle,
		},
		{
			name: "low coverage gathers more",
			st:   State{Findings: 6, Coverage: 0.1, Density: 6},
			want: ActionScuttle,
		},
		{
			name: "bootstrap synthesis for unlinked content",
			st:   State{Findings: 4, Coverage: 0.5, Density: 4},
			want: ActionSynthesize,
		},
		{
			name: "settled branch falls back to gathering",
			st:   State{Findings: 4, Coverage: 0.5, Density: 4, Synthesized: true},
			want: ActionScuttle,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Recommend(&tc.st)
			if rec.Action != tc.want {
				t.Errorf("action = %s, want %s (reason: %s)", rec.Action, tc.want, rec.Reason)
			}
		})
	}
}

func TestProgressScore(t *testing.T) {
	full := State{Coverage: 1, Density: 20, AvgConfidence: 1}
	if got := progressScore(&full); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("full progress = %v, want 1", got)
	}

	empty := State{}
	if got := progressScore(&empty); got != 0 {
		t.Errorf("empty progress = %v, want 0", got)
	}

	backlogged := full
	backlogged.OpenMissions = 100
	if got := progressScore(&backlogged); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("backlog penalty capped score = %v, want 0.75", got)
	}
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

type fakeProvider struct{}

func (fakeProvider) Search(ctx context.Context, q string) ([]search.Result, error) {
	return []search.Result{{Title: "Hit", URL: "https://example.com/"}}, nil
}

func TestAdviseThenExecuteVerificationCycle(t *testing.T) {
	store := testStore(t)
	evidence := map[string]any{"source_url": "https://site.example/doc"}
	if _, err := store.AddFinding("p", "", "Claim zero", "claim body text here", evidence, 0.4, ""); err != nil {
		t.Fatal(err)
	}
	client := search.NewClient(store, fakeProvider{}, time.Hour)

	rec, err := Advise(store, "p", "")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Action != ActionVerifyPlan {
		t.Fatalf("first advice = %s, want VERIFY_PLAN", rec.Action)
	}
	if _, err := Execute(context.Background(), store, client, "p", "", rec); err != nil {
		t.Fatalf("execute plan: %v", err)
	}

	rec, err = Advise(store, "p", "")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Action != ActionVerifyRun {
		t.Fatalf("second advice = %s, want VERIFY_RUN", rec.Action)
	}
	if _, err := Execute(context.Background(), store, client, "p", "", rec); err != nil {
		t.Fatalf("execute run: %v", err)
	}

	open, _ := store.ListMissions("p", "", models.MissionOpen, 0)
	if len(open) != 0 {
		t.Errorf("%d missions still open after the cycle", len(open))
	}
}

func TestExecuteScuttleNotAutomatable(t *testing.T) {
	store := testStore(t)
	rec := &Recommendation{Action: ActionScuttle}
	if _, err := Execute(context.Background(), store, nil, "p", "", rec); err == nil {
		t.Error("SCUTTLE execution should fail with guidance")
	}
}
