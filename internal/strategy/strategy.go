// Package strategy inspects a branch's state and recommends the next
// research action.
package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/search"
	"github.com/marcus/vault/internal/synthesis"
	"github.com/marcus/vault/internal/verify"
)

// Actions the advisor can recommend.
const (
	ActionScuttle    = "SCUTTLE"
	ActionSynthesize = "SYNTHESIZE"
	ActionVerifyPlan = "VERIFY_PLAN"
	ActionVerifyRun  = "VERIFY_RUN"
)

const (
	verifyConfidenceThreshold = 0.7
	synthesisDensity          = 8
	bootstrapDensity          = 2
	minFindings               = 3
	minCoverage               = 0.25
)

// State is the branch snapshot the recommendation is computed from.
type State struct {
	Findings       int     `json:"findings"`
	Artifacts      int     `json:"artifacts"`
	Events         int     `json:"events"`
	ShakyFindings  int     `json:"shaky_findings"`
	OpenMissions   int     `json:"open_missions"`
	Blocked        int     `json:"blocked_missions"`
	Links          int     `json:"links"`
	AvgConfidence  float64 `json:"avg_confidence"`
	Coverage       float64 `json:"coverage"`
	Density        int     `json:"density"`
	Synthesized    bool    `json:"synthesized"`
	SynthesisStale bool    `json:"synthesis_stale"`
}

// Recommendation is the advisor's answer.
type Recommendation struct {
	Action        string  `json:"action"`
	Reason        string  `json:"reason"`
	ProgressScore float64 `json:"progress_score"`
	State         *State  `json:"state"`
}

// Analyze builds the state snapshot for a branch.
func Analyze(store *db.DB, projectID, branch string) (*State, error) {
	branchID, err := store.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	findings, err := store.ListFindings(projectID, branch, "", 10000)
	if err != nil {
		return nil, err
	}
	artifacts, err := store.ListArtifacts(projectID, branch, 10000)
	if err != nil {
		return nil, err
	}
	events, err := store.CountEvents(projectID, branchID)
	if err != nil {
		return nil, err
	}
	missionCounts, err := store.CountMissionsByStatus(projectID, branchID)
	if err != nil {
		return nil, err
	}

	st := &State{
		Findings:     len(findings),
		Artifacts:    len(artifacts),
		Events:       events,
		OpenMissions: missionCounts[models.MissionOpen],
		Blocked:      missionCounts[models.MissionBlocked],
	}
	st.Density = st.Findings + st.Artifacts

	var confSum float64
	var latestContent time.Time
	sources := make(map[string]bool)
	var entityIDs []string
	for _, f := range findings {
		confSum += f.Confidence
		entityIDs = append(entityIDs, f.ID)
		if f.Confidence < verifyConfidenceThreshold || strings.Contains(f.Tags, "unverified") {
			st.ShakyFindings++
		}
		if host := dominantSource(f.Evidence); host != "" {
			sources[host] = true
		}
		if f.CreatedAt.After(latestContent) {
			latestContent = f.CreatedAt
		}
	}
	for _, a := range artifacts {
		entityIDs = append(entityIDs, a.ID)
		if a.CreatedAt.After(latestContent) {
			latestContent = a.CreatedAt
		}
	}
	if st.Findings > 0 {
		st.AvgConfidence = confSum / float64(st.Findings)
	}

	// Coverage: distinct evidence sources relative to findings, capped at 1.
	if st.Findings > 0 {
		st.Coverage = float64(len(sources)) / float64(st.Findings)
		if st.Coverage > 1 {
			st.Coverage = 1
		}
	}

	links, err := store.ListSynthesisLinks(entityIDs)
	if err != nil {
		return nil, err
	}
	st.Links = len(links)
	st.Synthesized = len(links) > 0
	if st.Synthesized {
		latestLink, err := store.LatestSynthesisLinkTime(entityIDs)
		if err != nil {
			return nil, err
		}
		st.SynthesisStale = latestContent.After(latestLink)
	}
	return st, nil
}

// Recommend applies the action precedence to a state snapshot.
//
// Verification outranks everything: shaky findings without a queue plan one,
// an existing queue runs. Dense branches with stale links re-synthesize.
// Thin branches gather more. The bootstrap case synthesizes a branch that
// has content but has never been linked.
func Recommend(st *State) *Recommendation {
	rec := &Recommendation{State: st, ProgressScore: progressScore(st)}

	switch {
	case st.ShakyFindings > 0 && st.OpenMissions == 0:
		rec.Action = ActionVerifyPlan
		rec.Reason = fmt.Sprintf("%d findings need verification and no missions are queued", st.ShakyFindings)
	case st.OpenMissions > 0:
		rec.Action = ActionVerifyRun
		rec.Reason = fmt.Sprintf("%d verification missions are waiting to run", st.OpenMissions)
	case st.Density >= synthesisDensity && (!st.Synthesized || st.SynthesisStale):
		rec.Action = ActionSynthesize
		rec.Reason = fmt.Sprintf("%d records accumulated since the last synthesis pass", st.Density)
	case st.Findings < minFindings || st.Coverage < minCoverage:
		rec.Action = ActionScuttle
		rec.Reason = fmt.Sprintf("only %d findings from %.0f%% source coverage", st.Findings, st.Coverage*100)
	case st.Density >= bootstrapDensity && !st.Synthesized:
		rec.Action = ActionSynthesize
		rec.Reason = "content exists but has never been cross-linked"
	default:
		rec.Action = ActionScuttle
		rec.Reason = "no pending work; broaden the evidence base"
	}
	return rec
}

// progressScore blends coverage, density, and confidence, with a penalty
// for a backed-up mission queue. Result is clamped to [0,1].
func progressScore(st *State) float64 {
	density := float64(st.Density) / 20
	if density > 1 {
		density = 1
	}
	score := 0.45*st.Coverage + 0.35*density + 0.20*st.AvgConfidence

	penalty := float64(st.OpenMissions+st.Blocked) / 40
	if penalty > 0.25 {
		penalty = 0.25
	}
	score -= penalty

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Advise analyzes a branch and returns the recommendation.
func Advise(store *db.DB, projectID, branch string) (*Recommendation, error) {
	st, err := Analyze(store, projectID, branch)
	if err != nil {
		return nil, err
	}
	return Recommend(st), nil
}

// Execute carries out a recommended action. SCUTTLE needs a human to choose
// sources, so it is reported rather than executed.
func Execute(ctx context.Context, store *db.DB, client *search.Client, projectID, branch string, rec *Recommendation) (any, error) {
	switch rec.Action {
	case ActionVerifyPlan:
		return verify.Plan(store, projectID, branch, verify.PlanOptions{})
	case ActionVerifyRun:
		res, err := verify.Run(ctx, store, client, projectID, branch, verify.RunOptions{})
		if err != nil {
			return nil, err
		}
		if res.Done != res.Attempted {
			return res, fmt.Errorf("%d of %d missions did not complete", res.Attempted-res.Done, res.Attempted)
		}
		return res, nil
	case ActionSynthesize:
		return synthesis.Run(store, projectID, branch, synthesis.Options{})
	case ActionScuttle:
		return nil, fmt.Errorf("%s is not automatable: ingest new sources with 'vault scuttle'", ActionScuttle)
	default:
		return nil, fmt.Errorf("unknown action %q", rec.Action)
	}
}

// dominantSource pulls the evidence source host, or "" when absent.
func dominantSource(evidence string) string {
	var ev struct {
		SourceURL string `json:"source_url"`
	}
	if err := json.Unmarshal([]byte(evidence), &ev); err != nil || ev.SourceURL == "" {
		return ""
	}
	u, err := url.Parse(ev.SourceURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
