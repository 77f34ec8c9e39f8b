package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
)

// PlanOptions tune mission planning. Zero values take the defaults.
type PlanOptions struct {
	ConfidenceThreshold float64 // findings below this need verification, default 0.7
	MaxMissions         int     // cap per planning pass, default 10
}

func (o *PlanOptions) defaults() {
	if o.ConfidenceThreshold == 0 {
		o.ConfidenceThreshold = 0.7
	}
	if o.MaxMissions == 0 {
		o.MaxMissions = 10
	}
}

// PlanResult summarizes one planning pass.
type PlanResult struct {
	Candidates int `json:"candidates"`
	Created    int `json:"created"`
	Skipped    int `json:"skipped"` // duplicates of already-planned missions
}

// Plan creates verification missions for a branch's shaky findings: those
// below the confidence threshold or tagged unverified. Planning is
// idempotent; re-running creates nothing new for unchanged findings.
func Plan(store *db.DB, projectID, branch string, opts PlanOptions) (*PlanResult, error) {
	opts.defaults()

	branchID, err := store.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}
	findings, err := store.ListFindings(projectID, branch, "", 10000)
	if err != nil {
		return nil, err
	}

	res := &PlanResult{}
	for _, f := range findings {
		if res.Created >= opts.MaxMissions {
			break
		}
		if f.Confidence >= opts.ConfidenceThreshold && !strings.Contains(f.Tags, "unverified") {
			continue
		}
		res.Candidates++

		priority := missionPriority(f.Confidence)
		for _, query := range queryVariants(f) {
			if res.Created >= opts.MaxMissions {
				break
			}
			qhash := db.QueryHash(query)
			m := &models.Mission{
				ID:        models.MissionIDPrefix + randomHex(10),
				ProjectID: projectID,
				BranchID:  branchID,
				FindingID: f.ID,
				Type:      "verify",
				Query:     query,
				QueryHash: qhash,
				Question:  fmt.Sprintf("Does independent evidence support %q?", f.Title),
				Rationale: fmt.Sprintf("confidence %.2f below %.2f or tagged unverified", f.Confidence, opts.ConfidenceThreshold),
				Priority:  priority,
				DedupHash: missionDedupHash(projectID, branchID, f.ID, qhash),
			}
			inserted, err := store.InsertMission(m)
			if err != nil {
				return nil, err
			}
			if inserted {
				res.Created++
			} else {
				res.Skipped++
			}
		}
	}

	if _, err := store.AppendEvent(projectID, branch, "VERIFY_PLAN", 0, res, 1.0, "verify", ""); err != nil {
		return nil, err
	}
	return res, nil
}

// missionPriority maps low confidence to high urgency on a 0..100 scale.
func missionPriority(confidence float64) int {
	p := int(math.Round((1 - confidence) * 100))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}

func missionDedupHash(projectID, branchID, findingID, queryHash string) string {
	sum := sha256.Sum256([]byte(projectID + "|" + branchID + "|" + findingID + "|" + queryHash))
	return hex.EncodeToString(sum[:])
}

// queryVariants builds the search queries for one finding: the bare title,
// title plus distinctive content terms, a site-restricted query when the
// evidence names a source, the keywords alone, and an explicit evidence
// probe. Blank and duplicate variants are dropped.
func queryVariants(f *models.Finding) []string {
	title := strings.TrimSpace(f.Title)
	keywords := extractKeywords(f.Content, 5)

	var variants []string
	if title != "" {
		variants = append(variants, title)
	}
	if title != "" && len(keywords) > 0 {
		variants = append(variants, title+" "+strings.Join(keywords, " "))
	}
	if host := evidenceHost(f.Evidence); host != "" && title != "" {
		variants = append(variants, "site:"+host+" "+title)
	}
	if len(keywords) > 0 {
		variants = append(variants, strings.Join(keywords, " "))
	}
	if title != "" {
		variants = append(variants, fmt.Sprintf("%q evidence", title))
	}

	seen := make(map[string]bool)
	out := variants[:0]
	for _, v := range variants {
		norm := db.NormalizeQuery(v)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, v)
	}
	return out
}

func evidenceHost(evidence string) string {
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

func randomHex(n int) string {
	h := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}
