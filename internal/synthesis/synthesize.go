package synthesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
)

const (
	// Above this many entities, all-pairs comparison gives way to bucketing.
	allPairsLimit = 200
	// Number of strongest vector dimensions used as bucket keys.
	bucketFeatures = 24
	// Buckets outside this population range are skipped.
	bucketMin = 2
	bucketMax = 60
)

// Options tune a synthesis pass. Zero values take the defaults.
type Options struct {
	Threshold float64 // minimum similarity to record, default 0.78
	TopK      int     // max links per entity, default 5
	MaxLinks  int     // max links per pass, default 50
	DryRun    bool    // score and count without persisting links
}

func (o *Options) defaults() {
	if o.Threshold == 0 {
		o.Threshold = 0.78
	}
	if o.TopK == 0 {
		o.TopK = 5
	}
	if o.MaxLinks == 0 {
		o.MaxLinks = 50
	}
}

// Result summarizes a synthesis pass.
type Result struct {
	Entities   int     `json:"entities"`
	Candidates int     `json:"candidates"`
	Linked     int     `json:"linked"`
	Threshold  float64 `json:"threshold"`
}

type entity struct {
	id     string
	kind   string
	text   string
	vector []float32
}

type scoredPair struct {
	a, b  string
	score float64
}

// Run embeds a branch's findings and artifacts, scores candidate pairs, and
// persists similarity links for pairs at or above the threshold. Re-running
// on unchanged content produces the same links, not duplicates.
func Run(store *db.DB, projectID, branch string, opts Options) (*Result, error) {
	opts.defaults()

	branchID, err := store.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	entities, err := loadEntities(store, projectID, branch)
	if err != nil {
		return nil, err
	}
	res := &Result{Entities: len(entities), Threshold: opts.Threshold}
	if len(entities) < 2 {
		return res, nil
	}

	for _, e := range entities {
		if err := ensureVector(store, e); err != nil {
			return nil, err
		}
	}

	pairs := candidatePairs(entities)
	res.Candidates = len(pairs)

	var scored []scoredPair
	for _, p := range pairs {
		score := Cosine(p[0].vector, p[1].vector)
		if score >= opts.Threshold {
			scored = append(scored, scoredPair{a: p[0].id, b: p[1].id, score: score})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	degree := make(map[string]int)
	linked := 0
	for _, sp := range scored {
		if linked >= opts.MaxLinks {
			break
		}
		if degree[sp.a] >= opts.TopK || degree[sp.b] >= opts.TopK {
			continue
		}
		if !opts.DryRun {
			meta, err := json.Marshal(map[string]any{
				"score":     sp.score,
				"model":     ModelName,
				"dims":      Dims,
				"branch_id": branchID,
			})
			if err != nil {
				return nil, err
			}
			if err := store.UpsertSynthesisLink(sp.a, sp.b, string(meta)); err != nil {
				return nil, fmt.Errorf("record link %s <-> %s: %w", sp.a, sp.b, err)
			}
		}
		degree[sp.a]++
		degree[sp.b]++
		linked++
	}
	res.Linked = linked

	if opts.DryRun {
		return res, nil
	}
	if _, err := store.AppendEvent(projectID, branch, "SYNTHESIS", 0, res, 1.0, "synthesis", ""); err != nil {
		return nil, err
	}
	return res, nil
}

func loadEntities(store *db.DB, projectID, branch string) ([]*entity, error) {
	findings, err := store.ListFindings(projectID, branch, "", 10000)
	if err != nil {
		return nil, err
	}
	artifacts, err := store.ListArtifacts(projectID, branch, 10000)
	if err != nil {
		return nil, err
	}

	var entities []*entity
	for _, f := range findings {
		entities = append(entities, &entity{
			id: f.ID, kind: "finding", text: f.Title + "\n" + f.Content,
		})
	}
	for _, a := range artifacts {
		entities = append(entities, &entity{
			id: a.ID, kind: "artifact", text: a.Path + "\n" + a.Metadata,
		})
	}
	return entities, nil
}

// ensureVector fills e.vector from the embedding cache when the content is
// unchanged, recomputing and storing otherwise.
func ensureVector(store *db.DB, e *entity) error {
	hash := ContentHash(e.text)
	cached, err := store.GetEmbedding(e.kind, e.id, ModelName)
	if err == nil && cached.ContentHash == hash {
		e.vector = cached.Vector
		return nil
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	e.vector = Embed(e.text)
	return store.UpsertEmbedding(&models.Embedding{
		EntityType:  e.kind,
		EntityID:    e.id,
		Model:       ModelName,
		Dims:        Dims,
		Vector:      e.vector,
		ContentHash: hash,
	})
}

// candidatePairs returns the pairs worth scoring. Small sets compare
// all-pairs; larger sets bucket entities by their strongest vector
// dimensions so only plausibly-similar pairs are compared.
func candidatePairs(entities []*entity) [][2]*entity {
	if len(entities) <= allPairsLimit {
		var pairs [][2]*entity
		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				pairs = append(pairs, [2]*entity{entities[i], entities[j]})
			}
		}
		return pairs
	}

	buckets := make(map[int][]*entity)
	for _, e := range entities {
		for _, idx := range topFeatures(e.vector, bucketFeatures) {
			buckets[idx] = append(buckets[idx], e)
		}
	}

	seen := make(map[[2]string]bool)
	var pairs [][2]*entity
	for _, members := range buckets {
		if len(members) < bucketMin || len(members) > bucketMax {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i], members[j]
				key := [2]string{a.id, b.id}
				if b.id < a.id {
					key = [2]string{b.id, a.id}
				}
				if seen[key] {
					continue
				}
				seen[key] = true
				pairs = append(pairs, [2]*entity{a, b})
			}
		}
	}
	return pairs
}

// topFeatures returns the indices of the n largest-magnitude dimensions.
func topFeatures(vec []float32, n int) []int {
	type feat struct {
		idx int
		mag float64
	}
	feats := make([]feat, 0, len(vec))
	for i, v := range vec {
		if v != 0 {
			feats = append(feats, feat{idx: i, mag: float64(v) * float64(v)})
		}
	}
	sort.Slice(feats, func(i, j int) bool {
		if feats[i].mag != feats[j].mag {
			return feats[i].mag > feats[j].mag
		}
		return feats[i].idx < feats[j].idx
	})
	if len(feats) > n {
		feats = feats[:n]
	}
	out := make([]int, len(feats))
	for i, f := range feats {
		out[i] = f.idx
	}
	return out
}
