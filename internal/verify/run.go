package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
	"github.com/marcus/vault/internal/search"
)

// RunOptions tune mission execution.
type RunOptions struct {
	Limit int // missions per run, default 5
}

// RunResult summarizes one execution pass.
type RunResult struct {
	Attempted int `json:"attempted"`
	Done      int `json:"done"`
	Blocked   int `json:"blocked"`
	Failed    int `json:"failed"` // transient failures, returned to the queue
}

// Run claims the highest-priority open missions and executes their queries
// through the search client. A missing API key blocks the mission; other
// failures reopen it for a later run.
func Run(ctx context.Context, store *db.DB, client *search.Client, projectID, branch string, opts RunOptions) (*RunResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	branchID, err := store.ResolveBranchID(projectID, branch)
	if err != nil {
		return nil, err
	}

	missions, err := store.SelectOpenMissions(projectID, branchID, opts.Limit)
	if err != nil {
		return nil, err
	}

	res := &RunResult{Attempted: len(missions)}
	for _, m := range missions {
		resp, err := client.Search(ctx, m.Query)
		switch {
		case errors.Is(err, models.ErrMissingAPIKey):
			if err := store.BlockMission(m.ID, err.Error()); err != nil {
				return nil, err
			}
			res.Blocked++
		case err != nil:
			if err := store.ReopenMission(m.ID, err.Error()); err != nil {
				return nil, err
			}
			res.Failed++
		default:
			meta, err := resultMeta(m, resp)
			if err != nil {
				return nil, err
			}
			if err := store.CompleteMission(m.ID, meta); err != nil {
				return nil, err
			}
			res.Done++
		}
	}

	if _, err := store.AppendEvent(projectID, branch, "VERIFY_RUN", 0, res, 1.0, "verify", ""); err != nil {
		return nil, err
	}
	return res, nil
}

func resultMeta(m *models.Mission, resp *search.Response) (string, error) {
	meta := map[string]any{
		"query_hash":   m.QueryHash,
		"result_count": len(resp.Results),
	}
	if len(resp.Results) > 0 {
		meta["top_url"] = resp.Results[0].URL
		meta["top_title"] = resp.Results[0].Title
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode result meta: %w", err)
	}
	return string(raw), nil
}
