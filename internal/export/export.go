// Package export writes a branch's research state to markdown or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcus/vault/internal/db"
	"github.com/marcus/vault/internal/models"
)

// Formats accepted by Render.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Snapshot is everything an export contains.
type Snapshot struct {
	Project     *models.Project      `json:"project"`
	Branch      *models.Branch       `json:"branch"`
	Findings    []*models.Finding    `json:"findings"`
	Artifacts   []*models.Artifact   `json:"artifacts"`
	Hypotheses  []*models.Hypothesis `json:"hypotheses"`
	Links       []*models.Link       `json:"links"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Build collects a branch's state for export.
func Build(store *db.DB, projectID, branch string) (*Snapshot, error) {
	p, err := store.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if branch == "" {
		branch = models.DefaultBranch
	}
	b, err := store.GetBranch(projectID, branch)
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
	hypotheses, err := store.ListHypotheses(projectID, branch)
	if err != nil {
		return nil, err
	}

	var entityIDs []string
	for _, f := range findings {
		entityIDs = append(entityIDs, f.ID)
	}
	for _, a := range artifacts {
		entityIDs = append(entityIDs, a.ID)
	}
	links, err := store.ListSynthesisLinks(entityIDs)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Project:     p,
		Branch:      b,
		Findings:    findings,
		Artifacts:   artifacts,
		Hypotheses:  hypotheses,
		Links:       links,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Render serializes a snapshot in the requested format.
func Render(snap *Snapshot, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(snap, "", "  ")
	case FormatMarkdown, "":
		return renderMarkdown(snap), nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", models.ErrValidation, format)
	}
}

// WriteFile renders a snapshot to path. The destination must stay inside
// baseDir; path traversal outside it is rejected.
func WriteFile(snap *Snapshot, format, path, baseDir string) error {
	out, err := Render(snap, format)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absBase, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: export path %s escapes %s", models.ErrValidation, path, baseDir)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	return os.WriteFile(abs, out, 0644)
}

func renderMarkdown(snap *Snapshot) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", snap.Project.Name)
	fmt.Fprintf(&b, "**Objective:** %s\n\n", snap.Project.Objective)
	fmt.Fprintf(&b, "**Branch:** %s | **Status:** %s | **Exported:** %s\n\n",
		snap.Branch.Name, snap.Project.Status, snap.GeneratedAt.Format(time.RFC3339))
	if snap.Branch.Hypothesis != "" {
		fmt.Fprintf(&b, "> %s\n\n", snap.Branch.Hypothesis)
	}

	fmt.Fprintf(&b, "## Findings (%d)\n\n", len(snap.Findings))
	for _, f := range snap.Findings {
		fmt.Fprintf(&b, "### %s\n\n", f.Title)
		fmt.Fprintf(&b, "%s\n\n", f.Content)
		fmt.Fprintf(&b, "- Confidence: %.2f\n", f.Confidence)
		if f.Tags != "" {
			fmt.Fprintf(&b, "- Tags: %s\n", f.Tags)
		}
		if url := sourceURL(f.Evidence); url != "" {
			fmt.Fprintf(&b, "- Source: %s\n", url)
		}
		b.WriteString("\n")
	}

	if len(snap.Hypotheses) > 0 {
		fmt.Fprintf(&b, "## Hypotheses (%d)\n\n", len(snap.Hypotheses))
		for _, h := range snap.Hypotheses {
			fmt.Fprintf(&b, "- **%s** (%s, confidence %.2f)", h.Statement, h.Status, h.Confidence)
			if h.Rationale != "" {
				fmt.Fprintf(&b, ": %s", h.Rationale)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(snap.Artifacts) > 0 {
		fmt.Fprintf(&b, "## Artifacts (%d)\n\n", len(snap.Artifacts))
		for _, a := range snap.Artifacts {
			fmt.Fprintf(&b, "- [%s] %s\n", a.Type, a.Path)
		}
		b.WriteString("\n")
	}

	if len(snap.Links) > 0 {
		fmt.Fprintf(&b, "## Connections (%d)\n\n", len(snap.Links))
		for _, l := range snap.Links {
			fmt.Fprintf(&b, "- %s <-> %s\n", l.SourceID, l.TargetID)
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}

func sourceURL(evidence string) string {
	var ev struct {
		SourceURL string `json:"source_url"`
	}
	if err := json.Unmarshal([]byte(evidence), &ev); err != nil {
		return ""
	}
	return ev.SourceURL
}
