package output

import (
	"strings"
	"testing"

	"github.com/marcus/vault/internal/models"
)

func TestBuildBranchTree(t *testing.T) {
	branches := []*models.Branch{
		{ID: "br_p_main", Name: "main", Status: "active"},
		{ID: "br_p_alt", Name: "alt", ParentID: "br_p_main", Status: "active", Hypothesis: "thermal origin"},
		{ID: "br_p_deep", Name: "deep", ParentID: "br_p_alt", Status: "active"},
	}

	roots := BuildBranchTree(branches)
	if len(roots) != 1 || roots[0].Name != "main" {
		t.Fatalf("roots = %+v, want single main root", roots)
	}
	if len(roots[0].Children) != 1 || roots[0].Children[0].Name != "alt" {
		t.Fatalf("main children = %+v", roots[0].Children)
	}
	if len(roots[0].Children[0].Children) != 1 || roots[0].Children[0].Children[0].Name != "deep" {
		t.Errorf("alt children = %+v", roots[0].Children[0].Children)
	}
}

func TestBuildBranchTreeOrphanedParent(t *testing.T) {
	branches := []*models.Branch{
		{ID: "br_p_main", Name: "main", Status: "active"},
		{ID: "br_p_lost", Name: "lost", ParentID: "br_p_gone", Status: "active"},
	}
	roots := BuildBranchTree(branches)
	if len(roots) != 2 {
		t.Errorf("got %d roots, want orphan promoted to root", len(roots))
	}
}

func TestRenderBranchTree(t *testing.T) {
	roots := []BranchNode{
		{Name: "main", Status: "active", Children: []BranchNode{
			{Name: "alt", Status: "active", Hypothesis: "thermal origin"},
			{Name: "side", Status: "abandoned"},
		}},
	}

	out := RenderBranchTree(roots)
	for _, want := range []string{"main", "alt", "thermal origin", "\u251c\u2500\u2500", "\u2514\u2500\u2500"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered tree missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Errorf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "\u2502") && !strings.HasPrefix(lines[1], " ") {
		t.Errorf("child line not indented: %q", lines[1])
	}
}
