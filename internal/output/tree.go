package output

import (
	"strings"

	"github.com/marcus/vault/internal/models"
)

// BranchNode is one branch in the rendered fork tree.
type BranchNode struct {
	ID         string
	Name       string
	Hypothesis string
	Status     string
	Children   []BranchNode
}

// statusMark returns a branch status indicator symbol
func statusMark(status string) string {
	switch status {
	case "active":
		return " ●" // ●
	case "merged":
		return " ✓" // ✓
	case "abandoned":
		return " ✗" // ✗
	default:
		return ""
	}
}

// BuildBranchTree arranges a project's branches by parentage, main first.
// Branches whose parent is missing surface as extra roots rather than
// disappearing.
func BuildBranchTree(branches []*models.Branch) []BranchNode {
	byID := make(map[string]*models.Branch, len(branches))
	for _, b := range branches {
		byID[b.ID] = b
	}

	children := make(map[string][]*models.Branch)
	var roots []*models.Branch
	for _, b := range branches {
		if b.ParentID == "" || byID[b.ParentID] == nil {
			roots = append(roots, b)
			continue
		}
		children[b.ParentID] = append(children[b.ParentID], b)
	}

	var build func(b *models.Branch) BranchNode
	build = func(b *models.Branch) BranchNode {
		node := BranchNode{ID: b.ID, Name: b.Name, Hypothesis: b.Hypothesis, Status: b.Status}
		for _, c := range children[b.ID] {
			node.Children = append(node.Children, build(c))
		}
		return node
	}

	out := make([]BranchNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}

// RenderBranchTree renders the fork structure with box-drawing connectors.
func RenderBranchTree(roots []BranchNode) string {
	return strings.Join(renderNodes(roots, ""), "\n")
}

func renderNodes(nodes []BranchNode, prefix string) []string {
	var lines []string

	for i, node := range nodes {
		isLast := i == len(nodes)-1

		connector := "├── " // ├──
		if isLast {
			connector = "└── " // └──
		}

		line := prefix + connector + node.Name + statusMark(node.Status)
		if node.Hypothesis != "" {
			line += "  (" + node.Hypothesis + ")"
		}
		lines = append(lines, line)

		childPrefix := prefix
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   " // │
		}
		lines = append(lines, renderNodes(node.Children, childPrefix)...)
	}

	return lines
}
