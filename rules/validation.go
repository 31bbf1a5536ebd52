package rules

import (
	"fmt"
	"math"
	"strings"
)

const maxNodes = 1000

// ValidateTree checks that t is a well-formed binary tree over known facts.
// Returns an error describing the first problem found, nil if t is valid.
func ValidateTree(t Tree) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree cannot be empty, must contain at least one node")
	}
	if len(t.Nodes) > maxNodes {
		return fmt.Errorf("tree contains %d nodes, maximum allowed is %d", len(t.Nodes), maxNodes)
	}

	known := make(map[string]bool)
	for _, name := range FactNames() {
		known[name] = true
	}

	byID := make(map[string]Node, len(t.Nodes))
	for _, n := range t.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("node id cannot be empty")
		}
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		byID[n.ID] = n
	}

	for _, n := range t.Nodes {
		if err := validateNode(n, known, byID); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
	}

	if _, ok := byID[t.Root]; !ok {
		return fmt.Errorf("root %q does not name a node", t.Root)
	}

	// Depth-first walk from the root: grey nodes are on the current path.
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(byID))
	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case grey:
			return fmt.Errorf("cycle through node %q", id)
		case black:
			return nil
		}
		color[id] = grey
		if n := byID[id]; !n.IsLeaf() {
			if err := visit(n.LE); err != nil {
				return err
			}
			if err := visit(n.GT); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	if err := visit(t.Root); err != nil {
		return err
	}

	for _, n := range t.Nodes {
		if color[n.ID] != black {
			return fmt.Errorf("node %q is unreachable from root %q", n.ID, t.Root)
		}
	}
	return nil
}

func validateNode(n Node, known map[string]bool, byID map[string]Node) error {
	if n.IsLeaf() {
		if n.LE != "" || n.GT != "" {
			return fmt.Errorf("leaf cannot have children")
		}
		if !n.Level.Valid() {
			return fmt.Errorf("leaf has invalid level %q (must be one of: Low, Medium, High)", n.Level)
		}
		return nil
	}

	if !known[n.Feature] {
		return fmt.Errorf("unknown feature %q", n.Feature)
	}
	if math.IsNaN(n.Threshold) || math.IsInf(n.Threshold, 0) {
		return fmt.Errorf("threshold must be finite")
	}
	if n.Level != "" {
		return fmt.Errorf("split cannot carry a level")
	}
	for _, child := range []string{n.LE, n.GT} {
		if child == "" {
			return fmt.Errorf("split must have both le and gt children")
		}
		if _, ok := byID[child]; !ok {
			return fmt.Errorf("child %q does not name a node", child)
		}
	}
	return nil
}
