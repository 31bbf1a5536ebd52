// Package rules evaluates an irrigation decision tree whose split conditions
// are compiled to CEL programs. It backs the development scoring service.
package rules

import (
	"github.com/liamcoop/aquasens/scoring"
)

// Node is either a split or a leaf. A split has Feature, Threshold and both
// children; a leaf has only Level.
type Node struct {
	ID        string        `json:"id"`
	Feature   string        `json:"feature,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
	LE        string        `json:"le,omitempty"`
	GT        string        `json:"gt,omitempty"`
	Level     scoring.Level `json:"level,omitempty"`
}

// IsLeaf reports whether n carries a classification instead of a split.
func (n Node) IsLeaf() bool {
	return n.Feature == ""
}

// Tree is a binary decision tree. Splits send a sample to LE when
// feature <= threshold and to GT otherwise.
type Tree struct {
	Root  string `json:"root"`
	Nodes []Node `json:"nodes"`
}

// Evaluation is the outcome of walking the tree for one sample.
type Evaluation struct {
	Level scoring.Level
	Path  []scoring.TraceEntry
}
