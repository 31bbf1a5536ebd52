// Package scoring talks to the external irrigation scoring service.
package scoring

import (
	"context"
	"errors"

	"github.com/liamcoop/aquasens/features"
)

// Level is the irrigation need classification returned by the scorer.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// TraceEntry is one comparison the scorer reports having evaluated.
// Condition is free text such as "<= 35.00".
type TraceEntry struct {
	Feature   string  `json:"feature"`
	Value     float64 `json:"value"`
	Condition string  `json:"condition"`
}

// Recommendation is the scorer's suggested action plus advice lines.
type Recommendation struct {
	Action string   `json:"action"`
	Advice []string `json:"advice"`
}

// Result is a successful scoring response.
type Result struct {
	Level          Level          `json:"prediction"`
	DecisionPath   []TraceEntry   `json:"decision_path"`
	Recommendation Recommendation `json:"recommendation"`
}

var (
	// ErrUnavailable covers transport failures, timeouts and an open breaker.
	ErrUnavailable = errors.New("scoring unavailable")
	// ErrRejected means the scorer answered with a non-success status.
	ErrRejected = errors.New("scoring rejected")
	// ErrMalformed means the scorer's response did not have the expected shape.
	ErrMalformed = errors.New("scoring response malformed")
)

// Scorer scores a validated FeatureSet.
type Scorer interface {
	Score(ctx context.Context, fs features.FeatureSet) (Result, error)
}
