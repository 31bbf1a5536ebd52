// Package predictions creates and reads persisted irrigation predictions.
package predictions

import (
	"errors"
	"time"

	"github.com/liamcoop/aquasens/explain"
	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/scoring"
)

var (
	// ErrInvalidInput wraps a *features.ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned for missing records and records owned by
	// someone else.
	ErrNotFound = errors.New("prediction not found")
	// ErrStorage wraps persistence failures.
	ErrStorage = errors.New("storage failure")
	// ErrOwnerRequired is returned when no owner identity is supplied.
	ErrOwnerRequired = errors.New("owner is required")
	// ErrDuplicateID is returned by a Store asked to create an existing id.
	ErrDuplicateID = errors.New("prediction id already exists")
)

// Record is one persisted prediction. Records are never updated.
type Record struct {
	ID             string                 `json:"id"`
	OwnerID        string                 `json:"ownerId"`
	Input          features.Wire          `json:"input"`
	Result         scoring.Level          `json:"result"`
	DecisionPath   []scoring.TraceEntry   `json:"decisionPath"`
	Recommendation scoring.Recommendation `json:"recommendation"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// Summary is the history list projection of a Record.
type Summary struct {
	ID     string        `json:"id"`
	Date   time.Time     `json:"date"`
	Crop   string        `json:"crop"`
	Soil   string        `json:"soil"`
	Result scoring.Level `json:"result"`
}

// Summarize projects a record for history listings.
func Summarize(r *Record) Summary {
	s := Summary{ID: r.ID, Date: r.CreatedAt, Result: r.Result}
	if r.Input.CropType != nil {
		s.Crop = *r.Input.CropType
	}
	if r.Input.SoilType != nil {
		s.Soil = *r.Input.SoilType
	}
	return s
}

const defaultAction = "No action"

// Detail is a record prepared for display: input under canonical names plus
// the interpreted decision trace.
type Detail struct {
	ID              string                 `json:"id"`
	OwnerID         string                 `json:"ownerId"`
	Input           features.Canonical     `json:"input"`
	Result          scoring.Level          `json:"result"`
	DecisionPath    []scoring.TraceEntry   `json:"decisionPath"`
	Recommendation  scoring.Recommendation `json:"recommendation"`
	CreatedAt       time.Time              `json:"createdAt"`
	DecisionSteps   []explain.DecisionStep `json:"decisionSteps"`
	Presentation    explain.Presentation   `json:"presentation"`
	ActionRequired  string                 `json:"actionRequired"`
	Recommendations []string               `json:"recommendations"`
}

// NewDetail derives the display view of r. The steps are recomputed on
// every call.
func NewDetail(r *Record) *Detail {
	d := &Detail{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		Input:           features.FromWire(r.Input),
		Result:          r.Result,
		DecisionPath:    r.DecisionPath,
		Recommendation:  r.Recommendation,
		CreatedAt:       r.CreatedAt,
		DecisionSteps:   explain.Interpret(r.DecisionPath),
		Presentation:    explain.LevelPresentation(string(r.Result)),
		ActionRequired:  r.Recommendation.Action,
		Recommendations: r.Recommendation.Advice,
	}
	if d.DecisionPath == nil {
		d.DecisionPath = []scoring.TraceEntry{}
	}
	if d.ActionRequired == "" {
		d.ActionRequired = defaultAction
	}
	if d.Recommendations == nil {
		d.Recommendations = []string{}
	}
	return d
}
