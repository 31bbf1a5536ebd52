package explain

import (
	"fmt"
	"strings"

	"github.com/liamcoop/aquasens/scoring"
)

// DecisionStep is one trace entry parsed for display. It is derived on
// every read and never stored.
type DecisionStep struct {
	Order            int      `json:"order"`
	FeatureLabel     string   `json:"featureLabel"`
	ObservedValue    float64  `json:"observedValue"`
	DisplayValue     string   `json:"displayValue"`
	Operator         Operator `json:"operator"`
	Threshold        float64  `json:"threshold"`
	DisplayThreshold string   `json:"displayThreshold"`
}

// Interpret converts a decision trace into ordered steps, numbered from 1
// in trace order. Unparseable conditions produce OpUnknown steps.
func Interpret(trace []scoring.TraceEntry) []DecisionStep {
	steps := make([]DecisionStep, 0, len(trace))
	for i, entry := range trace {
		op, threshold := ParseCondition(entry.Condition)
		steps = append(steps, DecisionStep{
			Order:            i + 1,
			FeatureLabel:     strings.ReplaceAll(entry.Feature, "_", " "),
			ObservedValue:    entry.Value,
			DisplayValue:     formatValue(entry.Value),
			Operator:         op,
			Threshold:        threshold,
			DisplayThreshold: formatValue(threshold),
		})
	}
	return steps
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
