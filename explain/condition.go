// Package explain turns a scorer's decision trace into display-ready steps.
package explain

import (
	"math"
	"strconv"
	"strings"
)

// Operator is the comparison parsed out of a trace condition.
type Operator string

const (
	OpLessOrEqual    Operator = "<="
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpGreater        Operator = ">"
	OpUnknown        Operator = "unknown"
)

// ParseCondition extracts the first comparison operator and the numeric
// threshold following it from free text such as "<= 35.00" or ">10".
// It never fails: anything it cannot read yields (OpUnknown, 0).
func ParseCondition(s string) (Operator, float64) {
	i := strings.IndexAny(s, "<>")
	if i < 0 {
		return OpUnknown, 0
	}

	op := Operator(s[i : i+1])
	rest := s[i+1:]
	if strings.HasPrefix(rest, "=") {
		op += "="
		rest = rest[1:]
	}

	threshold, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return OpUnknown, 0
	}
	return op, threshold
}
