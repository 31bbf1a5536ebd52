package rules

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/scoring"
)

// DefaultMaxTraceSteps caps the reported decision path.
const DefaultMaxTraceSteps = 5

// Engine holds a validated tree with one compiled CEL program per split.
// It is immutable after NewEngine and safe for concurrent use.
type Engine struct {
	env      *cel.Env
	root     string
	nodes    map[string]Node
	programs map[string]cel.Program // split node id -> compiled condition
	maxSteps int
}

// NewEngine validates tree and compiles every split condition. maxSteps
// below 1 uses DefaultMaxTraceSteps.
func NewEngine(tree Tree, maxSteps int) (*Engine, error) {
	if err := ValidateTree(tree); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	if maxSteps < 1 {
		maxSteps = DefaultMaxTraceSteps
	}

	names := FactNames()
	opts := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	en := &Engine{
		env:      env,
		root:     tree.Root,
		nodes:    make(map[string]Node, len(tree.Nodes)),
		programs: make(map[string]cel.Program),
		maxSteps: maxSteps,
	}
	for _, n := range tree.Nodes {
		en.nodes[n.ID] = n
		if n.IsLeaf() {
			continue
		}
		prog, err := en.compile(SplitExpression(n))
		if err != nil {
			return nil, fmt.Errorf("failed to compile node %s: %w", n.ID, err)
		}
		en.programs[n.ID] = prog
	}
	return en, nil
}

// SplitExpression is the CEL source for a split node.
func SplitExpression(n Node) string {
	return n.Feature + " <= " + celDouble(n.Threshold)
}

// celDouble formats f as a CEL double literal. CEL reads "25" as an int.
func celDouble(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (en *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q must be boolean, got %v", expression, ast.OutputType())
	}
	prog, err := en.env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Evaluate walks the tree for facts. The path holds at most maxSteps
// entries; the walk itself always reaches a leaf.
func (en *Engine) Evaluate(facts map[string]any) (*Evaluation, error) {
	ev := &Evaluation{Path: []scoring.TraceEntry{}}

	id := en.root
	for hops := 0; hops <= len(en.nodes); hops++ {
		n := en.nodes[id]
		if n.IsLeaf() {
			ev.Level = n.Level
			return ev, nil
		}

		out, _, err := en.programs[id].Eval(facts)
		if err != nil {
			return nil, fmt.Errorf("evaluate node %s: %w", id, err)
		}
		held, ok := out.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("node %s did not yield a boolean", id)
		}

		value, _ := facts[n.Feature].(float64)
		if len(ev.Path) < en.maxSteps {
			ev.Path = append(ev.Path, scoring.TraceEntry{
				Feature:   n.Feature,
				Value:     round2(value),
				Condition: condition(held, n.Threshold),
			})
		}

		if held {
			id = n.LE
		} else {
			id = n.GT
		}
	}
	return nil, fmt.Errorf("walk from %s did not reach a leaf", en.root)
}

func condition(held bool, threshold float64) string {
	if held {
		return fmt.Sprintf("<= %.2f", threshold)
	}
	return fmt.Sprintf("> %.2f", threshold)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Score classifies fs and attaches the level's recommendation.
func (en *Engine) Score(ctx context.Context, fs features.FeatureSet) (scoring.Result, error) {
	if err := ctx.Err(); err != nil {
		return scoring.Result{}, err
	}
	ev, err := en.Evaluate(Facts(fs))
	if err != nil {
		return scoring.Result{}, err
	}
	return scoring.Result{
		Level:          ev.Level,
		DecisionPath:   ev.Path,
		Recommendation: RecommendationFor(ev.Level),
	}, nil
}
