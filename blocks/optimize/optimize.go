// Package optimize implements the "optimize" capability block: it assembles
// a linear model from declarative constraint rules and an objective, runs a
// solver, and produces a structured result artifact.
package optimize

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/registry"
	"github.com/vk/plangridgo/internal/solve"
)

// Block implements registry.Block for kind "optimize".
type Block struct {
	solver solve.Solver
}

// New creates the optimize block. A nil solver selects the built-in greedy
// reference solver.
func New(solver solve.Solver) *Block {
	if solver == nil {
		solver = solve.NewGreedySolver()
	}
	return &Block{solver: solver}
}

// Describe implements registry.Block.
func (b *Block) Describe() registry.Contract {
	return registry.Contract{
		Kind:        "optimize",
		Description: "Assembles a constraint model over a decision-variable shape and solves it.",
		Params: []registry.ParamSpec{
			{Name: "dims", Type: cty.List(cty.String), Required: true, Description: "decision-variable dimension names"},
			{Name: "sizes", Type: cty.List(cty.Number), Required: true, Description: "dimension sizes, aligned with dims"},
			{Name: "labels", Type: cty.DynamicPseudoType, Description: "optional per-dimension labels, keyed by dimension name"},
			{Name: "constraints", Type: cty.DynamicPseudoType, Description: "sequence of rule entries, each an object with a rule attribute"},
			{Name: "objective", Type: cty.DynamicPseudoType, Description: "object with sense and optional cost matrix"},
		},
		Output: artifact.KindModel,
	}
}

// Run implements registry.Block.
func (b *Block) Run(ctx context.Context, params registry.Params) (artifact.Artifact, error) {
	dims, err := params.Strings("dims")
	if err != nil {
		return artifact.Artifact{}, err
	}
	sizes, err := params.Ints("sizes")
	if err != nil {
		return artifact.Artifact{}, err
	}
	shape, err := solve.NewShape(dims, sizes)
	if err != nil {
		return artifact.Artifact{}, err
	}

	labels, err := decodeLabels(params, dims, sizes)
	if err != nil {
		return artifact.Artifact{}, err
	}

	entries, err := decodeConstraints(params)
	if err != nil {
		return artifact.Artifact{}, err
	}

	asm := solve.NewAssembler(shape)
	if err := asm.Apply(entries); err != nil {
		return artifact.Artifact{}, err
	}
	if err := applyObjective(asm, params); err != nil {
		return artifact.Artifact{}, err
	}
	model := asm.Model()

	ctxlog.FromContext(ctx).Debug("Model assembled.",
		"variables", model.VarCount(), "constraints", len(model.Constraints))

	sol, err := b.solver.Solve(ctx, model)
	if err != nil {
		return artifact.Artifact{}, err
	}

	return artifact.Artifact{Kind: artifact.KindModel, Value: solutionValue(shape, labels, sol)}, nil
}

// decodeConstraints turns the constraints parameter into rule entries. Every
// entry must be an object carrying a string rule attribute; the remaining
// attributes become the rule's parameters.
func decodeConstraints(params registry.Params) ([]solve.RuleEntry, error) {
	raw, ok := params.Value("constraints")
	if !ok {
		return nil, nil
	}
	if !raw.CanIterateElements() {
		return nil, fmt.Errorf("constraints must be a sequence, got %s", raw.Type().FriendlyName())
	}

	var entries []solve.RuleEntry
	i := 0
	for it := raw.ElementIterator(); it.Next(); i++ {
		_, entryVal := it.Element()
		ruleParams, err := registry.ObjectAttrs(entryVal)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		if !ruleParams.Has("rule") {
			return nil, fmt.Errorf("constraint %d has no rule attribute", i)
		}
		rule, err := ruleParams.String("rule")
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		delete(ruleParams, "rule")
		entries = append(entries, solve.RuleEntry{Rule: rule, Params: ruleParams})
	}
	return entries, nil
}

// applyObjective decodes the objective parameter: sense ("minimize" default,
// or "maximize") and an optional cost matrix artifact.
func applyObjective(asm *solve.Assembler, params registry.Params) error {
	raw, ok := params.Value("objective")
	if !ok {
		return asm.SetObjective(solve.Minimize, nil)
	}
	obj, err := registry.ObjectAttrs(raw)
	if err != nil {
		return fmt.Errorf("objective: %w", err)
	}

	senseName, err := obj.StringOr("sense", "minimize")
	if err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	sense := solve.Minimize
	switch senseName {
	case "minimize":
	case "maximize":
		sense = solve.Maximize
	default:
		return fmt.Errorf("unknown objective sense %q (want \"minimize\" or \"maximize\")", senseName)
	}

	var cost *artifact.Matrix
	if costVal, ok := obj.Value("cost"); ok {
		m, err := artifact.MatrixFromValue(costVal)
		if err != nil {
			return fmt.Errorf("objective cost: %w", err)
		}
		cost = m
	}
	return asm.SetObjective(sense, cost)
}

// decodeLabels reads the optional labels parameter. Each labelled dimension
// must exist in dims and carry exactly size labels.
func decodeLabels(params registry.Params, dims []string, sizes []int) (map[string][]string, error) {
	raw, ok := params.Value("labels")
	if !ok {
		return nil, nil
	}
	lp, err := registry.ObjectAttrs(raw)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}

	sizeOf := make(map[string]int, len(dims))
	for i, d := range dims {
		sizeOf[d] = sizes[i]
	}

	out := make(map[string][]string)
	for dim := range lp {
		size, ok := sizeOf[dim]
		if !ok {
			return nil, fmt.Errorf("labels name unknown dimension %q", dim)
		}
		labels, err := lp.Strings(dim)
		if err != nil {
			return nil, fmt.Errorf("labels: %w", err)
		}
		if len(labels) != size {
			return nil, fmt.Errorf("dimension %q has %d labels, want %d", dim, len(labels), size)
		}
		out[dim] = labels
	}
	return out, nil
}

// solutionValue encodes the solver outcome: status, objective value, and one
// assignment object per selected variable, keyed by dimension name. Labelled
// dimensions render their label, the rest their index.
func solutionValue(shape solve.Shape, labels map[string][]string, sol *solve.Solution) cty.Value {
	assignments := make([]cty.Value, len(sol.Assigned))
	for i, v := range sol.Assigned {
		coords := shape.Coords(v)
		attrs := make(map[string]cty.Value, len(shape.Dims))
		for d, dim := range shape.Dims {
			if dimLabels, ok := labels[dim]; ok {
				attrs[dim] = cty.StringVal(dimLabels[coords[d]])
			} else {
				attrs[dim] = cty.NumberIntVal(int64(coords[d]))
			}
		}
		assignments[i] = cty.ObjectVal(attrs)
	}

	assignVal := cty.EmptyTupleVal
	if len(assignments) > 0 {
		assignVal = cty.TupleVal(assignments)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"status":      cty.StringVal(sol.Status),
		"objective":   cty.NumberFloatVal(sol.Objective),
		"assignments": assignVal,
	})
}
