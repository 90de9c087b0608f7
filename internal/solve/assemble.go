package solve

import (
	"fmt"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/registry"
)

// RuleEntry is one declarative constraint entry: a rule identifier plus its
// parameters (already bound, so artifact references are concrete values).
type RuleEntry struct {
	Rule   string
	Params registry.Params
}

// UnknownConstraintRuleError reports a rule identifier absent from the
// closed rule registry. It is raised at assembly time, before the solver is
// invoked.
type UnknownConstraintRuleError struct {
	Rule string
}

func (e *UnknownConstraintRuleError) Error() string {
	return fmt.Sprintf("unknown constraint rule %q", e.Rule)
}

// ShapeMismatchError reports an upstream artifact whose shape is not
// compatible with the decision-variable shape.
type ShapeMismatchError struct {
	Rule string
	Want string
	Got  string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("rule %q: artifact shape %s is not compatible with decision-variable shape %s", e.Rule, e.Got, e.Want)
}

// Assembler translates rule entries and an objective into a Model.
//
// Penalty composition across soft rules is additive: each soft rule
// contributes weight-scaled terms to the objective, with the rule's
// explicit `weight` parameter (default 1) as the only scaling.
type Assembler struct {
	shape       Shape
	constraints []Constraint
	penalties   []Term
	objective   Objective
}

// NewAssembler creates an assembler for the given decision-variable shape.
func NewAssembler(shape Shape) *Assembler {
	return &Assembler{shape: shape}
}

// Apply translates each rule entry in order. Rule names are looked up in
// the closed registry; an unknown name fails before any solving happens.
func (a *Assembler) Apply(entries []RuleEntry) error {
	for _, entry := range entries {
		fn, ok := ruleFuncs[entry.Rule]
		if !ok {
			return &UnknownConstraintRuleError{Rule: entry.Rule}
		}
		if err := fn(a, entry); err != nil {
			return fmt.Errorf("rule %q: %w", entry.Rule, err)
		}
	}
	return nil
}

// SetObjective declares the optimization direction and, optionally, a cost
// matrix projected over the decision variables. A nil cost leaves only the
// penalty terms contributed by soft rules.
func (a *Assembler) SetObjective(sense Sense, cost *artifact.Matrix) error {
	a.objective = Objective{Sense: sense}
	if cost == nil {
		return nil
	}
	proj, err := a.project(cost, "objective")
	if err != nil {
		return err
	}
	for v := 0; v < a.shape.Len(); v++ {
		if c := proj(v); c != 0 {
			a.objective.Terms = append(a.objective.Terms, Term{Var: v, Coeff: c})
		}
	}
	return nil
}

// Model finalizes the assembled model, folding penalty terms into the
// objective. Penalties always worsen the objective: added when minimizing,
// subtracted when maximizing.
func (a *Assembler) Model() *Model {
	obj := Objective{Sense: a.objective.Sense}
	obj.Terms = append(obj.Terms, a.objective.Terms...)
	for _, t := range a.penalties {
		if obj.Sense == Maximize {
			t.Coeff = -t.Coeff
		}
		obj.Terms = append(obj.Terms, t)
	}
	return &Model{
		Shape:       a.shape,
		Constraints: a.constraints,
		Objective:   obj,
	}
}

// project matches a matrix's dimensions against the decision-variable shape
// by name and returns a lookup from variable index to matrix value. Every
// matrix dimension must exist in the shape with the same size.
func (a *Assembler) project(m *artifact.Matrix, rule string) (func(varIdx int) float64, error) {
	dimIdx := make([]int, len(m.Dims))
	for i, d := range m.Dims {
		pos, ok := a.shape.DimIndex(d)
		if !ok || a.shape.Sizes[pos] != m.Sizes[i] {
			return nil, &ShapeMismatchError{Rule: rule, Want: a.shape.String(), Got: m.ShapeString()}
		}
		dimIdx[i] = pos
	}

	return func(varIdx int) float64 {
		coords := a.shape.Coords(varIdx)
		mcoords := make([]int, len(dimIdx))
		for i, pos := range dimIdx {
			mcoords[i] = coords[pos]
		}
		return m.At(mcoords...)
	}, nil
}
