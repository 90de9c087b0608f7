package solve

import (
	"fmt"
	"strings"
)

// Op is a linear constraint comparator.
type Op int

const (
	OpEQ Op = iota
	OpLE
	OpGE
)

func (o Op) String() string {
	switch o {
	case OpEQ:
		return "=="
	case OpLE:
		return "<="
	case OpGE:
		return ">="
	}
	return "?"
}

// Term is one coefficient applied to one decision variable.
type Term struct {
	Var   int
	Coeff float64
}

// Constraint is a linear constraint: sum(terms) op bound.
type Constraint struct {
	Label string
	Terms []Term
	Op    Op
	Bound float64
}

// Sense is the optimization direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Objective is linear in the decision variables; soft-constraint penalty
// terms are folded in additively by the assembler.
type Objective struct {
	Sense Sense
	Terms []Term
}

// Model is the solver-ready decision model.
type Model struct {
	Shape       Shape
	Constraints []Constraint
	Objective   Objective
}

// VarCount returns the number of decision variables.
func (m *Model) VarCount() int { return m.Shape.Len() }

// VarName renders a variable for labels and debugging, e.g.
// "x[vehicle=2 store=4 period=0]".
func (m *Model) VarName(idx int) string {
	coords := m.Shape.Coords(idx)
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = fmt.Sprintf("%s=%d", m.Shape.Dims[i], c)
	}
	return "x[" + strings.Join(parts, " ") + "]"
}
