package solve

import (
	"context"
	"errors"
)

// Solution is the outcome of solving a model: the set of decision variables
// assigned one, plus the achieved objective value.
type Solution struct {
	Status    string
	Objective float64
	Assigned  []int
}

// Solver searches a model for a solution. The engine only depends on this
// contract; alternative solvers plug in without touching the assembler.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// ErrInfeasible is returned when a solver can produce no assignment that
// satisfies every hard constraint.
var ErrInfeasible = errors.New("model is infeasible")

const eps = 1e-9

// GreedySolver is the reference heuristic: it fills equality and lower-bound
// constraints one at a time, always picking the admissible variable with the
// best objective coefficient. It is deterministic and fast, not optimal.
type GreedySolver struct{}

// NewGreedySolver returns the reference solver.
func NewGreedySolver() *GreedySolver { return &GreedySolver{} }

type termRef struct {
	constraint int
	coeff      float64
}

// Solve implements Solver.
func (s *GreedySolver) Solve(ctx context.Context, m *Model) (*Solution, error) {
	n := m.VarCount()

	coeff := make([]float64, n)
	for _, t := range m.Objective.Terms {
		coeff[t.Var] += t.Coeff
	}

	varRefs := make([][]termRef, n)
	for ci, c := range m.Constraints {
		for _, t := range c.Terms {
			varRefs[t.Var] = append(varRefs[t.Var], termRef{constraint: ci, coeff: t.Coeff})
		}
	}

	assigned := make([]bool, n)
	usage := make([]float64, len(m.Constraints))

	admissible := func(v int) bool {
		for _, ref := range varRefs[v] {
			c := m.Constraints[ref.constraint]
			if c.Op == OpGE {
				continue
			}
			if usage[ref.constraint]+ref.coeff > c.Bound+eps {
				return false
			}
		}
		return true
	}

	take := func(v int) {
		assigned[v] = true
		for _, ref := range varRefs[v] {
			usage[ref.constraint] += ref.coeff
		}
	}

	better := func(a, b float64) bool {
		if m.Objective.Sense == Maximize {
			return a > b
		}
		return a < b
	}

	// fill raises a constraint's left-hand side to its bound by repeatedly
	// taking the best admissible unassigned variable among its terms.
	fill := func(ci int) error {
		c := m.Constraints[ci]
		for usage[ci] < c.Bound-eps {
			best := -1
			for _, t := range c.Terms {
				v := t.Var
				if assigned[v] || !admissible(v) {
					continue
				}
				if best == -1 || better(coeff[v], coeff[best]) {
					best = v
				}
			}
			if best == -1 {
				return ErrInfeasible
			}
			take(best)
		}
		return nil
	}

	for ci, c := range m.Constraints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Op != OpEQ {
			continue
		}
		if err := fill(ci); err != nil {
			return nil, err
		}
	}

	for ci, c := range m.Constraints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Op != OpGE {
			continue
		}
		if err := fill(ci); err != nil {
			return nil, err
		}
	}

	sol := &Solution{Status: "feasible"}
	for v := 0; v < n; v++ {
		if assigned[v] {
			sol.Assigned = append(sol.Assigned, v)
			sol.Objective += coeff[v]
		}
	}
	return sol, nil
}
