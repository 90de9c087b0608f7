package solve

import (
	"fmt"
	"strings"

	"github.com/vk/plangridgo/internal/artifact"
)

// ruleFunc translates one declarative constraint entry into model content.
type ruleFunc func(a *Assembler, e RuleEntry) error

// ruleFuncs is the closed rule registry. Rule names map to fixed
// construction routines, never to arbitrary code.
var ruleFuncs = map[string]ruleFunc{
	"assign_exactly_one": ruleAssignExactlyOne,
	"at_most_one":        ruleAtMostOne,
	"workload_balance":   ruleWorkloadBalance,
	"equal_assignments":  ruleEqualAssignments,
	"equal_split":        ruleEqualSplit,
	"max_run_length":     ruleMaxRunLength,
	"risk_penalty":       ruleRiskPenalty,
}

// RuleNames returns the closed rule registry's names, for documentation and
// error messages.
func RuleNames() []string {
	names := make([]string, 0, len(ruleFuncs))
	for n := range ruleFuncs {
		names = append(names, n)
	}
	return names
}

// ruleAssignExactlyOne: for every combination of the `over` dimensions,
// the sum of variables across the remaining dimensions equals one.
func ruleAssignExactlyOne(a *Assembler, e RuleEntry) error {
	return addGroupedSum(a, e, OpEQ, 1, "assign_exactly_one")
}

// ruleAtMostOne: like assign_exactly_one but with an upper bound only.
func ruleAtMostOne(a *Assembler, e RuleEntry) error {
	return addGroupedSum(a, e, OpLE, 1, "at_most_one")
}

func addGroupedSum(a *Assembler, e RuleEntry, op Op, bound float64, name string) error {
	over, err := e.Params.Strings("over")
	if err != nil {
		return err
	}
	overIdx, err := a.dimPositions(over)
	if err != nil {
		return err
	}

	groups, combos := a.groupByDims(overIdx)
	for gi, terms := range groups {
		a.constraints = append(a.constraints, Constraint{
			Label: groupLabel(name, over, combos[gi]),
			Terms: terms,
			Op:    op,
			Bound: bound,
		})
	}
	return nil
}

// ruleWorkloadBalance bounds, for every index of the balance dimension, the
// total assignments between an even share of the available slots plus/minus
// a tolerance. The slot count is the product of the remaining dimensions.
func ruleWorkloadBalance(a *Assembler, e RuleEntry) error {
	dim, err := e.Params.String("dim")
	if err != nil {
		return err
	}
	tolerance, err := e.Params.IntOr("tolerance", 0)
	if err != nil {
		return err
	}
	pos, ok := a.shape.DimIndex(dim)
	if !ok {
		return fmt.Errorf("shape %s has no dimension %q", a.shape, dim)
	}

	size := a.shape.Sizes[pos]
	slots := a.shape.Len() / size
	lo := slots / size
	hi := lo
	if slots%size != 0 {
		hi++
	}
	lo -= tolerance
	hi += tolerance
	if lo < 0 {
		lo = 0
	}

	groups, combos := a.groupByDims([]int{pos})
	for gi, terms := range groups {
		label := groupLabel("workload_balance", []string{dim}, combos[gi])
		a.constraints = append(a.constraints,
			Constraint{Label: label + ">=lo", Terms: terms, Op: OpGE, Bound: float64(lo)},
			Constraint{Label: label + "<=hi", Terms: terms, Op: OpLE, Bound: float64(hi)},
		)
	}
	return nil
}

// ruleEqualAssignments requires every index of the given dimension to carry
// the same total number of assignments: each index's count minus the first
// index's count equals zero.
func ruleEqualAssignments(a *Assembler, e RuleEntry) error {
	dim, err := e.Params.String("dim")
	if err != nil {
		return err
	}
	pos, ok := a.shape.DimIndex(dim)
	if !ok {
		return fmt.Errorf("shape %s has no dimension %q", a.shape, dim)
	}
	return a.addEqualCounts("equal_assignments", pos, nil)
}

// ruleEqualSplit requires the given dimension's indices to split assignments
// evenly within every combination of the `per` dimensions: for each `per`
// combination, each index's count minus the first index's count equals zero.
func ruleEqualSplit(a *Assembler, e RuleEntry) error {
	dim, err := e.Params.String("dim")
	if err != nil {
		return err
	}
	per, err := e.Params.Strings("per")
	if err != nil {
		return err
	}
	pos, ok := a.shape.DimIndex(dim)
	if !ok {
		return fmt.Errorf("shape %s has no dimension %q", a.shape, dim)
	}
	perIdx, err := a.dimPositions(per)
	if err != nil {
		return err
	}
	for i, p := range perIdx {
		if p == pos {
			return fmt.Errorf("per dimension %q is the split dimension itself", per[i])
		}
	}
	return a.addEqualCounts("equal_split", pos, perIdx)
}

// addEqualCounts emits, per combination of the per dimensions, one equality
// constraint for each non-first index of the split dimension: its count
// minus the first index's count is zero.
func (a *Assembler) addEqualCounts(name string, dimPos int, perIdx []int) error {
	size := a.shape.Sizes[dimPos]
	if size < 2 {
		return nil
	}

	dims := []string{a.shape.Dims[dimPos]}
	for _, p := range perIdx {
		dims = append(dims, a.shape.Dims[p])
	}

	// With the split dimension first, group g sits at dimCoord*perCount+p.
	groups, combos := a.groupByDims(append([]int{dimPos}, perIdx...))
	perCount := len(groups) / size

	for i := 1; i < size; i++ {
		for p := 0; p < perCount; p++ {
			cur := groups[i*perCount+p]
			base := groups[p]
			terms := make([]Term, 0, len(cur)+len(base))
			terms = append(terms, cur...)
			for _, t := range base {
				terms = append(terms, Term{Var: t.Var, Coeff: -t.Coeff})
			}
			a.constraints = append(a.constraints, Constraint{
				Label: groupLabel(name, dims, combos[i*perCount+p]),
				Terms: terms,
				Op:    OpEQ,
				Bound: 0,
			})
		}
	}
	return nil
}

// ruleMaxRunLength forbids more than `limit` consecutive assignments along
// the given dimension: every window of limit+1 consecutive indices sums to
// at most limit, for every combination of the other dimensions.
func ruleMaxRunLength(a *Assembler, e RuleEntry) error {
	dim, err := e.Params.String("dim")
	if err != nil {
		return err
	}
	limit, err := e.Params.Int("limit")
	if err != nil {
		return err
	}
	if limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", limit)
	}
	pos, ok := a.shape.DimIndex(dim)
	if !ok {
		return fmt.Errorf("shape %s has no dimension %q", a.shape, dim)
	}

	size := a.shape.Sizes[pos]
	if size <= limit {
		return nil
	}

	var rest []int
	for i := range a.shape.Dims {
		if i != pos {
			rest = append(rest, i)
		}
	}
	groups, combos := a.groupByDims(rest)

	for gi, terms := range groups {
		// terms within a group are ordered by the run dimension because
		// cells are visited in flat order.
		for start := 0; start+limit < size; start++ {
			window := make([]Term, 0, limit+1)
			for _, t := range terms {
				c := a.shape.Coords(t.Var)[pos]
				if c >= start && c <= start+limit {
					window = append(window, t)
				}
			}
			a.constraints = append(a.constraints, Constraint{
				Label: fmt.Sprintf("%s[%s=%d..%d]", "max_run_length", dim, start, start+limit) + comboSuffix(a, rest, combos[gi]),
				Terms: window,
				Op:    OpLE,
				Bound: float64(limit),
			})
		}
	}
	return nil
}

// ruleRiskPenalty is a soft rule: every cell whose projected risk score
// exceeds the threshold contributes a weight-scaled penalty term to the
// objective. The risk artifact's dimensions must match the shape's.
func ruleRiskPenalty(a *Assembler, e RuleEntry) error {
	riskVal, ok := e.Params.Value("risk")
	if !ok {
		return fmt.Errorf("missing parameter %q", "risk")
	}
	m, err := artifact.MatrixFromValue(riskVal)
	if err != nil {
		return fmt.Errorf("risk parameter: %w", err)
	}
	threshold, err := e.Params.FloatOr("threshold", 0)
	if err != nil {
		return err
	}
	weight, err := e.Params.FloatOr("weight", 1)
	if err != nil {
		return err
	}

	proj, err := a.project(m, "risk_penalty")
	if err != nil {
		return err
	}
	for v := 0; v < a.shape.Len(); v++ {
		if r := proj(v); r > threshold {
			a.penalties = append(a.penalties, Term{Var: v, Coeff: weight * r})
		}
	}
	return nil
}

// dimPositions resolves dimension names to their positions in the shape.
func (a *Assembler) dimPositions(names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("over must name at least one dimension")
	}
	out := make([]int, len(names))
	for i, name := range names {
		pos, ok := a.shape.DimIndex(name)
		if !ok {
			return nil, fmt.Errorf("shape %s has no dimension %q", a.shape, name)
		}
		out[i] = pos
	}
	return out, nil
}

// groupByDims buckets every decision variable by its coordinates on the
// given dimensions. Groups come back in mixed-radix order of those
// coordinates together with the coordinate combination of each group, so
// generated constraints are deterministic.
func (a *Assembler) groupByDims(dimIdx []int) ([][]Term, [][]int) {
	groupCount := 1
	for _, pos := range dimIdx {
		groupCount *= a.shape.Sizes[pos]
	}

	groups := make([][]Term, groupCount)
	combos := make([][]int, groupCount)

	for v := 0; v < a.shape.Len(); v++ {
		coords := a.shape.Coords(v)
		key := 0
		for _, pos := range dimIdx {
			key = key*a.shape.Sizes[pos] + coords[pos]
		}
		if combos[key] == nil {
			combo := make([]int, len(dimIdx))
			for i, pos := range dimIdx {
				combo[i] = coords[pos]
			}
			combos[key] = combo
		}
		groups[key] = append(groups[key], Term{Var: v, Coeff: 1})
	}

	return groups, combos
}

func groupLabel(rule string, dims []string, combo []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprintf("%s=%d", d, combo[i])
	}
	return rule + "[" + strings.Join(parts, " ") + "]"
}

func comboSuffix(a *Assembler, dimIdx []int, combo []int) string {
	if len(dimIdx) == 0 {
		return ""
	}
	parts := make([]string, len(dimIdx))
	for i, pos := range dimIdx {
		parts[i] = fmt.Sprintf("%s=%d", a.shape.Dims[pos], combo[i])
	}
	return "[" + strings.Join(parts, " ") + "]"
}
