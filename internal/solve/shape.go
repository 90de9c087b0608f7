// Package solve contains the constraint/objective assembler for the
// optimize block: it translates declarative rule entries and an objective
// into a linear decision-variable model, plus a Solver contract and a
// reference heuristic solver. Building the model is this package's job;
// search quality is the solver implementation's.
package solve

import (
	"fmt"
	"strings"
)

// Shape declares the decision-variable space: an ordered tuple of named
// dimension sizes, e.g. vehicle:4 x store:25 x period:3. One boolean
// variable exists per combinatorial cell, flattened row-major (last
// dimension varies fastest).
type Shape struct {
	Dims  []string
	Sizes []int
}

// NewShape validates and returns a shape.
func NewShape(dims []string, sizes []int) (Shape, error) {
	if len(dims) == 0 {
		return Shape{}, fmt.Errorf("decision-variable shape needs at least one dimension")
	}
	if len(dims) != len(sizes) {
		return Shape{}, fmt.Errorf("shape has %d dimension names but %d sizes", len(dims), len(sizes))
	}
	seen := make(map[string]bool, len(dims))
	for i, d := range dims {
		if seen[d] {
			return Shape{}, fmt.Errorf("duplicate dimension name %q", d)
		}
		seen[d] = true
		if sizes[i] <= 0 {
			return Shape{}, fmt.Errorf("dimension %q has non-positive size %d", d, sizes[i])
		}
	}
	return Shape{
		Dims:  append([]string(nil), dims...),
		Sizes: append([]int(nil), sizes...),
	}, nil
}

// Len returns the number of cells (decision variables).
func (s Shape) Len() int {
	n := 1
	for _, size := range s.Sizes {
		n *= size
	}
	return n
}

// Index flattens per-dimension coordinates into a variable index.
func (s Shape) Index(coords []int) int {
	idx := 0
	for i, c := range coords {
		idx = idx*s.Sizes[i] + c
	}
	return idx
}

// Coords expands a variable index back into per-dimension coordinates.
func (s Shape) Coords(idx int) []int {
	coords := make([]int, len(s.Sizes))
	for i := len(s.Sizes) - 1; i >= 0; i-- {
		coords[i] = idx % s.Sizes[i]
		idx /= s.Sizes[i]
	}
	return coords
}

// DimIndex returns the position of the named dimension.
func (s Shape) DimIndex(name string) (int, bool) {
	for i, d := range s.Dims {
		if d == name {
			return i, true
		}
	}
	return 0, false
}

// String renders the shape for error messages, e.g. "[vehicle:4 store:25 period:3]".
func (s Shape) String() string {
	parts := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		parts[i] = fmt.Sprintf("%s:%d", d, s.Sizes[i])
	}
	return "[" + strings.Join(parts, " ") + "]"
}
