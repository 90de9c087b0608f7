package artifact

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Matrix is an n-dimensional numeric matrix with named dimensions. Values
// are stored flat in row-major order (last dimension varies fastest).
type Matrix struct {
	Dims   []string
	Sizes  []int
	Labels map[string][]string
	Values []float64
}

// NewMatrix allocates a zero matrix with the given dimensions.
func NewMatrix(dims []string, sizes []int) (*Matrix, error) {
	if len(dims) != len(sizes) {
		return nil, fmt.Errorf("matrix has %d dimension names but %d sizes", len(dims), len(sizes))
	}
	n := 1
	for i, size := range sizes {
		if size <= 0 {
			return nil, fmt.Errorf("matrix dimension %q has non-positive size %d", dims[i], size)
		}
		n *= size
	}
	return &Matrix{
		Dims:   append([]string(nil), dims...),
		Sizes:  append([]int(nil), sizes...),
		Values: make([]float64, n),
	}, nil
}

// Len returns the number of cells.
func (m *Matrix) Len() int { return len(m.Values) }

// Index converts per-dimension coordinates to a flat index.
func (m *Matrix) Index(coords ...int) int {
	if len(coords) != len(m.Sizes) {
		panic(fmt.Sprintf("matrix index arity %d, want %d", len(coords), len(m.Sizes)))
	}
	idx := 0
	for i, c := range coords {
		if c < 0 || c >= m.Sizes[i] {
			panic(fmt.Sprintf("matrix coordinate %d out of range for dimension %q (size %d)", c, m.Dims[i], m.Sizes[i]))
		}
		idx = idx*m.Sizes[i] + c
	}
	return idx
}

// At returns the value at the given coordinates.
func (m *Matrix) At(coords ...int) float64 { return m.Values[m.Index(coords...)] }

// Set writes the value at the given coordinates.
func (m *Matrix) Set(v float64, coords ...int) { m.Values[m.Index(coords...)] = v }

// ShapeString renders the dimension list for error messages, e.g.
// "[store:25 period:3]".
func (m *Matrix) ShapeString() string {
	parts := make([]string, len(m.Dims))
	for i, d := range m.Dims {
		parts[i] = fmt.Sprintf("%s:%d", d, m.Sizes[i])
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// NewMatrixArtifact wraps the matrix in an Artifact.
func NewMatrixArtifact(m *Matrix) Artifact {
	return Artifact{Kind: KindMatrix, Value: m.Value()}
}

// Value encodes the matrix as object{dims, sizes, values[, labels]}.
func (m *Matrix) Value() cty.Value {
	dims := make([]cty.Value, len(m.Dims))
	sizes := make([]cty.Value, len(m.Sizes))
	for i := range m.Dims {
		dims[i] = cty.StringVal(m.Dims[i])
		sizes[i] = cty.NumberIntVal(int64(m.Sizes[i]))
	}
	values := make([]cty.Value, len(m.Values))
	for i, v := range m.Values {
		values[i] = cty.NumberFloatVal(v)
	}

	attrs := map[string]cty.Value{
		"dims":   tupleOrEmpty(dims),
		"sizes":  tupleOrEmpty(sizes),
		"values": tupleOrEmpty(values),
	}
	if len(m.Labels) > 0 {
		labelAttrs := make(map[string]cty.Value, len(m.Labels))
		for dim, labels := range m.Labels {
			vals := make([]cty.Value, len(labels))
			for i, l := range labels {
				vals[i] = cty.StringVal(l)
			}
			labelAttrs[dim] = tupleOrEmpty(vals)
		}
		attrs["labels"] = cty.ObjectVal(labelAttrs)
	}
	return cty.ObjectVal(attrs)
}

// MatrixFromValue decodes a matrix payload produced by Value.
func MatrixFromValue(v cty.Value) (*Matrix, error) {
	if v.IsNull() || !v.Type().IsObjectType() {
		return nil, fmt.Errorf("matrix value must be an object, got %s", v.Type().FriendlyName())
	}
	for _, attr := range []string{"dims", "sizes", "values"} {
		if !v.Type().HasAttribute(attr) {
			return nil, fmt.Errorf("matrix value is missing attribute %q", attr)
		}
	}

	m := &Matrix{}
	for it := v.GetAttr("dims").ElementIterator(); it.Next(); {
		_, d := it.Element()
		m.Dims = append(m.Dims, d.AsString())
	}
	for it := v.GetAttr("sizes").ElementIterator(); it.Next(); {
		_, s := it.Element()
		n, _ := s.AsBigFloat().Int64()
		m.Sizes = append(m.Sizes, int(n))
	}
	for it := v.GetAttr("values").ElementIterator(); it.Next(); {
		_, val := it.Element()
		f, _ := val.AsBigFloat().Float64()
		m.Values = append(m.Values, f)
	}

	want := 1
	for _, s := range m.Sizes {
		want *= s
	}
	if len(m.Dims) != len(m.Sizes) || len(m.Values) != want {
		return nil, fmt.Errorf("inconsistent matrix payload: %d dims, %d sizes, %d values", len(m.Dims), len(m.Sizes), len(m.Values))
	}

	if v.Type().HasAttribute("labels") {
		labelsVal := v.GetAttr("labels")
		m.Labels = make(map[string][]string)
		for it := labelsVal.ElementIterator(); it.Next(); {
			dim, list := it.Element()
			var labels []string
			for lit := list.ElementIterator(); lit.Next(); {
				_, l := lit.Element()
				labels = append(labels, l.AsString())
			}
			m.Labels[dim.AsString()] = labels
		}
	}

	return m, nil
}
