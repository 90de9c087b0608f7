package artifact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
)

func TestTable_ValueAndAccessors(t *testing.T) {
	t.Parallel()

	table := artifact.Table{
		Columns: []string{"store", "units"},
		Rows: []map[string]cty.Value{
			{"store": cty.StringVal("s1"), "units": cty.NumberIntVal(10)},
			{"store": cty.StringVal("s2"), "units": cty.NumberIntVal(7)},
		},
	}

	art := artifact.NewTable(table)
	assert.Equal(t, artifact.KindTable, art.Kind)

	decoded, err := artifact.TableFromValue(art.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "units"}, decoded.Columns)

	stores, err := decoded.Strings("store")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, stores)

	units, err := decoded.Floats("units")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 7}, units)

	_, err = decoded.Floats("store")
	require.Error(t, err)
}

func TestTableFromValue_BareRowSequence(t *testing.T) {
	t.Parallel()

	// The shape produced by a reference like stage.orders.rows.
	rows := cty.TupleVal([]cty.Value{
		cty.ObjectVal(map[string]cty.Value{"store": cty.StringVal("s1")}),
	})

	decoded, err := artifact.TableFromValue(rows)
	require.NoError(t, err)
	require.Len(t, decoded.Rows, 1)
	assert.Equal(t, []string{"store"}, decoded.Columns)
}

func TestMatrix_IndexingAndRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := artifact.NewMatrix([]string{"store", "period"}, []int{2, 3})
	require.NoError(t, err)
	m.Labels = map[string][]string{"store": {"s1", "s2"}}

	m.Set(4.5, 1, 2)
	m.Set(1.5, 0, 0)
	assert.Equal(t, 4.5, m.At(1, 2))
	assert.Equal(t, 6, m.Len())
	assert.Equal(t, "[store:2 period:3]", m.ShapeString())

	art := artifact.NewMatrixArtifact(m)
	assert.Equal(t, artifact.KindMatrix, art.Kind)

	decoded, err := artifact.MatrixFromValue(art.Value)
	require.NoError(t, err)
	assert.Equal(t, m.Dims, decoded.Dims)
	assert.Equal(t, m.Sizes, decoded.Sizes)
	assert.Equal(t, m.Values, decoded.Values)
	assert.Equal(t, []string{"s1", "s2"}, decoded.Labels["store"])
}

func TestMatrixFromValue_RejectsInconsistentPayload(t *testing.T) {
	t.Parallel()

	v := cty.ObjectVal(map[string]cty.Value{
		"dims":   cty.TupleVal([]cty.Value{cty.StringVal("store")}),
		"sizes":  cty.TupleVal([]cty.Value{cty.NumberIntVal(3)}),
		"values": cty.TupleVal([]cty.Value{cty.NumberIntVal(1)}),
	})

	_, err := artifact.MatrixFromValue(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent")
}

func TestSeries_RoundTrip(t *testing.T) {
	t.Parallel()

	s := artifact.Series{Labels: []string{"t+1", "t+2"}, Values: []float64{10.5, 11}}
	art := artifact.NewSeries(s)
	assert.Equal(t, artifact.KindSeries, art.Kind)

	decoded, err := artifact.SeriesFromValue(art.Value)
	require.NoError(t, err)
	assert.Equal(t, s.Labels, decoded.Labels)
	assert.Equal(t, s.Values, decoded.Values)
}
