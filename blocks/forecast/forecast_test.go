package forecast_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/blocks/forecast"
	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/registry"
)

func historyTable() cty.Value {
	rows := []struct {
		store string
		units float64
	}{
		{"s1", 10}, {"s2", 20},
		{"s1", 14}, {"s2", 22},
		{"s1", 12}, {"s2", 24},
	}
	table := artifact.Table{Columns: []string{"store", "units"}}
	for _, r := range rows {
		table.Rows = append(table.Rows, map[string]cty.Value{
			"store": cty.StringVal(r.store),
			"units": cty.NumberFloatVal(r.units),
		})
	}
	return table.Value()
}

func TestRun_GroupedMovingAverage(t *testing.T) {
	t.Parallel()

	block := forecast.New()
	art, err := block.Run(context.Background(), registry.Params{
		"table":    historyTable(),
		"value":    cty.StringVal("units"),
		"group_by": cty.StringVal("store"),
		"horizon":  cty.NumberIntVal(2),
		"method":   cty.StringVal("ma"),
		"window":   cty.NumberIntVal(3),
	})
	require.NoError(t, err)
	assert.Equal(t, artifact.KindMatrix, art.Kind)

	m, err := artifact.MatrixFromValue(art.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "period"}, m.Dims)
	assert.Equal(t, []int{2, 2}, m.Sizes)
	assert.Equal(t, []string{"s1", "s2"}, m.Labels["store"])

	// s1 mean of {10, 14, 12} = 12, held flat over the horizon.
	assert.InDelta(t, 12, m.At(0, 0), 1e-9)
	assert.InDelta(t, 12, m.At(0, 1), 1e-9)
	// s2 mean of {20, 22, 24} = 22.
	assert.InDelta(t, 22, m.At(1, 0), 1e-9)
}

func TestRun_SimpleExponentialSmoothing(t *testing.T) {
	t.Parallel()

	table := artifact.Table{
		Columns: []string{"units"},
		Rows: []map[string]cty.Value{
			{"units": cty.NumberFloatVal(10)},
			{"units": cty.NumberFloatVal(20)},
		},
	}

	block := forecast.New()
	art, err := block.Run(context.Background(), registry.Params{
		"table": table.Value(),
		"value": cty.StringVal("units"),
		"alpha": cty.NumberFloatVal(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, artifact.KindSeries, art.Kind)

	s, err := artifact.SeriesFromValue(art.Value)
	require.NoError(t, err)
	require.Len(t, s.Values, 1)
	// level = 0.5*20 + 0.5*10
	assert.InDelta(t, 15, s.Values[0], 1e-9)
	assert.Equal(t, []string{"t+1"}, s.Labels)
}

func TestRun_RejectsBadInput(t *testing.T) {
	t.Parallel()

	block := forecast.New()

	_, err := block.Run(context.Background(), registry.Params{
		"table":  historyTable(),
		"value":  cty.StringVal("units"),
		"method": cty.StringVal("oracle"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown forecast method")

	_, err = block.Run(context.Background(), registry.Params{
		"table":   historyTable(),
		"value":   cty.StringVal("units"),
		"horizon": cty.NumberIntVal(0),
	})
	require.Error(t, err)

	_, err = block.Run(context.Background(), registry.Params{
		"table": historyTable(),
		"value": cty.StringVal("nope"),
	})
	require.Error(t, err)
}
