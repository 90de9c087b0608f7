// Package forecast implements the "forecast" capability block: per-group
// demand forecasts over a table of historical observations.
package forecast

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/registry"
)

// Block implements registry.Block for kind "forecast".
type Block struct{}

// New creates the forecast block.
func New() *Block { return &Block{} }

// Describe implements registry.Block.
func (b *Block) Describe() registry.Contract {
	return registry.Contract{
		Kind:        "forecast",
		Description: "Forecasts future values per group from historical table rows.",
		Params: []registry.ParamSpec{
			{Name: "table", Type: cty.DynamicPseudoType, Required: true, Description: "historical observations"},
			{Name: "value", Type: cty.String, Required: true, Description: "numeric column to forecast"},
			{Name: "group_by", Type: cty.String, Description: "column that splits the series into groups"},
			{Name: "horizon", Type: cty.Number, Description: "periods to forecast (default 1)"},
			{Name: "method", Type: cty.String, Description: `"ses" (default) or "ma"`},
			{Name: "alpha", Type: cty.Number, Description: "smoothing factor for ses (default 0.5)"},
			{Name: "window", Type: cty.Number, Description: "window size for ma (default 3)"},
		},
		Output: artifact.KindMatrix,
	}
}

// Run implements registry.Block.
func (b *Block) Run(ctx context.Context, params registry.Params) (artifact.Artifact, error) {
	tableVal, ok := params.Value("table")
	if !ok {
		return artifact.Artifact{}, fmt.Errorf("missing parameter %q", "table")
	}
	table, err := artifact.TableFromValue(tableVal)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("table parameter: %w", err)
	}

	valueCol, err := params.String("value")
	if err != nil {
		return artifact.Artifact{}, err
	}
	groupBy, err := params.StringOr("group_by", "")
	if err != nil {
		return artifact.Artifact{}, err
	}
	horizon, err := params.IntOr("horizon", 1)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if horizon < 1 {
		return artifact.Artifact{}, fmt.Errorf("horizon must be at least 1, got %d", horizon)
	}
	method, err := params.StringOr("method", "ses")
	if err != nil {
		return artifact.Artifact{}, err
	}

	var predict func([]float64, int) ([]float64, error)
	switch method {
	case "ses":
		alpha, err := params.FloatOr("alpha", 0.5)
		if err != nil {
			return artifact.Artifact{}, err
		}
		if alpha <= 0 || alpha > 1 {
			return artifact.Artifact{}, fmt.Errorf("alpha must be in (0, 1], got %g", alpha)
		}
		predict = func(hist []float64, h int) ([]float64, error) { return ses(hist, h, alpha) }
	case "ma":
		window, err := params.IntOr("window", 3)
		if err != nil {
			return artifact.Artifact{}, err
		}
		if window < 1 {
			return artifact.Artifact{}, fmt.Errorf("window must be at least 1, got %d", window)
		}
		predict = func(hist []float64, h int) ([]float64, error) { return movingAverage(hist, h, window) }
	default:
		return artifact.Artifact{}, fmt.Errorf("unknown forecast method %q (want \"ses\" or \"ma\")", method)
	}

	values, err := table.Floats(valueCol)
	if err != nil {
		return artifact.Artifact{}, err
	}

	// Without a grouping column the whole table is one series.
	if groupBy == "" {
		forecasts, err := predict(values, horizon)
		if err != nil {
			return artifact.Artifact{}, err
		}
		labels := make([]string, horizon)
		for i := range labels {
			labels[i] = fmt.Sprintf("t+%d", i+1)
		}
		ctxlog.FromContext(ctx).Debug("Forecast complete.", "groups", 1, "horizon", horizon)
		return artifact.NewSeries(artifact.Series{Labels: labels, Values: forecasts}), nil
	}

	groupKeys, err := table.Strings(groupBy)
	if err != nil {
		return artifact.Artifact{}, err
	}

	history := make(map[string][]float64)
	var groups []string
	for i, key := range groupKeys {
		if _, seen := history[key]; !seen {
			groups = append(groups, key)
		}
		history[key] = append(history[key], values[i])
	}
	// Sorted group order keeps the matrix stable against row shuffles.
	sort.Strings(groups)

	m, err := artifact.NewMatrix([]string{groupBy, "period"}, []int{len(groups), horizon})
	if err != nil {
		return artifact.Artifact{}, err
	}
	periods := make([]string, horizon)
	for i := range periods {
		periods[i] = fmt.Sprintf("t+%d", i+1)
	}
	m.Labels = map[string][]string{groupBy: groups, "period": periods}

	for gi, g := range groups {
		forecasts, err := predict(history[g], horizon)
		if err != nil {
			return artifact.Artifact{}, fmt.Errorf("group %q: %w", g, err)
		}
		for pi, f := range forecasts {
			m.Set(f, gi, pi)
		}
	}

	ctxlog.FromContext(ctx).Debug("Forecast complete.", "groups", len(groups), "horizon", horizon)
	return artifact.NewMatrixArtifact(m), nil
}

// ses is simple exponential smoothing; the smoothed level is held flat over
// the horizon.
func ses(hist []float64, horizon int, alpha float64) ([]float64, error) {
	if len(hist) == 0 {
		return nil, fmt.Errorf("no historical observations")
	}
	level := hist[0]
	for _, v := range hist[1:] {
		level = alpha*v + (1-alpha)*level
	}
	out := make([]float64, horizon)
	for i := range out {
		out[i] = level
	}
	return out, nil
}

// movingAverage forecasts the mean of the trailing window, held flat.
func movingAverage(hist []float64, horizon, window int) ([]float64, error) {
	if len(hist) == 0 {
		return nil, fmt.Errorf("no historical observations")
	}
	if window > len(hist) {
		window = len(hist)
	}
	var sum float64
	for _, v := range hist[len(hist)-window:] {
		sum += v
	}
	mean := sum / float64(window)
	out := make([]float64, horizon)
	for i := range out {
		out[i] = mean
	}
	return out, nil
}
