package weather_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/blocks/weather"
	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/registry"
)

func locationsTable() cty.Value {
	table := artifact.Table{Columns: []string{"name", "lat", "lon"}}
	table.Rows = append(table.Rows, map[string]cty.Value{
		"name": cty.StringVal("depot"),
		"lat":  cty.NumberFloatVal(50.8),
		"lon":  cty.NumberFloatVal(4.4),
	})
	return table.Value()
}

func TestRun_ScoresRisk(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"periods": [
			{"precip_mm": 0, "wind_kph": 0},
			{"precip_mm": 25, "wind_kph": 60}
		]}`)
	}))
	defer server.Close()

	t.Setenv("WEATHER_API_KEY", "secret")

	block := weather.New()
	art, err := block.Run(context.Background(), registry.Params{
		"locations": locationsTable(),
		"endpoint":  cty.StringVal(server.URL),
		"periods":   cty.NumberIntVal(2),
	})
	require.NoError(t, err)
	assert.Equal(t, artifact.KindMatrix, art.Kind)
	assert.Equal(t, "Bearer secret", gotAuth)

	m, err := artifact.MatrixFromValue(art.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"location", "period"}, m.Dims)
	assert.Equal(t, []int{1, 2}, m.Sizes)

	// Calm weather scores zero; saturated precipitation and wind score one.
	assert.InDelta(t, 0.0, m.At(0, 0), 1e-9)
	assert.InDelta(t, 1.0, m.At(0, 1), 1e-9)
}

func TestRun_MissingAPIKey(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "")

	block := weather.New()
	_, err := block.Run(context.Background(), registry.Params{
		"locations": locationsTable(),
		"endpoint":  cty.StringVal("http://127.0.0.1:0"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_API_KEY")
}

func TestRun_TooFewPeriods(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"periods": [{"precip_mm": 1, "wind_kph": 2}]}`)
	}))
	defer server.Close()

	t.Setenv("WEATHER_API_KEY", "secret")

	block := weather.New()
	_, err := block.Run(context.Background(), registry.Params{
		"locations": locationsTable(),
		"endpoint":  cty.StringVal(server.URL),
		"periods":   cty.NumberIntVal(3),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "periods")
}
