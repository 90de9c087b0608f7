package geo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/blocks/geo"
	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/registry"
)

func locationsTable() cty.Value {
	table := artifact.Table{Columns: []string{"name", "lat", "lon"}}
	for i, name := range []string{"depot", "north", "south"} {
		table.Rows = append(table.Rows, map[string]cty.Value{
			"name": cty.StringVal(name),
			"lat":  cty.NumberFloatVal(50.0 + float64(i)),
			"lon":  cty.NumberFloatVal(4.0 + float64(i)),
		})
	}
	return table.Value()
}

func TestRun_FetchesDurationMatrix(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{
			"code": "Ok",
			"durations": [[0, 10, 20], [10, 0, 15], [20, 15, 0]]
		}`)
	}))
	defer server.Close()

	block := geo.New()
	art, err := block.Run(context.Background(), registry.Params{
		"locations": locationsTable(),
		"endpoint":  cty.StringVal(server.URL),
	})
	require.NoError(t, err)
	assert.Equal(t, artifact.KindMatrix, art.Kind)

	assert.Contains(t, gotPath, "/table/v1/driving/")
	assert.Contains(t, gotQuery, "annotations=duration")

	m, err := artifact.MatrixFromValue(art.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"from", "to"}, m.Dims)
	assert.Equal(t, []int{3, 3}, m.Sizes)
	assert.Equal(t, []string{"depot", "north", "south"}, m.Labels["from"])
	assert.InDelta(t, 15, m.At(1, 2), 1e-9)
}

func TestRun_ServiceError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code": "NoTable"}`)
	}))
	defer server.Close()

	block := geo.New()
	_, err := block.Run(context.Background(), registry.Params{
		"locations": locationsTable(),
		"endpoint":  cty.StringVal(server.URL),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"NoTable"`)
}

func TestRun_BadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	block := geo.New()
	_, err := block.Run(context.Background(), registry.Params{
		"locations": locationsTable(),
		"endpoint":  cty.StringVal(server.URL),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
