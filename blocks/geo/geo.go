// Package geo implements the "geo" capability block: a travel matrix between
// table locations, fetched from an OSRM-compatible table service.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/registry"
)

// Block implements registry.Block for kind "geo".
type Block struct {
	client *http.Client
}

// New creates the geo block.
func New() *Block {
	return &Block{client: &http.Client{Timeout: 30 * time.Second}}
}

// Describe implements registry.Block.
func (b *Block) Describe() registry.Contract {
	return registry.Contract{
		Kind:        "geo",
		Description: "Fetches a pairwise travel matrix for table locations from an OSRM-style service.",
		Params: []registry.ParamSpec{
			{Name: "locations", Type: cty.DynamicPseudoType, Required: true, Description: "table with name/lat/lon columns"},
			{Name: "endpoint", Type: cty.String, Required: true, Description: "base URL of the table service"},
			{Name: "profile", Type: cty.String, Description: "routing profile (default driving)"},
			{Name: "metric", Type: cty.String, Description: `"duration" (default) or "distance"`},
			{Name: "name", Type: cty.String, Description: "label column (default name)"},
		},
		Output: artifact.KindMatrix,
	}
}

// tableResponse is the subset of the OSRM table response we consume.
type tableResponse struct {
	Code      string      `json:"code"`
	Durations [][]float64 `json:"durations"`
	Distances [][]float64 `json:"distances"`
}

// Run implements registry.Block.
func (b *Block) Run(ctx context.Context, params registry.Params) (artifact.Artifact, error) {
	locVal, ok := params.Value("locations")
	if !ok {
		return artifact.Artifact{}, fmt.Errorf("missing parameter %q", "locations")
	}
	table, err := artifact.TableFromValue(locVal)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("locations parameter: %w", err)
	}
	endpoint, err := params.String("endpoint")
	if err != nil {
		return artifact.Artifact{}, err
	}
	profile, err := params.StringOr("profile", "driving")
	if err != nil {
		return artifact.Artifact{}, err
	}
	metric, err := params.StringOr("metric", "duration")
	if err != nil {
		return artifact.Artifact{}, err
	}
	if metric != "duration" && metric != "distance" {
		return artifact.Artifact{}, fmt.Errorf("unknown metric %q (want \"duration\" or \"distance\")", metric)
	}
	nameCol, err := params.StringOr("name", "name")
	if err != nil {
		return artifact.Artifact{}, err
	}

	names, err := table.Strings(nameCol)
	if err != nil {
		return artifact.Artifact{}, err
	}
	lats, err := table.Floats("lat")
	if err != nil {
		return artifact.Artifact{}, err
	}
	lons, err := table.Floats("lon")
	if err != nil {
		return artifact.Artifact{}, err
	}
	if len(names) == 0 {
		return artifact.Artifact{}, fmt.Errorf("locations table is empty")
	}

	// OSRM wants lon,lat pairs joined by semicolons in the path.
	coords := make([]string, len(names))
	for i := range names {
		coords[i] = fmt.Sprintf("%g,%g", lons[i], lats[i])
	}
	reqURL := fmt.Sprintf("%s/table/v1/%s/%s?annotations=%s",
		strings.TrimRight(endpoint, "/"), url.PathEscape(profile), strings.Join(coords, ";"), metric)

	ctxlog.FromContext(ctx).Debug("Requesting travel matrix.", "locations", len(names), "metric", metric)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("table request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return artifact.Artifact{}, fmt.Errorf("table service returned status %s", resp.Status)
	}

	var body tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to decode table response: %w", err)
	}
	if body.Code != "" && body.Code != "Ok" {
		return artifact.Artifact{}, fmt.Errorf("table service returned code %q", body.Code)
	}

	cells := body.Durations
	if metric == "distance" {
		cells = body.Distances
	}
	if len(cells) != len(names) {
		return artifact.Artifact{}, fmt.Errorf("table response has %d rows, want %d", len(cells), len(names))
	}

	m, err := artifact.NewMatrix([]string{"from", "to"}, []int{len(names), len(names)})
	if err != nil {
		return artifact.Artifact{}, err
	}
	m.Labels = map[string][]string{"from": names, "to": names}
	for i, row := range cells {
		if len(row) != len(names) {
			return artifact.Artifact{}, fmt.Errorf("table response row %d has %d cells, want %d", i, len(row), len(names))
		}
		for j, v := range row {
			m.Set(v, i, j)
		}
	}

	return artifact.NewMatrixArtifact(m), nil
}
