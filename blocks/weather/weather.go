// Package weather implements the "weather" capability block: per-location,
// per-period risk scores derived from an HTTP forecast service.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/registry"
)

// Risk blends precipitation and wind into one score in [0, 1]. The caps
// are the points where each component saturates.
const (
	precipCapMM  = 25.0
	windCapKPH   = 60.0
	precipWeight = 0.7
	windWeight   = 0.3
)

// Block implements registry.Block for kind "weather".
type Block struct {
	client *http.Client
}

// New creates the weather block.
func New() *Block {
	return &Block{client: &http.Client{Timeout: 30 * time.Second}}
}

// Describe implements registry.Block.
func (b *Block) Describe() registry.Contract {
	return registry.Contract{
		Kind:        "weather",
		Description: "Scores weather risk per location and forecast period.",
		Params: []registry.ParamSpec{
			{Name: "locations", Type: cty.DynamicPseudoType, Required: true, Description: "table with name/lat/lon columns"},
			{Name: "endpoint", Type: cty.String, Required: true, Description: "base URL of the forecast service"},
			{Name: "periods", Type: cty.Number, Description: "forecast periods to score (default 3)"},
			{Name: "name", Type: cty.String, Description: "label column (default name)"},
		},
		Output: artifact.KindMatrix,
	}
}

// forecastResponse is the subset of the forecast payload we consume: one
// entry per period.
type forecastResponse struct {
	Periods []struct {
		PrecipMM float64 `json:"precip_mm"`
		WindKPH  float64 `json:"wind_kph"`
	} `json:"periods"`
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
	periods, err := params.IntOr("periods", 3)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if periods < 1 {
		return artifact.Artifact{}, fmt.Errorf("periods must be at least 1, got %d", periods)
	}
	nameCol, err := params.StringOr("name", "name")
	if err != nil {
		return artifact.Artifact{}, err
	}

	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		return artifact.Artifact{}, fmt.Errorf("WEATHER_API_KEY is not set")
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

	periodLabels := make([]string, periods)
	for i := range periodLabels {
		periodLabels[i] = fmt.Sprintf("t+%d", i+1)
	}
	m, err := artifact.NewMatrix([]string{"location", "period"}, []int{len(names), periods})
	if err != nil {
		return artifact.Artifact{}, err
	}
	m.Labels = map[string][]string{"location": names, "period": periodLabels}

	logger := ctxlog.FromContext(ctx)
	for i, name := range names {
		fc, err := b.fetch(ctx, endpoint, apiKey, lats[i], lons[i], periods)
		if err != nil {
			return artifact.Artifact{}, fmt.Errorf("location %q: %w", name, err)
		}
		for p := 0; p < periods; p++ {
			m.Set(riskScore(fc.Periods[p].PrecipMM, fc.Periods[p].WindKPH), i, p)
		}
		logger.Debug("Scored location.", "location", name)
	}

	return artifact.NewMatrixArtifact(m), nil
}

func (b *Block) fetch(ctx context.Context, endpoint, apiKey string, lat, lon float64, periods int) (*forecastResponse, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%g", lat))
	q.Set("lon", fmt.Sprintf("%g", lon))
	q.Set("periods", fmt.Sprintf("%d", periods))
	reqURL := strings.TrimRight(endpoint, "/") + "/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned status %s", resp.Status)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}
	if len(body.Periods) < periods {
		return nil, fmt.Errorf("forecast has %d periods, want %d", len(body.Periods), periods)
	}
	return &body, nil
}

// riskScore blends saturated precipitation and wind components.
func riskScore(precipMM, windKPH float64) float64 {
	return precipWeight*clamp01(precipMM/precipCapMM) + windWeight*clamp01(windKPH/windCapKPH)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
