package bind_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/bind"
	"github.com/vk/plangridgo/internal/spec"
)

func loadDoc(t *testing.T, src string) *spec.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))
	doc, err := spec.Load(context.Background(), path)
	require.NoError(t, err)
	return doc
}

func TestStage_PreservesNestedStructure(t *testing.T) {
	t.Parallel()

	doc := loadDoc(t, `
stage "risk" {
  uses = "weather"
}

stage "plan" {
  uses = "optimize"
  with {
    dims = ["store", "period"]
    constraints = [
      { rule = "risk_penalty", risk = stage.risk, threshold = 0.7 },
    ]
  }
}
`)

	riskArt := artifact.NewSeries(artifact.Series{
		Labels: []string{"t+1"},
		Values: []float64{0.9},
	})
	store := map[string]artifact.Artifact{"risk": riskArt}

	plan, _ := doc.Stage("plan")
	params, err := bind.Stage(plan, []string{"risk"}, store)
	require.NoError(t, err)

	// Literal list untouched.
	dims, err := params.Strings("dims")
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "period"}, dims)

	// The reference inside the nested object was replaced in place; the
	// surrounding structure survives.
	constraints, ok := params.Value("constraints")
	require.True(t, ok)
	entry := constraints.Index(cty.NumberIntVal(0))
	assert.Equal(t, "risk_penalty", entry.GetAttr("rule").AsString())

	riskVal := entry.GetAttr("risk")
	assert.True(t, riskVal.RawEquals(riskArt.Value), "bound value must be the exact artifact payload")

	threshold := entry.GetAttr("threshold")
	f, _ := threshold.AsBigFloat().Float64()
	assert.InDelta(t, 0.7, f, 1e-9)
}

func TestStage_SubFieldReference(t *testing.T) {
	t.Parallel()

	doc := loadDoc(t, `
stage "risk" {
  uses = "weather"
}

stage "report" {
  uses = "data"
  with {
    values = stage.risk.values
  }
}
`)

	store := map[string]artifact.Artifact{
		"risk": artifact.NewSeries(artifact.Series{Labels: []string{"t+1", "t+2"}, Values: []float64{0.1, 0.5}}),
	}

	report, _ := doc.Stage("report")
	params, err := bind.Stage(report, []string{"risk"}, store)
	require.NoError(t, err)

	vals, ok := params.Value("values")
	require.True(t, ok)
	assert.Equal(t, 2, vals.LengthInt())
}

func TestStage_MissingDependencyIsInternal(t *testing.T) {
	t.Parallel()

	doc := loadDoc(t, `
stage "risk" {
  uses = "weather"
}

stage "report" {
  uses = "data"
  with {
    values = stage.risk
  }
}
`)

	report, _ := doc.Stage("report")
	_, err := bind.Stage(report, []string{"risk"}, map[string]artifact.Artifact{})
	require.Error(t, err)

	var internal *bind.InternalBindingError
	require.ErrorAs(t, err, &internal)
	assert.Equal(t, "report", internal.Stage)
	assert.Equal(t, "risk", internal.Missing)
}
