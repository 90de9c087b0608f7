// Package artifact defines the typed outputs stages produce: tabular data,
// matrices, score series and structured model results. Every artifact
// carries a cty.Value payload so downstream stages can reference it (or a
// sub-field of it) from their parameter expressions.
//
// Artifacts are produced exactly once per stage per run and are immutable
// after production; the run's artifact store owns them until the run ends.
package artifact

import "github.com/zclconf/go-cty/cty"

// Kind tags the shape of an artifact's payload.
type Kind string

const (
	// KindTable is row/column tabular data.
	KindTable Kind = "table"
	// KindMatrix is an n-dimensional numeric matrix with named dimensions.
	KindMatrix Kind = "matrix"
	// KindSeries is a one-dimensional labelled score or value series.
	KindSeries Kind = "series"
	// KindModel is a structured optimization result.
	KindModel Kind = "model"
)

// Artifact is the output of one stage.
type Artifact struct {
	Kind  Kind
	Value cty.Value
}
