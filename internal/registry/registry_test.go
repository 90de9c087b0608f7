package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/registry"
)

type fakeBlock struct {
	kind string
}

func (b *fakeBlock) Describe() registry.Contract {
	return registry.Contract{Kind: b.kind, Output: artifact.KindTable}
}

func (b *fakeBlock) Run(_ context.Context, _ registry.Params) (artifact.Artifact, error) {
	return artifact.NewTable(artifact.Table{}), nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register(&fakeBlock{kind: "data"})
	reg.Register(&fakeBlock{kind: "forecast"})

	b, err := reg.Lookup("data")
	require.NoError(t, err)
	assert.Equal(t, "data", b.Describe().Kind)

	assert.Equal(t, []string{"data", "forecast"}, reg.Kinds())
}

func TestRegistry_UnknownKind(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	_, err := reg.Lookup("teleport")
	require.Error(t, err)

	var unknown *registry.UnknownBlockKindError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "teleport", unknown.Kind)
}

func TestRegistry_DuplicateKindPanics(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register(&fakeBlock{kind: "data"})
	assert.Panics(t, func() {
		reg.Register(&fakeBlock{kind: "data"})
	})
}

func TestParams_TypedAccessors(t *testing.T) {
	t.Parallel()

	params := registry.Params{
		"source":  cty.StringVal("file"),
		"horizon": cty.NumberIntVal(3),
		"alpha":   cty.NumberFloatVal(0.4),
		"dims":    cty.TupleVal([]cty.Value{cty.StringVal("store"), cty.StringVal("period")}),
		"sizes":   cty.TupleVal([]cty.Value{cty.NumberIntVal(25), cty.NumberIntVal(3)}),
	}

	s, err := params.String("source")
	require.NoError(t, err)
	assert.Equal(t, "file", s)

	n, err := params.Int("horizon")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := params.Float("alpha")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, f, 1e-9)

	dims, err := params.Strings("dims")
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "period"}, dims)

	sizes, err := params.Ints("sizes")
	require.NoError(t, err)
	assert.Equal(t, []int{25, 3}, sizes)

	_, err = params.String("missing")
	require.Error(t, err)

	def, err := params.IntOr("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, def)

	_, err = params.Int("source")
	require.Error(t, err)
}

func TestObjectAttrs(t *testing.T) {
	t.Parallel()

	nested, err := registry.ObjectAttrs(cty.ObjectVal(map[string]cty.Value{
		"sense": cty.StringVal("minimize"),
		"limit": cty.NumberIntVal(2),
	}))
	require.NoError(t, err)

	s, err := nested.String("sense")
	require.NoError(t, err)
	assert.Equal(t, "minimize", s)

	n, err := nested.Int("limit")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = registry.ObjectAttrs(cty.StringVal("minimize"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an object")

	_, err = registry.ObjectAttrs(cty.TupleVal([]cty.Value{cty.StringVal("a")}))
	require.Error(t, err)

	_, err = registry.ObjectAttrs(cty.NullVal(cty.EmptyObject))
	require.Error(t, err)
}
