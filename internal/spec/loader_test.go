package spec_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/plangridgo/internal/spec"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_SingleFile(t *testing.T) {
	t.Parallel()

	src := `
pipeline "weekly" {
  description = "demo"
}

stage "orders" {
  uses = "data"
  with {
    source = "file"
    path   = "orders.yaml"
  }
}

stage "demand" {
  uses = "forecast"
  with {
    table   = stage.orders
    horizon = 3
  }
}
`
	path := writeFile(t, t.TempDir(), "main.hcl", src)

	doc, err := spec.Load(context.Background(), path)
	require.NoError(t, err)

	require.NotNil(t, doc.Pipeline)
	assert.Equal(t, "weekly", doc.Pipeline.Name)
	assert.Equal(t, "demo", doc.Pipeline.Description)

	require.Len(t, doc.Stages, 2)
	assert.Equal(t, "orders", doc.Stages[0].ID)
	assert.Equal(t, "data", doc.Stages[0].Kind)
	assert.Equal(t, 0, doc.Stages[0].DeclIndex)
	assert.Equal(t, "demand", doc.Stages[1].ID)
	assert.Equal(t, 1, doc.Stages[1].DeclIndex)

	// Parameters keep source order.
	require.Len(t, doc.Stages[0].Params, 2)
	assert.Equal(t, "source", doc.Stages[0].Params[0].Name)
	assert.Equal(t, "path", doc.Stages[0].Params[1].Name)

	demand, ok := doc.Stage("demand")
	require.True(t, ok)
	_, ok = demand.Param("table")
	assert.True(t, ok)
}

func TestLoad_DirectoryConcatenatesInSortedOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.hcl", `
stage "late" {
  uses = "data"
}
`)
	writeFile(t, dir, "a.hcl", `
stage "early" {
  uses = "data"
}
`)

	doc, err := spec.Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, doc.Stages, 2)
	assert.Equal(t, "early", doc.Stages[0].ID)
	assert.Equal(t, "late", doc.Stages[1].ID)
	assert.Equal(t, 0, doc.Stages[0].DeclIndex)
	assert.Equal(t, 1, doc.Stages[1].DeclIndex)
}

func TestLoad_DuplicateStageID(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "main.hcl", `
stage "orders" {
  uses = "data"
}

stage "orders" {
  uses = "forecast"
}
`)

	_, err := spec.Load(context.Background(), path)
	require.Error(t, err)

	var dupErr *spec.DuplicateStageError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "orders", dupErr.ID)
}

func TestLoad_MissingUses(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "main.hcl", `
stage "orders" {
}
`)

	_, err := spec.Load(context.Background(), path)
	require.Error(t, err)
}

func TestLoad_NoFiles(t *testing.T) {
	t.Parallel()

	_, err := spec.Load(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .hcl pipeline files")
}
