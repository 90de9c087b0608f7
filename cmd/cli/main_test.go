package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/plangridgo/internal/cli"
)

const pipelineHCL = `
pipeline "weekly_delivery" {
  description = "forecast demand and plan assignments"
}

stage "orders" {
  uses = "data"
  with {
    source = "file"
    path   = "%s"
  }
}

stage "demand" {
  uses = "forecast"
  with {
    table    = stage.orders
    group_by = "store"
    value    = "units"
    horizon  = 3
    method   = "ma"
  }
}

stage "plan" {
  uses = "optimize"
  with {
    dims  = ["vehicle", "store", "period"]
    sizes = [2, 2, 3]
    constraints = [
      { rule = "assign_exactly_one", over = ["store", "period"] },
      { rule = "risk_penalty", risk = stage.demand, threshold = 100, weight = 5 },
    ]
    objective = { sense = "minimize" }
  }
}
`

const ordersYAML = `
columns: [store, units]
rows:
  - [s1, 10]
  - [s2, 20]
  - [s1, 14]
  - [s2, 22]
`

func writePipeline(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	ordersPath := filepath.Join(dir, "orders.yaml")
	require.NoError(t, os.WriteFile(ordersPath, []byte(ordersYAML), 0600))

	hcl := []byte(fmt.Sprintf(pipelineHCL, ordersPath))
	pipelinePath := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(pipelinePath, hcl, 0600))
	return pipelinePath
}

func TestRun_ExecutesPipeline(t *testing.T) {
	t.Parallel()

	path := writePipeline(t)
	out := &bytes.Buffer{}

	err := run(out, []string{"run", "--log-level", "error", path})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "3 stages succeeded")
}

func TestRun_LintValidPipeline(t *testing.T) {
	t.Parallel()

	path := writePipeline(t)
	out := &bytes.Buffer{}

	err := run(out, []string{"lint", "--log-level", "error", path})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "pipeline is valid: 3 stages")
	assert.Contains(t, out.String(), "plan (optimize)")
}

func TestRun_LintReportsAllFindings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := `
stage "demand" {
  uses = "forecast"
  with {
    table = stage.ghost
    value = "units"
  }
}

stage "plan" {
  uses = "teleport"
}
`
	path := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))

	out := &bytes.Buffer{}
	err := run(out, []string{"lint", "--log-level", "error", path})
	require.Error(t, err)

	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok, "lint failures must carry an exit code")
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Message, `"ghost"`)
	assert.Contains(t, exitErr.Message, `"teleport"`)
}

func TestRun_GraphEmitsDOT(t *testing.T) {
	t.Parallel()

	path := writePipeline(t)
	out := &bytes.Buffer{}

	err := run(out, []string{"graph", "--log-level", "error", path})
	require.NoError(t, err)

	dot := out.String()
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, `"orders"->"demand"`)
	assert.Contains(t, dot, `"demand"->"plan"`)
}

func TestRun_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	path := writePipeline(t)
	out := &bytes.Buffer{}

	err := run(out, []string{"run", "--log-level", "loud", path})
	require.Error(t, err)

	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
}
