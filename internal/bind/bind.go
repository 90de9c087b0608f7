// Package bind substitutes stage references with the concrete artifacts
// produced upstream. Binding evaluates each raw parameter expression against
// an evaluation context exposing completed stages under the `stage`
// namespace, which preserves the nesting structure of literals, sequences
// and mappings while replacing every reference in place.
package bind

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/refs"
	"github.com/vk/plangridgo/internal/registry"
	"github.com/vk/plangridgo/internal/spec"
)

// InternalBindingError reports a binder lookup miss: a stage was bound
// before one of its dependencies produced an artifact. Under a correct
// topological order this cannot happen, so it indicates an engine defect,
// never a user-input problem.
type InternalBindingError struct {
	Stage   string
	Missing string
}

func (e *InternalBindingError) Error() string {
	return fmt.Sprintf("internal: stage %q was bound before dependency %q produced an artifact", e.Stage, e.Missing)
}

// EvalContext exposes the artifact store to HCL evaluation: completed stage
// artifacts are reachable as stage.<id> (and sub-fields of their payloads).
func EvalContext(store map[string]artifact.Artifact) *hcl.EvalContext {
	stageVals := make(map[string]cty.Value, len(store))
	for id, art := range store {
		stageVals[id] = art.Value
	}
	stages := cty.EmptyObjectVal
	if len(stageVals) > 0 {
		stages = cty.ObjectVal(stageVals)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{refs.Root: stages},
	}
}

// Stage produces the fully concrete parameter mapping for one stage, given
// its resolved dependencies and the store of already-produced artifacts.
func Stage(stage *spec.Stage, deps []string, store map[string]artifact.Artifact) (registry.Params, error) {
	for _, dep := range deps {
		if _, ok := store[dep]; !ok {
			return nil, &InternalBindingError{Stage: stage.ID, Missing: dep}
		}
	}

	ectx := EvalContext(store)
	params := make(registry.Params, len(stage.Params))
	for _, p := range stage.Params {
		val, diags := p.Expr.Value(ectx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("stage %q: parameter %q: %w", stage.ID, p.Name, diags)
		}
		params[p.Name] = val
	}
	return params, nil
}
