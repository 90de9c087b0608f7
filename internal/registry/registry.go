// Package registry maps capability block kinds ("data", "forecast", "geo",
// "weather", "optimize", or registered extensions) to their implementations.
//
// A Registry is constructed explicitly and passed into the engine; there is
// no process-wide mutable registry, so tests and embedders can assemble any
// block set they need. Registration is additive: new kinds plug in without
// touching the engine's dispatch logic.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/zclconf/go-cty/cty"
)

// ParamSpec describes one parameter a block accepts.
type ParamSpec struct {
	Name        string
	Type        cty.Type
	Required    bool
	Description string
}

// Contract is a block's self-description: its kind tag, the parameter
// schema, and the artifact kind it produces. The engine uses it for early
// validation before any stage runs.
type Contract struct {
	Kind        string
	Description string
	Params      []ParamSpec
	Output      artifact.Kind
}

// Param returns the named parameter spec, if declared.
func (c Contract) Param(name string) (ParamSpec, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Block is the uniform contract every capability block implements. Run
// receives fully bound parameters (all references replaced by upstream
// artifact values) and produces exactly one artifact.
type Block interface {
	Describe() Contract
	Run(ctx context.Context, params Params) (artifact.Artifact, error)
}

// UnknownBlockKindError reports a stage whose block-kind tag has no
// registered implementation. It is raised at validation time, before any
// stage executes.
type UnknownBlockKindError struct {
	Kind string
}

func (e *UnknownBlockKindError) Error() string {
	return fmt.Sprintf("no capability block registered for kind %q", e.Kind)
}

// Registry holds the block implementations for a single run.
type Registry struct {
	blocks map[string]Block
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{blocks: make(map[string]Block)}
}

// Register adds a block under the kind tag from its contract. Registering
// the same kind twice is a programmer error.
func (r *Registry) Register(b Block) {
	kind := b.Describe().Kind
	if kind == "" {
		panic("block contract has an empty kind tag")
	}
	if _, exists := r.blocks[kind]; exists {
		panic(fmt.Sprintf("capability block with kind '%s' already registered", kind))
	}
	slog.Debug("Registering capability block.", "kind", kind)
	r.blocks[kind] = b
}

// Lookup returns the block registered for the kind.
func (r *Registry) Lookup(kind string) (Block, error) {
	b, ok := r.blocks[kind]
	if !ok {
		return nil, &UnknownBlockKindError{Kind: kind}
	}
	return b, nil
}

// Kinds returns all registered kind tags, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.blocks))
	for k := range r.blocks {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
