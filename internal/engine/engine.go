// Package engine validates a pipeline document and executes it: stages run
// strictly one at a time in deterministic topological order, each stage's
// parameters are bound from upstream artifacts, the registered capability
// block runs, and its artifact is stored for downstream stages. The first
// failing stage aborts the run.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/plangridgo/internal/artifact"
	"github.com/vk/plangridgo/internal/bind"
	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/dag"
	"github.com/vk/plangridgo/internal/refs"
	"github.com/vk/plangridgo/internal/registry"
	"github.com/vk/plangridgo/internal/spec"
)

// Engine executes pipeline documents against a capability block registry.
type Engine struct {
	reg *registry.Registry
}

// New creates an Engine. The registry must not be nil.
func New(reg *registry.Registry) *Engine {
	if reg == nil {
		panic("engine: registry must not be nil")
	}
	return &Engine{reg: reg}
}

// Plan is a validated execution plan: the deterministic stage order and the
// dependency map behind it.
type Plan struct {
	Order []string
	Deps  map[string][]string
}

// Validate checks the document structurally before anything runs: every
// reference resolves, every block kind is registered, declared parameters
// satisfy the block contracts, and the graph is acyclic. Findings of the
// first three checks are collected so one pass reports every problem.
func (e *Engine) Validate(ctx context.Context, doc *spec.Document) (*Plan, error) {
	var errs []error

	deps, _, err := refs.Resolve(doc)
	if err != nil {
		errs = append(errs, err)
	}

	for _, stage := range doc.Stages {
		block, err := e.reg.Lookup(stage.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %q: %w", stage.ID, err))
			continue
		}
		contract := block.Describe()
		for _, ps := range contract.Params {
			if !ps.Required {
				continue
			}
			if _, ok := stage.Param(ps.Name); !ok {
				errs = append(errs, fmt.Errorf("stage %q: missing required parameter %q for block kind %q", stage.ID, ps.Name, stage.Kind))
			}
		}
		for _, p := range stage.Params {
			if _, ok := contract.Param(p.Name); !ok {
				errs = append(errs, fmt.Errorf("stage %q: unknown parameter %q for block kind %q", stage.ID, p.Name, stage.Kind))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	graph, err := dag.Build(doc.Stages, deps)
	if err != nil {
		return nil, err
	}
	order, err := graph.Sort()
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Pipeline validated.", "order", order)
	return &Plan{Order: order, Deps: deps}, nil
}

// Execute validates and runs the document. On failure the returned Result
// still carries the artifacts produced before the failing stage, and the
// returned error names exactly one root cause.
func (e *Engine) Execute(ctx context.Context, doc *spec.Document) (*Result, error) {
	plan, err := e.Validate(ctx, doc)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Order:     plan.Order,
		Artifacts: make(map[string]artifact.Artifact, len(plan.Order)),
	}
	// Every log line of this run carries the run id.
	ctx = ctxlog.With(ctx, "run_id", result.RunID)
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting pipeline run.", "stages", len(plan.Order))

	for _, id := range plan.Order {
		// Respect context cancellation between stages.
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("pipeline cancelled at stage %q: %w", id, ctx.Err())
		default:
		}

		stage, ok := doc.Stage(id)
		if !ok {
			return result, fmt.Errorf("internal: planned stage %q not found in document", id)
		}

		params, err := bind.Stage(stage, plan.Deps[id], result.Artifacts)
		if err != nil {
			var bindErr *bind.InternalBindingError
			if errors.As(err, &bindErr) {
				// Engine defect, not a stage failure; surface it undressed.
				return result, err
			}
			return result, e.fail(ctx, result, stage, err)
		}

		block, err := e.reg.Lookup(stage.Kind)
		if err != nil {
			return result, err
		}

		logger.Info("▶️ Starting stage", "stage", id, "kind", stage.Kind)
		art, err := block.Run(ctx, params)
		if err != nil {
			return result, e.fail(ctx, result, stage, err)
		}
		if want := block.Describe().Output; want != "" && art.Kind != want {
			return result, e.fail(ctx, result, stage, fmt.Errorf("block produced %s artifact, contract declares %s", art.Kind, want))
		}

		result.Artifacts[id] = art
		logger.Info("✅ Finished stage", "stage", id)
	}

	logger.Info("Pipeline run complete.")
	return result, nil
}

func (e *Engine) fail(ctx context.Context, result *Result, stage *spec.Stage, err error) error {
	failure := &StageFailure{Stage: stage.ID, Kind: stage.Kind, Err: err}
	result.Failure = failure
	ctxlog.FromContext(ctx).Error("Stage failed; aborting run.", "stage", stage.ID, "kind", stage.Kind, "error", err)
	return failure
}
