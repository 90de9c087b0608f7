// Package app contains the core application logic: it assembles the block
// registry and the engine, loads pipeline documents, and exposes the run,
// lint, and graph operations, decoupled from any specific entrypoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/plangridgo/blocks"
	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/engine"
	"github.com/vk/plangridgo/internal/registry"
	"github.com/vk/plangridgo/internal/spec"
)

// Config holds everything an App needs to run.
type Config struct {
	PipelinePath string // .hcl file or directory

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	engine   *engine.Engine
	config   *Config
}

// New is the constructor for the main application. It returns a fully
// initialized App with its own isolated logger and registry. With no
// explicit blocks the built-in set is registered.
func New(outW io.Writer, cfg *Config, extraBlocks ...registry.Block) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(extraBlocks) == 0 {
		blocks.RegisterDefaults(reg)
	} else {
		for _, b := range extraBlocks {
			reg.Register(b)
		}
	}
	logger.Debug("Capability blocks registered.", "kinds", reg.Kinds())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		engine:   engine.New(reg),
		config:   cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

func (a *App) load(ctx context.Context) (*spec.Document, error) {
	return spec.Load(ctx, a.config.PipelinePath)
}

// Run loads and executes the pipeline. It returns nil iff every stage
// produced an artifact.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	doc, err := a.load(ctx)
	if err != nil {
		return err
	}

	result, err := a.engine.Execute(ctx, doc)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.outW, "run %s: %d stages succeeded\n", result.RunID, len(result.Artifacts))
	return nil
}

// Lint loads and validates the pipeline without running anything. All
// findings are reported at once.
func (a *App) Lint(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	doc, err := a.load(ctx)
	if err != nil {
		return err
	}

	plan, err := a.engine.Validate(ctx, doc)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.outW, "pipeline is valid: %d stages\n", len(plan.Order))
	for _, id := range plan.Order {
		stage, _ := doc.Stage(id)
		fmt.Fprintf(a.outW, "  %s (%s)\n", id, stage.Kind)
	}
	return nil
}

// Graph loads and validates the pipeline, then writes its stage graph in
// DOT format.
func (a *App) Graph(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	doc, err := a.load(ctx)
	if err != nil {
		return err
	}

	plan, err := a.engine.Validate(ctx, doc)
	if err != nil {
		return err
	}

	dot, err := exportDOT(doc, plan)
	if err != nil {
		return err
	}
	fmt.Fprint(a.outW, dot)
	return nil
}
