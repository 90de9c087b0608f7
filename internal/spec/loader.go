package spec

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/plangridgo/internal/ctxlog"
	"github.com/vk/plangridgo/internal/fsutil"
)

// HCL shapes for decoding. Stage parameters are captured as a remain body so
// their expressions survive unevaluated.
type documentHCL struct {
	Pipeline *pipelineHCL `hcl:"pipeline,block"`
	Stages   []*stageHCL  `hcl:"stage,block"`
}

type pipelineHCL struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
}

type stageHCL struct {
	ID   string   `hcl:"id,label"`
	Uses string   `hcl:"uses"`
	With *withHCL `hcl:"with,block"`
}

type withHCL struct {
	Body hcl.Body `hcl:",remain"`
}

// Load parses the pipeline document at path, which may be a single .hcl
// file or a directory of them. Files load in sorted path order and stages
// keep their declaration order across files.
func Load(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	filePaths, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no .hcl pipeline files found in %q", path)
	}
	logger.Debug("Loading pipeline files.", "files", filePaths)

	parser := hclparse.NewParser()
	doc := &Document{index: make(map[string]*Stage)}

	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", filePath, diags)
		}

		var raw documentHCL
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &raw); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", filePath, diags)
		}

		if raw.Pipeline != nil {
			if doc.Pipeline != nil {
				return nil, fmt.Errorf("%s: multiple pipeline blocks; at most one allowed", filePath)
			}
			doc.Pipeline = &Pipeline{
				Name:        raw.Pipeline.Name,
				Description: raw.Pipeline.Description,
			}
		}

		for _, rawStage := range raw.Stages {
			stage, err := buildStage(rawStage, len(doc.Stages))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filePath, err)
			}
			if _, exists := doc.index[stage.ID]; exists {
				return nil, &DuplicateStageError{ID: stage.ID}
			}
			doc.Stages = append(doc.Stages, stage)
			doc.index[stage.ID] = stage
		}
	}

	logger.Debug("Pipeline document loaded.", "stages", len(doc.Stages))
	return doc, nil
}

func buildStage(raw *stageHCL, declIndex int) (*Stage, error) {
	if raw.Uses == "" {
		return nil, fmt.Errorf("stage %q: uses must name a block kind", raw.ID)
	}

	stage := &Stage{
		ID:        raw.ID,
		Kind:      raw.Uses,
		DeclIndex: declIndex,
	}

	if raw.With != nil {
		attrs, diags := raw.With.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("stage %q: %w", raw.ID, diags)
		}
		for _, attr := range attrs {
			stage.Params = append(stage.Params, Param{
				Name:  attr.Name,
				Expr:  attr.Expr,
				Range: attr.Range,
			})
		}
		// JustAttributes returns a map; restore source order.
		sort.Slice(stage.Params, func(i, j int) bool {
			a, b := stage.Params[i].Range.Start, stage.Params[j].Range.Start
			if a.Byte != b.Byte {
				return a.Byte < b.Byte
			}
			return stage.Params[i].Name < stage.Params[j].Name
		})
	}

	return stage, nil
}
