package app

import (
	"fmt"

	gographviz "github.com/awalterschulze/gographviz"

	"github.com/vk/plangridgo/internal/engine"
	"github.com/vk/plangridgo/internal/spec"
)

// exportDOT renders the stage graph: one node per stage labelled with its
// id and block kind, one edge per dependency, in topological order.
func exportDOT(doc *spec.Document, plan *engine.Plan) (string, error) {
	name := "pipeline"
	if doc.Pipeline != nil && doc.Pipeline.Name != "" {
		name = doc.Pipeline.Name
	}
	name = quote(name)

	g := gographviz.NewGraph()
	if err := g.SetName(name); err != nil {
		return "", fmt.Errorf("dot export: %w", err)
	}
	if err := g.SetDir(true); err != nil {
		return "", fmt.Errorf("dot export: %w", err)
	}

	for _, id := range plan.Order {
		stage, _ := doc.Stage(id)
		attrs := map[string]string{
			"label": quote(fmt.Sprintf("%s\\n(%s)", id, stage.Kind)),
			"shape": "box",
		}
		if err := g.AddNode(name, quote(id), attrs); err != nil {
			return "", fmt.Errorf("dot export: %w", err)
		}
	}
	for _, id := range plan.Order {
		for _, dep := range plan.Deps[id] {
			if err := g.AddEdge(quote(dep), quote(id), true, nil); err != nil {
				return "", fmt.Errorf("dot export: %w", err)
			}
		}
	}

	return g.String(), nil
}

func quote(s string) string { return `"` + s + `"` }
