// Package dag builds the pipeline graph from stage declarations and the
// dependency edges derived by the reference resolver, and produces the
// deterministic execution order the executor walks.
package dag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/plangridgo/internal/spec"
)

type node struct {
	id         string
	declIndex  int
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is the directed acyclic stage graph. Nodes are stages; an edge
// producer -> consumer exists for every resolved reference.
type Graph struct {
	nodes map[string]*node
	// order keeps declaration order for deterministic tie-breaking.
	order []string
}

// CyclicPipelineError reports a dependency cycle. Stages lists exactly the
// stages on the detected cycle, in traversal order.
type CyclicPipelineError struct {
	Stages []string
}

func (e *CyclicPipelineError) Error() string {
	return fmt.Sprintf("pipeline contains a dependency cycle: %s", strings.Join(e.Stages, " -> "))
}

// Build constructs the graph from the declared stages and the dependency
// map (consumer id -> producer ids). A self-reference is rejected here as a
// one-stage cycle; longer cycles are caught by Sort.
func Build(stages []*spec.Stage, deps map[string][]string) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*node, len(stages))}

	for _, stage := range stages {
		g.nodes[stage.ID] = &node{
			id:         stage.ID,
			declIndex:  stage.DeclIndex,
			deps:       make(map[string]*node),
			dependents: make(map[string]*node),
		}
		g.order = append(g.order, stage.ID)
	}

	for consumer, producers := range deps {
		to, ok := g.nodes[consumer]
		if !ok {
			return nil, fmt.Errorf("dependency map names undeclared stage %q", consumer)
		}
		for _, producer := range producers {
			if producer == consumer {
				return nil, &CyclicPipelineError{Stages: []string{consumer}}
			}
			from, ok := g.nodes[producer]
			if !ok {
				return nil, fmt.Errorf("dependency map names undeclared stage %q", producer)
			}
			to.deps[producer] = from
			from.dependents[consumer] = to
		}
	}

	return g, nil
}

// StageIDs returns all stage identifiers in declaration order.
func (g *Graph) StageIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Dependencies returns the sorted producer ids of the given stage.
func (g *Graph) Dependencies(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		out = append(out, depID)
	}
	sort.Strings(out)
	return out
}
