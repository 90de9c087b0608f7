// Package refs scans stage parameters for references to other stages and
// derives the dependency edge set of the pipeline. A reference is any HCL
// traversal rooted at `stage`, e.g. stage.orders or stage.risk.values; the
// segment after the root names the producing stage and the remainder, if
// any, is a sub-field path into that stage's artifact.
package refs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/plangridgo/internal/spec"
)

// Root is the variable namespace all stage references live under.
const Root = "stage"

// Reference is one resolved pointer from a consuming stage's parameter to a
// producing stage. It names the producer's artifact; it never owns it.
type Reference struct {
	Consumer string
	Producer string
	Param    string
	// FieldPath holds the attribute names and index keys traversed past the
	// producer, e.g. ["values", "0"] for stage.risk.values[0]. Empty means
	// the whole artifact.
	FieldPath []string
	Range     hcl.Range
}

// UnresolvedReferenceError reports a parameter naming an identifier that is
// not declared as a stage in the document.
type UnresolvedReferenceError struct {
	Stage string
	Name  string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("stage %q references unknown name %q", e.Stage, e.Name)
}

// Resolve inspects every parameter expression of every stage and returns the
// dependency map (consumer id to the sorted set of producer ids) together
// with the full reference list. It is a pure function over the document.
//
// All dangling references are collected before failing so that a single
// lint pass surfaces every problem.
func Resolve(doc *spec.Document) (map[string][]string, []Reference, error) {
	deps := make(map[string][]string, len(doc.Stages))
	var references []Reference
	var errs []error

	for _, stage := range doc.Stages {
		seen := make(map[string]bool)

		for _, param := range stage.Params {
			for _, traversal := range param.Expr.Variables() {
				ref, err := parseTraversal(stage.ID, param.Name, traversal, doc)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				references = append(references, ref)
				if !seen[ref.Producer] {
					seen[ref.Producer] = true
					deps[stage.ID] = append(deps[stage.ID], ref.Producer)
				}
			}
		}

		sort.Strings(deps[stage.ID])
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return deps, references, nil
}

// parseTraversal validates a single variable traversal as a stage reference.
func parseTraversal(consumer, param string, traversal hcl.Traversal, doc *spec.Document) (Reference, error) {
	root := traversal.RootName()
	if root != Root {
		return Reference{}, &UnresolvedReferenceError{Stage: consumer, Name: root}
	}

	if len(traversal) < 2 {
		return Reference{}, fmt.Errorf("stage %q: bare %q reference in parameter %q; expected %s.<id>", consumer, Root, param, Root)
	}
	producerAttr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return Reference{}, fmt.Errorf("stage %q: parameter %q must reference stages as %s.<id>", consumer, param, Root)
	}

	producer := producerAttr.Name
	if _, declared := doc.Stage(producer); !declared {
		return Reference{}, &UnresolvedReferenceError{Stage: consumer, Name: producer}
	}

	var fieldPath []string
	for _, step := range traversal[2:] {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			fieldPath = append(fieldPath, s.Name)
		case hcl.TraverseIndex:
			fieldPath = append(fieldPath, indexKeyString(s.Key))
		}
	}

	return Reference{
		Consumer:  consumer,
		Producer:  producer,
		Param:     param,
		FieldPath: fieldPath,
		Range:     traversal.SourceRange(),
	}, nil
}

// indexKeyString renders an index step's key, so stage.risk.values[0] yields
// the field path ["values", "0"].
func indexKeyString(key cty.Value) string {
	switch key.Type() {
	case cty.String:
		return key.AsString()
	case cty.Number:
		return key.AsBigFloat().Text('f', -1)
	default:
		return key.GoString()
	}
}
