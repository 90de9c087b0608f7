// Package spec holds the typed, read-only representation of a parsed
// pipeline document: an ordered list of stage declarations, each naming a
// capability block kind and carrying a parameter mapping of raw HCL
// expressions. Expressions stay unevaluated here; the binder evaluates them
// at execution time once upstream artifacts exist.
package spec

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Pipeline describes the optional top-level `pipeline` block.
type Pipeline struct {
	Name        string
	Description string
}

// Param is one entry of a stage's `with` block: a parameter name and its
// raw expression. The expression may be a literal, a nested tuple/object,
// or contain references to other stages (`stage.<id>` traversals).
type Param struct {
	Name  string
	Expr  hcl.Expression
	Range hcl.Range
}

// Stage is one declared unit of pipeline work, bound to exactly one
// capability block kind.
type Stage struct {
	// ID is the stage identifier, unique within the document.
	ID string
	// Kind is the capability block tag from the `uses` attribute.
	Kind string
	// Params are the `with` block entries in source order.
	Params []Param
	// DeclIndex is the position of the stage across all loaded files.
	// Topological ordering breaks ties by this index so repeated runs of
	// the same document always execute in the same order.
	DeclIndex int
}

// Param returns the named parameter, if declared.
func (s *Stage) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Document is a fully parsed pipeline specification.
type Document struct {
	Pipeline *Pipeline
	Stages   []*Stage

	index map[string]*Stage
}

// Stage looks a stage up by identifier.
func (d *Document) Stage(id string) (*Stage, bool) {
	s, ok := d.index[id]
	return s, ok
}

// DuplicateStageError reports two stage blocks sharing one identifier.
type DuplicateStageError struct {
	ID string
}

func (e *DuplicateStageError) Error() string {
	return fmt.Sprintf("duplicate stage identifier %q", e.ID)
}
