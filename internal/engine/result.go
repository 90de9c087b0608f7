package engine

import (
	"fmt"

	"github.com/vk/plangridgo/internal/artifact"
)

// StageFailure records the single root cause that aborted a run: the
// failing stage, its block kind, and the underlying error.
type StageFailure struct {
	Stage string
	Kind  string
	Err   error
}

func (f *StageFailure) Error() string {
	return fmt.Sprintf("stage %q (kind %q) failed: %v", f.Stage, f.Kind, f.Err)
}

func (f *StageFailure) Unwrap() error { return f.Err }

// Result is the terminal state of one pipeline run: every produced artifact
// keyed by stage identifier, plus the failure record if the run aborted.
// It lives only as long as the caller needs it; nothing persists across runs.
type Result struct {
	RunID     string
	Order     []string
	Artifacts map[string]artifact.Artifact
	Failure   *StageFailure
}

// OK reports whether every stage produced an artifact.
func (r *Result) OK() bool { return r.Failure == nil && len(r.Artifacts) == len(r.Order) }
