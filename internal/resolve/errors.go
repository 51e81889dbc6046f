package resolve

import (
	"fmt"

	"github.com/matthewbaird/turbine/internal/errors"
)

// ReferenceError reports a configuration that names an undeclared entity
// or field. It matches errors.ErrReference.
type ReferenceError struct {
	Path       string // document path of the offending reference
	Target     string // name that could not be resolved
	Kind       string // "entity" or "field"
	Suggestion string
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("%s: unknown %s %q", e.Path, e.Kind, e.Target)
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

func (e *ReferenceError) Is(target error) bool { return target == errors.ErrReference }

// CycleError reports a belongsTo cycle. Entity is a participant and Cycle
// lists the entities on the cycle in traversal order.
type CycleError struct {
	Entity string
	Cycle  []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency involving %s", e.Entity)
}

func (e *CycleError) Is(target error) bool { return target == errors.ErrCircularDependency }
