package graph

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/hdl-ift/internal/hierarchy"
)

// ErrCycle is wrapped by every CycleError.
var ErrCycle = errors.New("module hierarchy contains a cycle")

// CycleError reports the instantiation edge that closed a cycle.
// No ordering is produced when it is returned.
type CycleError struct {
	Edge hierarchy.Edge
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrCycle, e.Edge.Parent, e.Edge.Child)
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}
