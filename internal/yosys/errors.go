package yosys

import (
	"errors"
	"fmt"
	"strings"
)

// ErrToolInvocation is wrapped by every ToolInvocationError.
var ErrToolInvocation = errors.New("yosys invocation failed")

// ToolInvocationError describes a failed yosys run: missing binary, non-zero exit or
// timeout. The report is never parsed when this is returned.
type ToolInvocationError struct {
	Binary   string
	ExitCode int    // -1 when the process did not exit normally
	Stderr   string // Trimmed, may be empty
	Err      error
}

func (e *ToolInvocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s", ErrToolInvocation, e.Binary)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *ToolInvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrToolInvocation}
	}
	return []error{ErrToolInvocation, e.Err}
}
