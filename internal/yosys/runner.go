// Package yosys runs the yosys synthesis tool to obtain a design's module hierarchy
// report.
package yosys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultBinary is looked up on PATH.
	DefaultBinary = "yosys"
	// DefaultTimeout bounds a single hierarchy run.
	DefaultTimeout = 120 * time.Second
)

// Runner invokes yosys as a subprocess. The zero value uses DefaultBinary with no
// timeout beyond the caller's context.
type Runner struct {
	Binary  string
	Timeout time.Duration // 0 means no extra bound
	Logger  *slog.Logger
}

// NewRunner creates a Runner with the given binary and timeout.
func NewRunner(binary string, timeout time.Duration) *Runner {
	return &Runner{Binary: binary, Timeout: timeout}
}

func (r *Runner) binary() string {
	if r.Binary == "" {
		return DefaultBinary
	}
	return r.Binary
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Hierarchy runs `read_verilog file; hierarchy -top top -auto-top` and returns the
// tool's stdout. Any failure to run the tool or a non-zero exit is returned as a
// *ToolInvocationError.
func (r *Runner) Hierarchy(ctx context.Context, file, top string) (string, error) {
	script, err := HierarchyScript(file, top)
	if err != nil {
		return "", fmt.Errorf("invalid hierarchy request: %w", err)
	}

	return r.run(ctx, "-p", script)
}

// Version returns the first line printed by `yosys -V`.
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "-V")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return line, nil
}

func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	binary := r.binary()

	if _, err := exec.LookPath(binary); err != nil {
		return "", &ToolInvocationError{Binary: binary, ExitCode: -1, Err: err}
	}

	execCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger().Debug("yosys finished",
		"binary", binary,
		"args", args,
		"duration", time.Since(start),
		"stdout_bytes", stdout.Len(),
		"error", err)

	if err != nil {
		invErr := &ToolInvocationError{
			Binary:   binary,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			invErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := execCtx.Err(); ctxErr != nil {
			invErr.ExitCode = -1
			invErr.Err = ctxErr
		}
		// yosys reports most errors on stdout
		if invErr.Stderr == "" {
			invErr.Stderr = lastLines(stdout.String(), 5)
		}
		return "", invErr
	}

	return stdout.String(), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
