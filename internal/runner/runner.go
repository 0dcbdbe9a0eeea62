package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/containerd/errdefs"
)

// Command describes one external process invocation.
type Command struct {
	// Args is the full argument vector; Args[0] is the binary.
	Args []string

	// Env holds extra KEY=VALUE entries appended to the current environment.
	Env []string

	// Dir is the working directory (empty means inherit).
	Dir string
}

// String renders the argument vector for logs.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Result is what a process that actually ran produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// LaunchError means the binary could not be started at all. It is distinct
// from a process that ran and returned non-zero, which is reported through
// Result.ExitCode with a nil error.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the cause and errdefs.ErrUnavailable so callers can
// classify with either errors.Is or errdefs.IsUnavailable.
func (e *LaunchError) Unwrap() []error {
	return []error{errdefs.ErrUnavailable, e.Err}
}

// IsLaunchFailure reports whether err came from a binary that never started.
func IsLaunchFailure(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSRunner executes real processes via exec.CommandContext. Cancelling the
// context kills the child.
type OSRunner struct{}

// Run starts cmd, waits for it and captures its output. Stdin is not connected.
func (OSRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) == 0 {
		return Result{}, &LaunchError{Err: errors.New("empty argument vector")}
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return res, fmt.Errorf("%s interrupted: %w", cmd.Args[0], ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return Result{}, &LaunchError{Path: cmd.Args[0], Err: err}
}

// Verify OSRunner implements Runner
var _ Runner = OSRunner{}
