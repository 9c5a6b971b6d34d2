package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one external process invocation.
type Command struct {
	// Name is the executable looked up on PATH.
	Name string
	// Args are passed verbatim.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// String renders the command the way it is announced in status lines.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes external commands.
type Runner interface {
	// Run executes cmd, streaming its output, and fails on a non-zero exit.
	Run(ctx context.Context, cmd Command) error
	// Output executes cmd and returns its standard output.
	Output(ctx context.Context, cmd Command) ([]byte, error)
	// LookPath resolves an executable on the search path.
	LookPath(name string) (string, error)
}

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	Command Command
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	// Stdout receives the child's standard output for Run.
	Stdout io.Writer
	// Stderr receives the child's standard error for Run.
	Stderr io.Writer
}

// NewExecRunner returns a runner that streams child output to the given writers.
// Nil writers default to the process's stderr so stdout stays reserved for results.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	if stdout == nil {
		stdout = os.Stderr
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	return &ExecRunner{Stdout: stdout, Stderr: stderr}
}

// Run executes cmd and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	//nolint:gosec // Commands are assembled from configuration, not user input.
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	return wrapExit(cmd, c.Run(), "")
}

// Output executes cmd and returns what it printed on stdout.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	var stderr bytes.Buffer

	//nolint:gosec // Commands are assembled from configuration, not user input.
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stderr = &stderr

	out, err := c.Output()

	return out, wrapExit(cmd, err, strings.TrimSpace(stderr.String()))
}

// LookPath resolves name on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func wrapExit(cmd Command, err error, stderr string) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: cmd, Code: exitErr.ExitCode(), Stderr: stderr}
	}

	return fmt.Errorf("%s: %w", cmd, err)
}
