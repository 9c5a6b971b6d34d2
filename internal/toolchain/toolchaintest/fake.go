// Package toolchaintest provides an in-memory toolchain.Runner for tests.
package toolchaintest

import (
	"context"
	"os/exec"
	"sync"

	"github.com/oshokin/ninja-release/internal/toolchain"
)

// Handler simulates one executable. It returns what the process would print
// on stdout and its failure, if any.
type Handler func(cmd toolchain.Command) ([]byte, error)

// Fake records every command and dispatches it to a handler keyed by command name.
// Commands without a handler succeed with no output.
type Fake struct {
	mu       sync.Mutex
	tools    map[string]bool
	handlers map[string]Handler
	calls    []toolchain.Command
}

// New returns a Fake whose PATH contains tools.
func New(tools ...string) *Fake {
	f := &Fake{
		tools:    make(map[string]bool, len(tools)),
		handlers: make(map[string]Handler),
	}

	for _, tool := range tools {
		f.tools[tool] = true
	}

	return f
}

// Handle registers h for commands named name.
func (f *Fake) Handle(name string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[name] = h

	return f
}

// Provide puts tool on the fake PATH, e.g. from an install handler.
func (f *Fake) Provide(tool string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tools[tool] = true
}

// Calls returns a copy of every command run so far.
func (f *Fake) Calls() []toolchain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]toolchain.Command(nil), f.calls...)
}

// Run implements toolchain.Runner.
func (f *Fake) Run(_ context.Context, cmd toolchain.Command) error {
	_, err := f.dispatch(cmd)
	return err
}

// Output implements toolchain.Runner.
func (f *Fake) Output(_ context.Context, cmd toolchain.Command) ([]byte, error) {
	return f.dispatch(cmd)
}

// LookPath implements toolchain.Runner.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tools[name] {
		return "/fake/bin/" + name, nil
	}

	return "", exec.ErrNotFound
}

func (f *Fake) dispatch(cmd toolchain.Command) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	h := f.handlers[cmd.Name]
	f.mu.Unlock()

	if h == nil {
		return nil, nil
	}

	return h(cmd)
}

// Exit returns the error a process exiting with code would produce.
func Exit(cmd toolchain.Command, code int) error {
	return &toolchain.ExitError{Command: cmd, Code: code}
}

// Failing is a Handler that always exits with status 1.
func Failing(cmd toolchain.Command) ([]byte, error) {
	return nil, Exit(cmd, 1)
}
