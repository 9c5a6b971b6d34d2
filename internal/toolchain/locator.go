package toolchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/ninja-release/internal/logger"
)

var (
	// ErrMissingTool is returned when a required tool is absent and no install command is known.
	ErrMissingTool = errors.New("missing required tool")
	// ErrToolInstall is returned when installing a missing tool fails.
	ErrToolInstall = errors.New("failed to install tool")
)

// Locator ensures tools are available before they are invoked.
type Locator struct {
	runner Runner
}

// NewLocator creates a Locator backed by runner.
func NewLocator(runner Runner) *Locator {
	return &Locator{runner: runner}
}

// Ensure succeeds silently when tool is on PATH. Otherwise it runs install
// when given, and fails with ErrMissingTool when not.
func (l *Locator) Ensure(ctx context.Context, tool string, install *Command) error {
	if _, err := l.runner.LookPath(tool); err == nil {
		return nil
	}

	logger.WarnKV(ctx, "Tool not found on PATH", "tool", tool)

	if install == nil {
		return fmt.Errorf("%s: %w", tool, ErrMissingTool)
	}

	logger.Status(ctx, "Installing", fmt.Sprintf("%s (%s)", tool, install))

	if err := l.runner.Run(ctx, *install); err != nil {
		return fmt.Errorf("%s: %w: %w", tool, ErrToolInstall, err)
	}

	if _, err := l.runner.LookPath(tool); err != nil {
		return fmt.Errorf("%s still not on PATH after install: %w", tool, ErrToolInstall)
	}

	return nil
}
