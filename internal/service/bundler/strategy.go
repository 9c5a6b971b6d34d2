package bundler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/ninja-release/internal/logger"
	"github.com/oshokin/ninja-release/internal/toolchain"
)

// ErrBundleBuild is matched by every BundleBuildError.
var ErrBundleBuild = errors.New("all bundle strategies failed")

// Prerequisite is a tool a strategy needs, with the command installing it.
type Prerequisite struct {
	Tool    string
	Install *toolchain.Command
}

// Strategy is one way of invoking the bundler.
type Strategy struct {
	// Name identifies the strategy in logs and errors.
	Name string
	// Prerequisites are ensured in order before the bundler runs.
	Prerequisites []Prerequisite
	// Build returns the bundler invocation for the passthrough arguments.
	Build func(args []string) toolchain.Command
}

// Attempt records why a strategy did not produce a bundle.
type Attempt struct {
	Strategy string
	Err      error
}

// BundleBuildError is returned when every strategy failed.
type BundleBuildError struct {
	Attempts []Attempt
}

func (e *BundleBuildError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no strategy configured", ErrBundleBuild)
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}

	return fmt.Sprintf("%s: %s", ErrBundleBuild, strings.Join(parts, "; "))
}

// Unwrap exposes ErrBundleBuild and every attempt's cause.
func (e *BundleBuildError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, ErrBundleBuild)

	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}

	return errs
}

// Run tries strategies in order and returns the name of the first one that
// succeeded. A failed prerequisite or a non-zero exit moves on to the next
// strategy; the remaining ones are never attempted after a success.
func Run(
	ctx context.Context,
	locator *toolchain.Locator,
	runner toolchain.Runner,
	strategies []Strategy,
	args []string,
) (string, error) {
	var attempts []Attempt

	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		sctx := logger.WithKV(ctx, "strategy", s.Name)

		err := attempt(sctx, locator, runner, s, args)
		if err == nil {
			return s.Name, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		attempts = append(attempts, Attempt{Strategy: s.Name, Err: err})

		if i < len(strategies)-1 {
			logger.WarnKV(sctx, "Bundle strategy failed, trying the next one", "error", err)
		}
	}

	return "", &BundleBuildError{Attempts: attempts}
}

func attempt(
	ctx context.Context,
	locator *toolchain.Locator,
	runner toolchain.Runner,
	s Strategy,
	args []string,
) error {
	for _, p := range s.Prerequisites {
		if err := locator.Ensure(ctx, p.Tool, p.Install); err != nil {
			return err
		}
	}

	cmd := s.Build(args)

	logger.Status(ctx, "Running", cmd.String())

	return runner.Run(ctx, cmd)
}

// DefaultStrategies returns the bundler front-ends for the host OS family,
// each running in dir.
func DefaultStrategies(goos, dir string) []Strategy {
	tauriCLI := Strategy{
		Name: "cargo tauri",
		Prerequisites: []Prerequisite{
			{Tool: "cargo"},
			{Tool: "cargo-tauri", Install: &toolchain.Command{
				Name: "cargo",
				Args: []string{"install", "tauri-cli"},
				Dir:  dir,
			}},
		},
		Build: command(dir, "cargo", "tauri", "build"),
	}

	if goos == "windows" {
		return []Strategy{tauriCLI}
	}

	return []Strategy{
		{
			Name: "pnpm dlx",
			Prerequisites: []Prerequisite{
				{Tool: "pnpm", Install: &toolchain.Command{
					Name: "npm",
					Args: []string{"install", "-g", "pnpm"},
					Dir:  dir,
				}},
			},
			Build: command(dir, "pnpm", "dlx", "@tauri-apps/cli", "build"),
		},
		tauriCLI,
		{
			Name: "npx",
			Prerequisites: []Prerequisite{
				{Tool: "npx", Install: &toolchain.Command{
					Name: "npm",
					Args: []string{"install", "-g", "npm"},
					Dir:  dir,
				}},
			},
			Build: command(dir, "npx", "@tauri-apps/cli", "build"),
		},
	}
}

// command builds "<name> <prefix...> -- <args...>" in dir.
func command(dir, name string, prefix ...string) func([]string) toolchain.Command {
	return func(args []string) toolchain.Command {
		full := make([]string, 0, len(prefix)+1+len(args))
		full = append(full, prefix...)
		full = append(full, "--")
		full = append(full, args...)

		return toolchain.Command{Name: name, Args: full, Dir: dir}
	}
}
