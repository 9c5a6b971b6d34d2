package bundler

import (
	"context"
	"runtime"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/logger"
	"github.com/oshokin/ninja-release/internal/toolchain"
)

// Builder runs the bundle stage with the strategies of one OS family.
type Builder struct {
	runner     toolchain.Runner
	locator    *toolchain.Locator
	strategies []Strategy
}

// NewBuilder creates a Builder for the host OS.
func NewBuilder(cfg *config.Config, runner toolchain.Runner) *Builder {
	return NewBuilderFor(runtime.GOOS, cfg, runner)
}

// NewBuilderFor creates a Builder for the given OS family.
func NewBuilderFor(goos string, cfg *config.Config, runner toolchain.Runner) *Builder {
	return &Builder{
		runner:     runner,
		locator:    toolchain.NewLocator(runner),
		strategies: DefaultStrategies(goos, cfg.Path(cfg.Bundle.Dir)),
	}
}

// Strategies returns the cascade this builder runs.
func (b *Builder) Strategies() []Strategy {
	return b.strategies
}

// Build produces the desktop bundle, forwarding passthrough after "--".
func (b *Builder) Build(ctx context.Context, passthrough []string) error {
	ctx = logger.WithName(ctx, "bundler")

	name, err := Run(ctx, b.locator, b.runner, b.strategies, passthrough)
	if err != nil {
		return err
	}

	logger.Status(ctx, "Bundled", "with "+name)

	return nil
}
