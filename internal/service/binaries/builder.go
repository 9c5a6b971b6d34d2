package binaries

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/domain/artifact"
	"github.com/oshokin/ninja-release/internal/fsutil"
	"github.com/oshokin/ninja-release/internal/logger"
	"github.com/oshokin/ninja-release/internal/toolchain"
)

// compiler is the build tool every binary and library goes through.
const compiler = "cargo"

// ErrBuild is matched by every BuildError.
var ErrBuild = errors.New("build failed")

// BuildError reports a compiler invocation that exited non-zero.
type BuildError struct {
	// Command is the exact invocation that failed.
	Command toolchain.Command
	// Err is the underlying runner error.
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %v", ErrBuild, e.Err)
}

// Unwrap exposes both ErrBuild and the runner error to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	return []error{ErrBuild, e.Err}
}

// Builder runs cargo builds from the workspace root.
type Builder struct {
	cfg    *config.Config
	runner toolchain.Runner
}

// NewBuilder creates a Builder.
func NewBuilder(cfg *config.Config, runner toolchain.Runner) *Builder {
	return &Builder{cfg: cfg, runner: runner}
}

// BuildLibrary builds the library unit, in release mode unless debug is set.
func (b *Builder) BuildLibrary(ctx context.Context, passthrough []string, debug bool) error {
	logger.Status(ctx, "Building", b.cfg.LibraryPackage)

	args := []string{"build", "--package", b.cfg.LibraryPackage}
	if !debug {
		args = append(args, "--release")
	}

	return b.run(ctx, append(args, passthrough...))
}

// Build compiles one binary in release mode, forwarding passthrough verbatim.
// A missing output file is not an error here: the returned location has
// Exists unset and the relocator falls back to searching for it.
func (b *Builder) Build(
	ctx context.Context,
	spec artifact.BinarySpec,
	triple artifact.Triple,
	passthrough []string,
) (artifact.Location, error) {
	logger.Status(ctx, "Building", fmt.Sprintf("%s (%s)", spec.Package, spec.Name))

	args := []string{"build", "--release", "--bin", spec.Name, "--package", spec.Package}
	if err := b.run(ctx, append(args, passthrough...)); err != nil {
		return artifact.Location{}, err
	}

	expected := b.ExpectedPath(spec, triple, passthrough)
	built := artifact.Location{
		Path:   expected,
		Role:   artifact.RoleBuilt,
		Exists: fsutil.Exists(expected),
	}

	if !built.Exists {
		logger.WarnKV(ctx, "Built binary is not at the expected path", "binary", spec.Name, "path", expected)
	}

	return built, nil
}

// ExpectedPath returns where cargo puts the binary: target/release for host
// builds, target/<triple>/release when passthrough selects a target.
func (b *Builder) ExpectedPath(spec artifact.BinarySpec, triple artifact.Triple, passthrough []string) string {
	dir := b.cfg.ReleaseDir()
	if target, cross := toolchain.TargetFromArgs(passthrough); cross {
		dir = b.cfg.CrossReleaseDir(artifact.Triple(target))
	}

	return filepath.Join(dir, spec.FileName(triple))
}

func (b *Builder) run(ctx context.Context, args []string) error {
	cmd := toolchain.Command{Name: compiler, Args: args, Dir: b.cfg.Root}

	logger.Status(ctx, "Running", cmd.String())

	if err := b.runner.Run(ctx, cmd); err != nil {
		return &BuildError{Command: cmd, Err: err}
	}

	return nil
}
