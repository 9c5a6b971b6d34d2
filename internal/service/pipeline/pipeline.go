package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/domain/artifact"
	"github.com/oshokin/ninja-release/internal/logger"
	"github.com/oshokin/ninja-release/internal/service/binaries"
	"github.com/oshokin/ninja-release/internal/service/bundler"
	"github.com/oshokin/ninja-release/internal/service/dist"
	"github.com/oshokin/ninja-release/internal/service/manifest"
	"github.com/oshokin/ninja-release/internal/service/relocator"
	"github.com/oshokin/ninja-release/internal/toolchain"
)

// baseExecutable is the process name of this tool, used to spot concurrent runs.
const baseExecutable = "ninja-release"

// Options holds the per-run inputs gathered by the command line.
type Options struct {
	// Mode selects the stages.
	Mode Mode
	// Passthrough is forwarded verbatim to cargo and the bundler.
	Passthrough []string
	// Target overrides the configured target triple.
	Target string
	// Debug builds the library without --release.
	Debug bool
	// Manifest appends manifest generation to ModeAll.
	Manifest bool
	// Stdout receives the manifest JSON; nil means os.Stdout.
	Stdout io.Writer
}

// Pipeline runs release stages against one workspace.
type Pipeline struct {
	cfg       *config.Config
	runner    toolchain.Runner
	builder   *binaries.Builder
	relocator *relocator.Relocator
	bundler   *bundler.Builder
	dist      *dist.Aggregator
	manifest  *manifest.Generator
	processes func() ([]ps.Process, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithBundler replaces the bundle stage builder, e.g. to pin the OS family.
func WithBundler(b *bundler.Builder) Option {
	return func(p *Pipeline) {
		p.bundler = b
	}
}

// WithManifestGenerator replaces the manifest generator, e.g. to inject a clock.
func WithManifestGenerator(g *manifest.Generator) Option {
	return func(p *Pipeline) {
		p.manifest = g
	}
}

// WithProcessLister replaces the process table used by the concurrent-run check.
func WithProcessLister(list func() ([]ps.Process, error)) Option {
	return func(p *Pipeline) {
		p.processes = list
	}
}

// New wires every stage from cfg.
func New(cfg *config.Config, runner toolchain.Runner, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		runner:    runner,
		builder:   binaries.NewBuilder(cfg, runner),
		relocator: relocator.New(cfg),
		bundler:   bundler.NewBuilder(cfg, runner),
		dist:      dist.New(cfg),
		manifest:  manifest.New(cfg),
		processes: ps.Processes,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// run carries what stages share during one invocation.
type run struct {
	Options

	triple artifact.Triple
	cross  bool
}

// Run executes the stages of opts.Mode in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	stages := opts.Mode.stages(opts.Manifest)
	if len(stages) == 0 {
		return fmt.Errorf("%q: %w", opts.Mode, ErrUnknownMode)
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	ctx = logger.WithKV(ctx, "mode", string(opts.Mode))

	p.warnConcurrentRuns(ctx)

	r := &run{Options: opts}

	if needsTriple(stages) {
		triple, cross, err := p.resolveTarget(ctx, opts)
		if err != nil {
			return err
		}

		r.triple, r.cross = triple, cross

		logger.Status(ctx, "Target", triple.String())
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.DebugKV(ctx, "Starting stage", "stage", s.String())

		if err := p.runStage(ctx, s, r); err != nil {
			return fmt.Errorf("%s stage: %w", s, err)
		}
	}

	logger.Status(ctx, "Finished", string(opts.Mode))

	return nil
}

func (p *Pipeline) runStage(ctx context.Context, s stage, r *run) error {
	switch s {
	case stageLibrary:
		return p.builder.BuildLibrary(ctx, r.Passthrough, r.Debug)
	case stageBinaries:
		return p.buildBinaries(ctx, r)
	case stageBundle:
		return p.bundler.Build(ctx, r.Passthrough)
	case stageDist:
		_, err := p.dist.Aggregate(ctx, p.bundleRoot(r), p.rawBinary(r))
		return err
	case stageManifest:
		return p.writeManifest(ctx, r.Stdout)
	case stageClean:
		return p.clean(ctx, r.triple)
	default:
		return fmt.Errorf("stage %d: %w", s, ErrUnknownMode)
	}
}

// resolveTarget applies the precedence passthrough --target, flag, config, host.
// Only a passthrough --target makes cargo cross-compile.
func (p *Pipeline) resolveTarget(ctx context.Context, opts Options) (artifact.Triple, bool, error) {
	if fromArgs, ok := toolchain.TargetFromArgs(opts.Passthrough); ok {
		triple, err := toolchain.ResolveTarget(ctx, p.runner, fromArgs)
		return triple, true, err
	}

	override := opts.Target
	if override == "" {
		override = p.cfg.Target
	}

	triple, err := toolchain.ResolveTarget(ctx, p.runner, override)

	return triple, false, err
}

func (p *Pipeline) buildBinaries(ctx context.Context, r *run) error {
	for _, spec := range p.cfg.Binaries {
		built, err := p.builder.Build(ctx, spec, r.triple, r.Passthrough)
		if err != nil {
			return err
		}

		final, err := p.relocator.Relocate(ctx, built, spec, r.triple)
		if err != nil {
			return err
		}

		logger.DebugKV(ctx, "Binary ready", "binary", spec.Name, "path", final.Path, "role", final.Role.String())
	}

	return nil
}

// bundleRoot prefers the cross release bundle when the bundler produced one.
func (p *Pipeline) bundleRoot(r *run) string {
	if r.cross {
		if root := filepath.Join(p.cfg.CrossReleaseDir(r.triple), "bundle"); dirExists(root) {
			return root
		}
	}

	return filepath.Join(p.cfg.ReleaseDir(), "bundle")
}

// rawBinary is the application binary the bundler built next to its bundle.
func (p *Pipeline) rawBinary(r *run) string {
	if p.cfg.Dist.RawBinary == "" {
		return ""
	}

	return filepath.Join(filepath.Dir(p.bundleRoot(r)), p.cfg.Dist.RawBinary+r.triple.ExecutableExtension())
}

func (p *Pipeline) writeManifest(ctx context.Context, stdout io.Writer) error {
	m, err := p.manifest.Generate(ctx)
	if err != nil {
		return err
	}

	_, err = p.manifest.Write(ctx, m, stdout)

	return err
}

func (p *Pipeline) clean(ctx context.Context, triple artifact.Triple) error {
	if err := p.relocator.Clean(ctx, p.cfg.Binaries, triple); err != nil {
		return err
	}

	distDir := p.cfg.Path(p.cfg.Paths.DistDir)
	if !dirExists(distDir) {
		return nil
	}

	if err := os.RemoveAll(distDir); err != nil {
		return fmt.Errorf("remove %s: %w", distDir, err)
	}

	logger.Status(ctx, "Removed", distDir)

	return nil
}

// warnConcurrentRuns logs when another instance of this tool is running.
// Nothing is locked; two runs against one workspace are on the operator.
func (p *Pipeline) warnConcurrentRuns(ctx context.Context) {
	processList, err := p.processes()
	if err != nil {
		logger.Debugf(ctx, "Unable to list processes: %v", err)
		return
	}

	thisProcessID := os.Getpid()
	name := executableName()

	for _, process := range processList {
		if process == nil || process.Pid() == thisProcessID || process.Executable() != name {
			continue
		}

		logger.WarnKV(ctx, "Another ninja-release process is running, outputs may clash", "pid", process.Pid())

		return
	}
}

// executableName returns the process name including ".exe" on Windows.
func executableName() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return baseExecutable + ".exe"
	}

	return baseExecutable
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
