package relocator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/domain/artifact"
	"github.com/oshokin/ninja-release/internal/fsutil"
	"github.com/oshokin/ninja-release/internal/logger"
)

var (
	// ErrArtifactNotFound is returned when a built binary cannot be located anywhere.
	ErrArtifactNotFound = errors.New("built artifact not found")
	// errUnsafeCleanup guards the host release directory against reclamation.
	errUnsafeCleanup = errors.New("refusing to delete directory")
)

// Relocator owns the release layout of built binaries.
type Relocator struct {
	cfg *config.Config
}

// New creates a Relocator.
func New(cfg *config.Config) *Relocator {
	return &Relocator{cfg: cfg}
}

// Relocate takes a built binary to its final place in the bundler input
// directory. It uses the primary path when the build output exists and the
// recursive search otherwise.
func (r *Relocator) Relocate(
	ctx context.Context,
	built artifact.Location,
	spec artifact.BinarySpec,
	triple artifact.Triple,
) (artifact.Location, error) {
	ctx = logger.WithKV(ctx, "binary", spec.Name)

	if built.Exists && fsutil.Exists(built.Path) {
		return r.relocate(ctx, built, spec, triple)
	}

	return r.fallback(ctx, built, spec, triple)
}

// relocate is the primary path: canonical move, tagged copy, bundler install, reclamation.
func (r *Relocator) relocate(
	ctx context.Context,
	built artifact.Location,
	spec artifact.BinarySpec,
	triple artifact.Triple,
) (artifact.Location, error) {
	releaseDir := r.cfg.ReleaseDir()

	canonical := filepath.Join(releaseDir, spec.FileName(triple))
	if filepath.Clean(built.Path) != canonical {
		logger.Status(ctx, "Moving", fmt.Sprintf("%s -> %s", built.Path, canonical))

		if err := fsutil.Move(built.Path, canonical); err != nil {
			return built, fmt.Errorf("move %s: %w", built.Path, err)
		}
	}

	loc, err := built.Advance(canonical, artifact.RoleCanonicalRelease)
	if err != nil {
		return built, err
	}

	tagged := filepath.Join(releaseDir, spec.TaggedFileName(triple))

	logger.Status(ctx, "Renamed", fmt.Sprintf("%s -> %s", canonical, tagged))

	if err = fsutil.CopyFile(canonical, tagged); err != nil {
		return loc, fmt.Errorf("tag %s: %w", canonical, err)
	}

	if loc, err = loc.Advance(tagged, artifact.RoleTripleTagged); err != nil {
		return loc, err
	}

	if loc, err = r.install(ctx, loc, tagged, spec, triple); err != nil {
		return loc, err
	}

	if crossDir, cross := r.crossTargetDir(built.Path); cross {
		if err = r.reclaim(ctx, crossDir); err != nil {
			return loc, err
		}
	}

	return loc.Advance(loc.Path, artifact.RoleDistFinal)
}

// fallback searches the build output tree and copies the newest match.
func (r *Relocator) fallback(
	ctx context.Context,
	built artifact.Location,
	spec artifact.BinarySpec,
	triple artifact.Triple,
) (artifact.Location, error) {
	logger.WarnKV(ctx, "Expected build output missing, searching the build tree",
		"expected", built.Path, "root", r.cfg.Path(r.cfg.Paths.TargetDir))

	found, err := r.Discover(spec, triple)
	if err != nil {
		return built, err
	}

	logger.Status(ctx, "Found", found)

	loc, err := r.install(ctx, built, found, spec, triple)
	if err != nil {
		return loc, err
	}

	return loc.Advance(loc.Path, artifact.RoleDistFinal)
}

// install copies src into the bundler input directory under the triple-tagged name.
func (r *Relocator) install(
	ctx context.Context,
	loc artifact.Location,
	src string,
	spec artifact.BinarySpec,
	triple artifact.Triple,
) (artifact.Location, error) {
	dest := filepath.Join(r.cfg.Path(r.cfg.Paths.BinariesDir), spec.TaggedFileName(triple))

	logger.Status(ctx, "Copying", fmt.Sprintf("%s -> %s", src, dest))

	if err := fsutil.Install(src, dest); err != nil {
		return loc, err
	}

	return loc.Advance(dest, artifact.RoleBundleDestination)
}

// candidate is one file found by Discover.
type candidate struct {
	path    string
	modTime time.Time
}

// Discover walks the whole build output tree for files named like the
// binary and returns the most recently modified one. Ties go to the
// lexically first path.
func (r *Relocator) Discover(spec artifact.BinarySpec, triple artifact.Triple) (string, error) {
	root := r.cfg.Path(r.cfg.Paths.TargetDir)
	name := spec.FileName(triple)

	var candidates []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if !d.Type().IsRegular() || d.Name() != name {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		candidates = append(candidates, candidate{path: path, modTime: info.ModTime()})

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("search %s: %w", root, err)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%s under %s: %w", name, root, ErrArtifactNotFound)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].modTime.After(candidates[j].modTime)
		}

		return candidates[i].path < candidates[j].path
	})

	return candidates[0].path, nil
}

// Clean removes the triple-tagged copies from the release and bundler input directories.
func (r *Relocator) Clean(ctx context.Context, specs []artifact.BinarySpec, triple artifact.Triple) error {
	for _, spec := range specs {
		for _, path := range []string{
			filepath.Join(r.cfg.ReleaseDir(), spec.TaggedFileName(triple)),
			filepath.Join(r.cfg.Path(r.cfg.Paths.BinariesDir), spec.TaggedFileName(triple)),
		} {
			err := os.Remove(path)

			switch {
			case err == nil:
				logger.Status(ctx, "Removed", path)
			case errors.Is(err, fs.ErrNotExist):
				continue
			default:
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
	}

	return nil
}

// crossTargetDir returns target/<triple> when builtPath lies in target/<triple>/release.
func (r *Relocator) crossTargetDir(builtPath string) (string, bool) {
	releaseDir := filepath.Dir(filepath.Clean(builtPath))
	if releaseDir == r.cfg.ReleaseDir() || filepath.Base(releaseDir) != "release" {
		return "", false
	}

	crossDir := filepath.Dir(releaseDir)
	if filepath.Dir(crossDir) != filepath.Clean(r.cfg.Path(r.cfg.Paths.TargetDir)) {
		return "", false
	}

	return crossDir, true
}

// reclaim deletes a cross-compilation intermediate directory. It never
// deletes the host release directory or anything containing it.
func (r *Relocator) reclaim(ctx context.Context, dir string) error {
	releaseDir := r.cfg.ReleaseDir()

	rel, err := filepath.Rel(dir, releaseDir)
	if err != nil || rel == "." || !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%s: %w", dir, errUnsafeCleanup)
	}

	if err = os.RemoveAll(dir); err != nil {
		return fmt.Errorf("reclaim %s: %w", dir, err)
	}

	logger.Status(ctx, "Removed", dir)

	return nil
}
