package dist

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/fsutil"
	"github.com/oshokin/ninja-release/internal/logger"
)

// ChecksumsFileName is written into the dist directory when checksums are enabled.
const ChecksumsFileName = "SHA512SUMS"

// maxHashers bounds concurrent checksum computation.
const maxHashers = 4

// Aggregator populates the distribution directory.
type Aggregator struct {
	cfg *config.Config
}

// New creates an Aggregator.
func New(cfg *config.Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate recreates the dist directory and fills it with every deliverable
// found under bundleRoot plus the raw binary, returning the directory path.
// An empty rawBinary skips the raw binary; a missing one is only a warning.
func (a *Aggregator) Aggregate(ctx context.Context, bundleRoot, rawBinary string) (string, error) {
	ctx = logger.WithName(ctx, "dist")
	distDir := a.cfg.Path(a.cfg.Paths.DistDir)

	for _, pattern := range a.cfg.Dist.Include {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return "", fmt.Errorf("include pattern %q: %w", pattern, err)
		}
	}

	if err := os.RemoveAll(distDir); err != nil {
		return "", fmt.Errorf("remove %s: %w", distDir, err)
	}

	if err := os.MkdirAll(distDir, fsutil.DefaultDirMode); err != nil {
		return "", fmt.Errorf("create %s: %w", distDir, err)
	}

	if err := a.collect(ctx, bundleRoot, distDir); err != nil {
		return "", err
	}

	if err := a.copyRawBinary(ctx, rawBinary, distDir); err != nil {
		return "", err
	}

	if a.cfg.Dist.Checksums {
		if err := WriteChecksums(ctx, distDir); err != nil {
			return "", err
		}
	}

	return distDir, nil
}

func (a *Aggregator) collect(ctx context.Context, bundleRoot, distDir string) error {
	if !fsutil.Exists(bundleRoot) {
		logger.WarnKV(ctx, "Bundle output not found, nothing to collect", "root", bundleRoot)
		return nil
	}

	copied := make(map[string]string)

	return filepath.WalkDir(bundleRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if path == bundleRoot || !a.matches(d.Name()) {
			return nil
		}

		if first, ok := copied[d.Name()]; ok {
			logger.WarnKV(ctx, "Skipping duplicate deliverable", "path", path, "kept", first)
			return skip(d)
		}

		dst := filepath.Join(distDir, d.Name())

		if err := fsutil.Copy(path, dst); err != nil {
			return fmt.Errorf("copy %s: %w", path, err)
		}

		copied[d.Name()] = path

		logger.Status(ctx, "Collected", d.Name())

		return skip(d)
	})
}

// matches reports whether a base name is a deliverable.
func (a *Aggregator) matches(name string) bool {
	if slices.Contains(a.cfg.Dist.Exclude, name) {
		return false
	}

	for _, pattern := range a.cfg.Dist.Include {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

func (a *Aggregator) copyRawBinary(ctx context.Context, rawBinary, distDir string) error {
	if rawBinary == "" {
		return nil
	}

	info, err := os.Stat(rawBinary)
	if err != nil || !info.Mode().IsRegular() {
		logger.WarnKV(ctx, "Raw binary not found, dist holds bundle artifacts only", "path", rawBinary)
		return nil
	}

	dst := filepath.Join(distDir, filepath.Base(rawBinary))
	if err = fsutil.CopyFile(rawBinary, dst); err != nil {
		return fmt.Errorf("copy raw binary %s: %w", rawBinary, err)
	}

	logger.Status(ctx, "Collected", filepath.Base(rawBinary))

	return nil
}

// skip keeps a matched directory bundle from being descended into.
func skip(d fs.DirEntry) error {
	if d.IsDir() {
		return filepath.SkipDir
	}

	return nil
}

// WriteChecksums hashes every top-level regular file in dir and writes the
// sums in sha512sum format. os.ReadDir order keeps the lines sorted by name.
func WriteChecksums(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string

	for _, e := range entries {
		if e.Type().IsRegular() && e.Name() != ChecksumsFileName {
			names = append(names, e.Name())
		}
	}

	sums := make([]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHashers)

	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sum, err := fsutil.Checksum(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("checksum %s: %w", name, err)
			}

			sums[i] = hex.EncodeToString(sum) + "  " + name

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return err
	}

	var b strings.Builder

	for _, line := range sums {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	path := filepath.Join(dir, ChecksumsFileName)
	if err = os.WriteFile(path, []byte(b.String()), 0o644); err != nil { //nolint:gosec // published alongside the artifacts
		return fmt.Errorf("write %s: %w", path, err)
	}

	logger.Status(ctx, "Checksummed", fmt.Sprintf("%d files", len(names)))

	return nil
}
