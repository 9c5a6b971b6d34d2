package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"

	"github.com/oshokin/ninja-release/internal/logger"
)

// cargoManifest is the part of Cargo.toml that carries the version.
type cargoManifest struct {
	Workspace struct {
		Package struct {
			Version string `toml:"version"`
		} `toml:"package"`
	} `toml:"workspace"`
	Package struct {
		Version string `toml:"version"`
	} `toml:"package"`
}

// ReadVersion returns workspace.package.version from a Cargo.toml, falling
// back to package.version for single-crate projects.
func ReadVersion(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read package metadata: %w: %w", ErrManifest, err)
	}

	var m cargoManifest
	if err = toml.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parse %s: %w: %w", path, ErrManifest, err)
	}

	version := m.Workspace.Package.Version
	if version == "" {
		version = m.Package.Version
	}

	if version == "" {
		return "", fmt.Errorf("%s has no workspace.package.version: %w", path, ErrManifest)
	}

	if !isSemantic(version) {
		return "", fmt.Errorf("version %q is not semantic: %w", version, ErrManifest)
	}

	return version, nil
}

// checkBundlerVersion warns when the bundler configuration declares a
// different version. A missing file is not worth a warning.
func checkBundlerVersion(ctx context.Context, path, version string) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.Debugf(ctx, "Skipping bundler version check: %v", err)
		return
	}

	if !gjson.ValidBytes(data) {
		logger.WarnKV(ctx, "Bundler configuration is not valid JSON", "path", path)
		return
	}

	declared := gjson.GetBytes(data, "version")
	if !declared.Exists() {
		declared = gjson.GetBytes(data, "package.version")
	}

	if declared.Exists() && declared.String() != version {
		logger.WarnKV(ctx, "Bundler version differs from package version",
			"bundler", declared.String(), "package", version, "path", path)
	}
}

// isSemantic rejects the shorthand forms semver.IsValid accepts, such as "1.2".
func isSemantic(version string) bool {
	v := "v" + version

	return semver.IsValid(v) && semver.Canonical(v) == strings.TrimSuffix(v, semver.Build(v))
}
