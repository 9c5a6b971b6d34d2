package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/domain/release"
	"github.com/oshokin/ninja-release/internal/logger"
)

// ErrManifest is matched by every manifest generation failure.
var ErrManifest = errors.New("manifest generation failed")

// manifestFileMode is the permission of the written manifest; it is published.
const manifestFileMode = 0o644

// Generator builds the release manifest from the workspace.
type Generator struct {
	cfg *config.Config
	now func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock replaces the publish-date clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a Generator.
func New(cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{cfg: cfg, now: time.Now}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate reads version, notes and signatures and builds the manifest.
func (g *Generator) Generate(ctx context.Context) (*release.Manifest, error) {
	ctx = logger.WithName(ctx, "manifest")

	if err := config.ValidateRepository(g.cfg.Repository); err != nil {
		return nil, fmt.Errorf("repository identifier (set %s): %w: %w", config.EnvRepository, ErrManifest, err)
	}

	version, err := ReadVersion(g.cfg.Path(g.cfg.Paths.PackageFile))
	if err != nil {
		return nil, err
	}

	logger.Status(ctx, "Version", version)

	checkBundlerVersion(ctx, g.cfg.Path(g.cfg.Paths.BundlerConfig), version)

	changelog, err := readChangelog(g.cfg.Path(g.cfg.Paths.ChangelogFile))
	if err != nil {
		return nil, err
	}

	notes, found := ExtractNotes(changelog, version)
	if !found {
		logger.WarnKV(ctx, "No changelog section for version, notes are empty", "version", version)
	}

	platforms, err := g.platforms(ctx, version)
	if err != nil {
		return nil, err
	}

	m, err := release.NewManifest(version, notes, g.now(), platforms)
	if err != nil {
		return nil, errors.Join(ErrManifest, err)
	}

	return m, nil
}

// platforms resolves the URL and signature of every configured platform.
func (g *Generator) platforms(ctx context.Context, version string) (map[release.PlatformKey]release.Entry, error) {
	artifactsDir := g.cfg.Path(g.cfg.Paths.ArtifactsDir)
	entries := make(map[release.PlatformKey]release.Entry, len(g.cfg.Release.Platforms))

	for _, platform := range g.cfg.Release.Platforms {
		asset := AssetName(platform.Asset, g.cfg.Release.ProductName, version)

		signature, err := FindSignature(artifactsDir, asset)
		if err != nil {
			if platform.Required {
				return nil, fmt.Errorf("%s: %w: %w", platform.Key, ErrManifest, err)
			}

			logger.WarnKV(ctx, "Signature missing, platform left out of the manifest",
				"platform", platform.Key, "asset", asset)

			continue
		}

		link, err := DownloadURL(g.cfg.Release.Host, g.cfg.Repository, version, asset)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", platform.Key, ErrManifest, err)
		}

		entries[platform.Key] = release.Entry{URL: link, Signature: signature}

		logger.Status(ctx, "Signed", fmt.Sprintf("%s (%s)", platform.Key, asset))
	}

	return entries, nil
}

// Write validates the manifest, prints it to stdout and persists it to the manifest file.
func (g *Generator) Write(ctx context.Context, m *release.Manifest, stdout io.Writer) (string, error) {
	data, err := Encode(m)
	if err != nil {
		return "", err
	}

	if err = validateDocument(data); err != nil {
		return "", err
	}

	if _, err = stdout.Write(data); err != nil {
		return "", fmt.Errorf("print manifest: %w", err)
	}

	path := g.cfg.Path(g.cfg.Paths.ManifestFile)

	logger.Status(ctx, "Writing", path)

	if err = os.WriteFile(path, data, manifestFileMode); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

// Encode serializes a manifest with four-space indentation and a trailing newline.
func Encode(m *release.Manifest) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	return buf.Bytes(), nil
}

// AssetName expands the {product} and {version} placeholders of a template.
func AssetName(template, product, version string) string {
	return strings.NewReplacer("{product}", product, "{version}", version).Replace(template)
}

// DownloadURL returns <host>/<owner>/<repo>/releases/download/v<version>/<asset>.
func DownloadURL(host, repository, version, asset string) (string, error) {
	if err := config.ValidateRepository(repository); err != nil {
		return "", err
	}

	owner, name, _ := strings.Cut(repository, "/")

	return url.JoinPath(host, owner, name, "releases", "download", "v"+version, asset)
}
