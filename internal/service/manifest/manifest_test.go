package manifest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/domain/release"
	"github.com/oshokin/ninja-release/internal/logger"
	"github.com/oshokin/ninja-release/internal/service/manifest"
)

var fixedNow = time.Date(2025, 11, 30, 12, 0, 0, 0, time.FixedZone("MSK", 3*60*60))

const cargoToml = `[workspace]
members = ["ninja-core", "ninja-cli"]

[workspace.package]
version = "1.2.3"
edition = "2021"
`

func write(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

// workspace lays out a repository with signatures for every default platform.
func workspace(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Root = t.TempDir()
	cfg.Repository = "acme/ninja"

	write(t, cfg.Path("Cargo.toml"), cargoToml)
	write(t, cfg.Path("CHANGELOG.md"), "# Changelog\n\n## [1.2.3] - 2025-11-30\nFoo\nBar\n\n## [1.2.2]\nOld\n")

	signatures := map[string]string{
		"ubuntu-22.04-build/appimage/Ninja_1.2.3_amd64.AppImage.tar.gz.sig":       "sig-linux-x64\n",
		"ubuntu-22.04-arm-build/appimage/Ninja_1.2.3_aarch64.AppImage.tar.gz.sig": "sig-linux-arm",
		"windows-latest-build/nsis/Ninja_1.2.3_x64-setup.exe.sig":                 "  sig-windows  ",
		"macos-latest-build/macos/Ninja_aarch64.app.tar.gz.sig":                   "sig-macos",
	}
	for rel, contents := range signatures {
		write(t, cfg.Path("artifacts", filepath.FromSlash(rel)), contents)
	}

	return cfg
}

// TestDownloadURL builds the release download address from the repository and tag.
func TestDownloadURL(t *testing.T) {
	t.Parallel()

	got, err := manifest.DownloadURL(config.DefaultReleaseHost, "acme/ninja", "1.2.3", "Ninja_1.2.3_amd64.AppImage.tar.gz")
	require.NoError(t, err)
	require.Equal(t, "https://github.com/acme/ninja/releases/download/v1.2.3/Ninja_1.2.3_amd64.AppImage.tar.gz", got)

	got, err = manifest.DownloadURL("https://git.example.com/", "acme/ninja", "2.0.0-rc.1", "Ninja_2.0.0-rc.1_x64-setup.exe")
	require.NoError(t, err)
	require.Equal(t, "https://git.example.com/acme/ninja/releases/download/v2.0.0-rc.1/Ninja_2.0.0-rc.1_x64-setup.exe", got)

	_, err = manifest.DownloadURL(config.DefaultReleaseHost, "ninja", "1.2.3", "a")
	require.Error(t, err)
}

// TestAssetName expands both placeholders.
func TestAssetName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Ninja_1.2.3_amd64.AppImage.tar.gz",
		manifest.AssetName("{product}_{version}_amd64.AppImage.tar.gz", "Ninja", "1.2.3"))
	require.Equal(t, "Ninja_aarch64.app.tar.gz",
		manifest.AssetName("{product}_aarch64.app.tar.gz", "Ninja", "1.2.3"))
}

// TestReadVersion prefers the workspace version and validates it.
func TestReadVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cases := map[string]struct {
		contents string
		want     string
	}{
		"workspace":    {contents: cargoToml, want: "1.2.3"},
		"single crate": {contents: "[package]\nname = \"ninja\"\nversion = \"0.4.0-rc.1\"\n", want: "0.4.0-rc.1"},
		"missing key":  {contents: "[workspace]\nmembers = []\n"},
		"not semver":   {contents: "[workspace.package]\nversion = \"1.2\"\n"},
		"broken toml":  {contents: "[workspace.package\nversion = "},
	}

	for name, tc := range cases {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "-")+".toml")
		write(t, path, tc.contents)

		got, err := manifest.ReadVersion(path)
		if tc.want == "" {
			require.ErrorIs(t, err, manifest.ErrManifest, name)
			continue
		}

		require.NoError(t, err, name)
		require.Equal(t, tc.want, got, name)
	}

	_, err := manifest.ReadVersion(filepath.Join(dir, "absent.toml"))
	require.ErrorIs(t, err, manifest.ErrManifest)
}

// TestFindSignature searches nested directories and trims the contents.
func TestFindSignature(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, filepath.Join(root, "a", "b", "c", "App.tar.gz.sig"), "\n  signed  \n")

	got, err := manifest.FindSignature(root, "App.tar.gz")
	require.NoError(t, err)
	require.Equal(t, "signed", got)

	_, err = manifest.FindSignature(root, "Other.tar.gz")
	require.Error(t, err)

	_, err = manifest.FindSignature(filepath.Join(root, "missing"), "App.tar.gz")
	require.Error(t, err)
}

// TestGenerate produces one entry per platform with the injected publish date.
func TestGenerate(t *testing.T) {
	t.Parallel()

	cfg := workspace(t)

	m, err := manifest.New(cfg, manifest.WithClock(func() time.Time { return fixedNow })).
		Generate(context.Background())
	require.NoError(t, err)

	require.Equal(t, "1.2.3", m.Version)
	require.Equal(t, "Foo\nBar", m.Notes)
	require.Equal(t, "2025-11-30T09:00:00Z", m.PubDate)
	require.Len(t, m.Platforms, 4)
	require.Equal(t, release.Entry{
		URL:       "https://github.com/acme/ninja/releases/download/v1.2.3/Ninja_1.2.3_x64-setup.exe",
		Signature: "sig-windows",
	}, m.Platforms[release.WindowsX86_64])
	require.Equal(t, "sig-linux-x64", m.Platforms[release.LinuxX86_64].Signature)
}

// TestGenerate_SignaturePolicy fails for a required platform and omits an optional one.
func TestGenerate_SignaturePolicy(t *testing.T) {
	t.Parallel()

	cfg := workspace(t)
	require.NoError(t, os.RemoveAll(cfg.Path("artifacts", "macos-latest-build")))

	_, err := manifest.New(cfg).Generate(context.Background())
	require.ErrorIs(t, err, manifest.ErrManifest)
	require.Contains(t, err.Error(), string(release.DarwinAarch64))

	cfg.Release.Platforms[3].Required = false

	m, err := manifest.New(cfg).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Platforms, 3)
	require.NotContains(t, m.Platforms, release.DarwinAarch64)
}

// TestGenerate_Failures reports missing inputs as manifest errors.
func TestGenerate_Failures(t *testing.T) {
	t.Parallel()

	t.Run("no repository", func(t *testing.T) {
		t.Parallel()

		cfg := workspace(t)
		cfg.Repository = ""

		_, err := manifest.New(cfg).Generate(context.Background())
		require.ErrorIs(t, err, manifest.ErrManifest)
	})

	t.Run("no changelog", func(t *testing.T) {
		t.Parallel()

		cfg := workspace(t)
		require.NoError(t, os.Remove(cfg.Path("CHANGELOG.md")))

		_, err := manifest.New(cfg).Generate(context.Background())
		require.ErrorIs(t, err, manifest.ErrManifest)
	})
}

// TestGenerate_Warnings logs a bundler version mismatch and a missing changelog section.
func TestGenerate_Warnings(t *testing.T) {
	t.Parallel()

	cfg := workspace(t)
	write(t, cfg.Path("CHANGELOG.md"), "## [1.0.0]\nAncient\n")
	write(t, cfg.Path(cfg.Paths.BundlerConfig), `{"productName": "Ninja", "version": "1.2.2"}`)

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	m, err := manifest.New(cfg).Generate(ctx)
	require.NoError(t, err)
	require.Empty(t, m.Notes)

	require.Equal(t, 1, logs.FilterMessage("Bundler version differs from package version").Len())
	require.Equal(t, 1, logs.FilterMessage("No changelog section for version, notes are empty").Len())
}

// TestWrite prints and persists identical four-space indented JSON.
func TestWrite(t *testing.T) {
	t.Parallel()

	cfg := workspace(t)
	g := manifest.New(cfg, manifest.WithClock(func() time.Time { return fixedNow }))

	m, err := g.Generate(context.Background())
	require.NoError(t, err)

	var stdout bytes.Buffer

	path, err := g.Write(context.Background(), m, &stdout)
	require.NoError(t, err)
	require.Equal(t, cfg.Path("latest.json"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, stdout.String(), string(written))
	require.Contains(t, string(written), "\n    \"version\": \"1.2.3\",\n")

	var decoded release.Manifest
	require.NoError(t, json.Unmarshal(written, &decoded))
	require.Equal(t, *m, decoded)
}

// TestWrite_RejectsInvalidDocument refuses to publish a manifest the schema rejects.
func TestWrite_RejectsInvalidDocument(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Root = t.TempDir()

	bad := &release.Manifest{
		Version:   "not-a-version",
		PubDate:   fixedNow.UTC().Format(time.RFC3339),
		Platforms: map[release.PlatformKey]release.Entry{},
	}

	var stdout bytes.Buffer

	_, err := manifest.New(cfg).Write(context.Background(), bad, &stdout)
	require.ErrorIs(t, err, manifest.ErrManifest)
	require.Zero(t, stdout.Len())
	require.NoFileExists(t, cfg.Path("latest.json"))
}
