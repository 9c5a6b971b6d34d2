package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/ninja-release/internal/domain/artifact"
	"github.com/oshokin/ninja-release/internal/domain/release"
)

// Config holds everything a pipeline run needs to know about the workspace.
type Config struct {
	// Root is the workspace root every relative path is resolved against.
	Root string `yaml:"root"`
	// Target is an explicit target triple; empty means host detection.
	Target string `yaml:"target,omitempty"`
	// Repository is the "owner/name" identifier used in download URLs.
	Repository string `yaml:"repository,omitempty"`
	// LibraryPackage is the workspace member built by the library stage.
	LibraryPackage string `yaml:"library_package"`
	// Binaries lists the binaries built and relocated for the bundler.
	Binaries []artifact.BinarySpec `yaml:"binaries"`
	// Paths holds the release layout.
	Paths Paths `yaml:"paths"`
	// Bundle configures the desktop bundler stage.
	Bundle Bundle `yaml:"bundle"`
	// Dist configures the distribution aggregation stage.
	Dist Dist `yaml:"dist"`
	// Release configures manifest generation.
	Release Release `yaml:"release"`
}

// Paths is the filesystem layout of a release, relative to Config.Root.
type Paths struct {
	TargetDir     string `yaml:"target_dir"`
	BinariesDir   string `yaml:"binaries_dir"`
	DistDir       string `yaml:"dist_dir"`
	ArtifactsDir  string `yaml:"artifacts_dir"`
	PackageFile   string `yaml:"package_file"`
	ChangelogFile string `yaml:"changelog_file"`
	ManifestFile  string `yaml:"manifest_file"`
	BundlerConfig string `yaml:"bundler_config"`
}

// Bundle configures the bundler stage.
type Bundle struct {
	// Dir is the directory the bundler front-ends run in.
	Dir string `yaml:"dir"`
}

// Dist configures the aggregation of user-facing deliverables.
type Dist struct {
	// Include holds base-name glob patterns of deliverables.
	Include []string `yaml:"include"`
	// Exclude holds exact base names that are packaging internals.
	Exclude []string `yaml:"exclude"`
	// RawBinary is the bundled application binary copied into dist as-is.
	RawBinary string `yaml:"raw_binary"`
	// Checksums enables writing a SHA512SUMS file into dist.
	Checksums bool `yaml:"checksums"`
}

// Release configures the update manifest.
type Release struct {
	// ProductName is substituted for {product} in asset templates.
	ProductName string `yaml:"product_name"`
	// Host is the repository hosting base URL.
	Host string `yaml:"host"`
	// Platforms lists the manifest entries to produce.
	Platforms []Platform `yaml:"platforms"`
}

// Platform describes the asset published for one updater platform.
type Platform struct {
	// Key is the updater platform key.
	Key release.PlatformKey `yaml:"key"`
	// Asset is the asset file name template with {product} and {version}.
	Asset string `yaml:"asset"`
	// Required makes a missing signature fatal instead of a warning.
	Required bool `yaml:"required"`
}

const (
	// DefaultConfigFilename is the default filename for pipeline settings.
	DefaultConfigFilename = "ninja-release.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DefaultReleaseHost is the repository hosting base URL.
	DefaultReleaseHost = "https://github.com"

	// EnvRepository names the variable carrying the "owner/name" repository identifier.
	EnvRepository = "GITHUB_REPOSITORY"
	// EnvArtifactsDir names the variable overriding the signature search root.
	EnvArtifactsDir = "NINJA_RELEASE_ARTIFACTS_DIR"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidBinary is returned when a binary spec misses its name or package.
	errInvalidBinary = errors.New("binary must have a name and a package")
	// errInvalidRepository is returned for repository identifiers not shaped like owner/name.
	errInvalidRepository = errors.New("repository must look like owner/name")
	// errDuplicatePlatform is returned when a platform key is configured twice.
	errDuplicatePlatform = errors.New("platform configured more than once")
	// errEmptyAsset is returned when a platform has no asset template.
	errEmptyAsset = errors.New("platform asset template is empty")
)

// Default returns a configuration matching the canonical release layout.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default location yields the default configuration.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	for _, bin := range cfg.Binaries {
		if strings.TrimSpace(bin.Name) == "" || strings.TrimSpace(bin.Package) == "" {
			return fmt.Errorf("binary %q: %w", bin.String(), errInvalidBinary)
		}
	}

	if cfg.Repository != "" {
		if err := ValidateRepository(cfg.Repository); err != nil {
			return err
		}
	}

	if _, err := url.ParseRequestURI(cfg.Release.Host); err != nil {
		return fmt.Errorf("invalid release host: %w", err)
	}

	seen := make(map[release.PlatformKey]struct{}, len(cfg.Release.Platforms))

	for _, platform := range cfg.Release.Platforms {
		if _, err := release.ParsePlatformKey(string(platform.Key)); err != nil {
			return err
		}

		if _, dup := seen[platform.Key]; dup {
			return fmt.Errorf("%s: %w", platform.Key, errDuplicatePlatform)
		}

		seen[platform.Key] = struct{}{}

		if strings.TrimSpace(platform.Asset) == "" {
			return fmt.Errorf("%s: %w", platform.Key, errEmptyAsset)
		}
	}

	return nil
}

// ValidateRepository checks that repository looks like "owner/name".
func ValidateRepository(repository string) error {
	owner, name, found := strings.Cut(repository, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%q: %w", repository, errInvalidRepository)
	}

	return nil
}

// ApplyEnv folds process environment values into cfg. Values already set
// in the configuration file win over the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if cfg.Repository == "" {
		if value, ok := lookup(EnvRepository); ok {
			cfg.Repository = strings.TrimSpace(value)
		}
	}

	if value, ok := lookup(EnvArtifactsDir); ok && strings.TrimSpace(value) != "" {
		cfg.Paths.ArtifactsDir = strings.TrimSpace(value)
	}
}

// Path resolves a layout path against Root.
func (c *Config) Path(elem ...string) string {
	joined := filepath.Join(elem...)
	if filepath.IsAbs(joined) {
		return joined
	}

	return filepath.Join(c.Root, joined)
}

// ReleaseDir returns the host release directory, target/release.
func (c *Config) ReleaseDir() string {
	return c.Path(c.Paths.TargetDir, "release")
}

// CrossTargetDir returns the intermediate directory of a cross build, target/<triple>.
func (c *Config) CrossTargetDir(triple artifact.Triple) string {
	return c.Path(c.Paths.TargetDir, triple.String())
}

// CrossReleaseDir returns the release directory of a cross build, target/<triple>/release.
func (c *Config) CrossReleaseDir(triple artifact.Triple) string {
	return filepath.Join(c.CrossTargetDir(triple), "release")
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.Root, ".")
	setDefault(&cfg.LibraryPackage, "ninja-core")

	if len(cfg.Binaries) == 0 {
		cfg.Binaries = []artifact.BinarySpec{{Name: "shurikenctl", Package: "ninja-cli"}}
	}

	setDefault(&cfg.Paths.TargetDir, "target")
	setDefault(&cfg.Paths.BinariesDir, filepath.Join("GUI", "src-tauri", "binaries"))
	setDefault(&cfg.Paths.DistDir, "dist")
	setDefault(&cfg.Paths.ArtifactsDir, "artifacts")
	setDefault(&cfg.Paths.PackageFile, "Cargo.toml")
	setDefault(&cfg.Paths.ChangelogFile, "CHANGELOG.md")
	setDefault(&cfg.Paths.ManifestFile, "latest.json")
	setDefault(&cfg.Paths.BundlerConfig, filepath.Join("GUI", "src-tauri", "tauri.conf.json"))

	setDefault(&cfg.Bundle.Dir, ".")

	if len(cfg.Dist.Include) == 0 {
		cfg.Dist.Include = []string{
			"*.AppImage", "*.AppImage.tar.gz", "*.deb", "*.rpm",
			"*.dmg", "*.app", "*.app.tar.gz",
			"*.msi", "*.msi.zip", "*-setup.exe", "*.nsis.zip",
			"*.tar.gz", "*.zip", "*.sig",
		}
	}

	if len(cfg.Dist.Exclude) == 0 {
		cfg.Dist.Exclude = []string{"control.tar.gz", "data.tar.gz"}
	}

	setDefault(&cfg.Dist.RawBinary, "ninja")

	setDefault(&cfg.Release.ProductName, "Ninja")
	setDefault(&cfg.Release.Host, DefaultReleaseHost)

	if len(cfg.Release.Platforms) == 0 {
		cfg.Release.Platforms = []Platform{
			{Key: release.LinuxX86_64, Asset: "{product}_{version}_amd64.AppImage.tar.gz", Required: true},
			{Key: release.LinuxAarch64, Asset: "{product}_{version}_aarch64.AppImage.tar.gz", Required: true},
			{Key: release.WindowsX86_64, Asset: "{product}_{version}_x64-setup.exe", Required: true},
			{Key: release.DarwinAarch64, Asset: "{product}_aarch64.app.tar.gz", Required: true},
		}
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
