package release

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// PlatformKey identifies one updater platform entry, e.g. linux-x86_64.
type PlatformKey string

// Platform keys understood by the updater.
const (
	LinuxX86_64   PlatformKey = "linux-x86_64"
	LinuxAarch64  PlatformKey = "linux-aarch64"
	WindowsX86_64 PlatformKey = "windows-x86_64"
	DarwinAarch64 PlatformKey = "darwin-aarch64"
)

// PlatformKeys returns every known platform key in manifest order.
func PlatformKeys() []PlatformKey {
	return []PlatformKey{LinuxX86_64, LinuxAarch64, WindowsX86_64, DarwinAarch64}
}

var (
	// ErrUnknownPlatform is returned for platform keys outside the fixed set.
	ErrUnknownPlatform = errors.New("unknown platform key")
	// ErrInvalidManifest is returned when a manifest fails construction checks.
	ErrInvalidManifest = errors.New("invalid release manifest")
)

// ParsePlatformKey validates s against the known platform keys.
func ParsePlatformKey(s string) (PlatformKey, error) {
	key := PlatformKey(strings.TrimSpace(s))
	if !slices.Contains(PlatformKeys(), key) {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownPlatform)
	}

	return key, nil
}

// UnmarshalText lets platform keys be validated while decoding configuration.
func (k *PlatformKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePlatformKey(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// Entry is the download information for one platform.
type Entry struct {
	// URL is where the updater downloads the platform asset.
	URL string `json:"url"`
	// Signature is the detached signature text for the asset.
	Signature string `json:"signature"`
}

// Manifest is the document written to latest.json.
type Manifest struct {
	// Version is the semantic version being released.
	Version string `json:"version"`
	// Notes is the changelog excerpt for Version.
	Notes string `json:"notes"`
	// PubDate is the publish instant in UTC, RFC 3339.
	PubDate string `json:"pub_date"`
	// Platforms maps platform keys to their download entries.
	Platforms map[PlatformKey]Entry `json:"platforms"`
}

// NewManifest validates its inputs and builds a manifest.
// Every entry must carry both a URL and a signature.
func NewManifest(version, notes string, pubDate time.Time, platforms map[PlatformKey]Entry) (*Manifest, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("empty version: %w", ErrInvalidManifest)
	}

	if pubDate.IsZero() {
		return nil, fmt.Errorf("empty publish date: %w", ErrInvalidManifest)
	}

	copied := make(map[PlatformKey]Entry, len(platforms))

	for key, entry := range platforms {
		if _, err := ParsePlatformKey(string(key)); err != nil {
			return nil, errors.Join(ErrInvalidManifest, err)
		}

		if entry.URL == "" {
			return nil, fmt.Errorf("%s: empty url: %w", key, ErrInvalidManifest)
		}

		if entry.Signature == "" {
			return nil, fmt.Errorf("%s: empty signature: %w", key, ErrInvalidManifest)
		}

		copied[key] = entry
	}

	return &Manifest{
		Version:   version,
		Notes:     notes,
		PubDate:   pubDate.UTC().Format(time.RFC3339),
		Platforms: copied,
	}, nil
}
