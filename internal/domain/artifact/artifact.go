package artifact

import (
	"errors"
	"fmt"
	"strings"
)

// windowsExtension is appended to executables built for Windows targets.
const windowsExtension = ".exe"

// Triple identifies the CPU architecture, operating system and ABI of a build,
// e.g. x86_64-unknown-linux-gnu. It is opaque: no validation against a list of
// known triples is performed.
type Triple string

func (t Triple) String() string { return string(t) }

// IsZero reports whether the triple has not been resolved.
func (t Triple) IsZero() bool { return strings.TrimSpace(string(t)) == "" }

// IsWindows reports whether the triple targets Windows.
func (t Triple) IsWindows() bool { return strings.Contains(strings.ToLower(string(t)), "windows") }

// ExecutableExtension returns ".exe" for Windows triples and "" elsewhere.
func (t Triple) ExecutableExtension() string {
	if t.IsWindows() {
		return windowsExtension
	}

	return ""
}

// BinarySpec names one binary and the Cargo package that owns it.
type BinarySpec struct {
	// Name is the binary target name passed to `cargo build --bin`.
	Name string `yaml:"name"`
	// Package is the owning workspace member passed to `cargo build --package`.
	Package string `yaml:"package"`
}

func (b BinarySpec) String() string { return b.Package + "/" + b.Name }

// FileName returns the platform file name of the plain binary.
func (b BinarySpec) FileName(t Triple) string {
	return b.Name + t.ExecutableExtension()
}

// TaggedFileName returns the triple-tagged file name, {binary}-{triple}{ext}.
func (b BinarySpec) TaggedFileName(t Triple) string {
	return b.Name + "-" + t.String() + t.ExecutableExtension()
}

// Role is the logical position of an artifact in the release layout.
type Role int

// Roles in the order an artifact passes through them.
const (
	RoleBuilt Role = iota
	RoleCanonicalRelease
	RoleTripleTagged
	RoleBundleDestination
	RoleDistFinal
)

var roleNames = [...]string{
	RoleBuilt:             "built",
	RoleCanonicalRelease:  "canonical-release",
	RoleTripleTagged:      "triple-tagged",
	RoleBundleDestination: "bundle-destination",
	RoleDistFinal:         "dist-final",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("role(%d)", int(r))
	}

	return roleNames[r]
}

// ErrRoleRegression is returned when a location would move back to an earlier role.
var ErrRoleRegression = errors.New("artifact role cannot move backwards")

// Location is a filesystem path plus the role the file plays there.
type Location struct {
	// Path is the filesystem path of the artifact.
	Path string
	// Role is the logical role of the artifact at Path.
	Role Role
	// Exists reports whether the file was present when the location was recorded.
	Exists bool
}

// Advance returns a new location for the same artifact at a later role.
// Roles may be skipped (fallback discovery finds artifacts late) but never revisited.
func (l Location) Advance(path string, role Role) (Location, error) {
	if role < l.Role {
		return l, fmt.Errorf("%s -> %s: %w", l.Role, role, ErrRoleRegression)
	}

	return Location{Path: path, Role: role, Exists: true}, nil
}
