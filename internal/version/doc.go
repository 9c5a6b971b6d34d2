// Package version exposes build metadata for ninja-release itself.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds. This is the
// orchestrator's own version, unrelated to the Cargo workspace version that
// ends up in the release manifest.
package version
