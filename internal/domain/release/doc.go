// Package release defines the update manifest polled by the desktop
// auto-updater and the fixed set of platform keys it may contain.
package release
