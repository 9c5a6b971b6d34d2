// Package relocator moves built binaries into the canonical release layout,
// tags them with the target triple and installs them where the desktop
// bundler expects its sidecar binaries.
//
// When cargo leaves the binary somewhere unexpected, the whole build output
// tree is searched and the most recently modified match is used instead.
package relocator
