// Package pipeline sequences the release stages for each command-line mode:
// target resolution, binary builds and relocation, the desktop bundle,
// dist aggregation and the update manifest.
package pipeline
