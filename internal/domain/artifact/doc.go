// Package artifact defines the value types that flow through the build
// pipeline: target triples, configured binaries and artifact locations.
package artifact
