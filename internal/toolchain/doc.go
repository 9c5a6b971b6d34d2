// Package toolchain runs the external tools the pipeline depends on.
//
// Runner abstracts process execution so stages can be tested with fakes.
// Locator makes sure a tool is on PATH, installing it when an install
// command is known. ResolveTarget determines the build target triple.
package toolchain
