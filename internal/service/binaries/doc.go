// Package binaries invokes cargo for the library unit and for each
// configured binary, and reports where the built executable is expected.
package binaries
