// Package dist collects user-facing deliverables from the bundler output
// into a clean distribution directory.
package dist
