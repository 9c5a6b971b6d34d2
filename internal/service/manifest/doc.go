// Package manifest generates the updater manifest (latest.json) for a
// release: version, changelog notes, and a download URL and detached
// signature per platform.
package manifest
