// Package bundler builds the desktop bundle through an ordered list of
// bundler front-ends, stopping at the first one that succeeds.
package bundler
