// Package fsutil holds the file operations shared by the relocation and
// distribution stages: copy, move, recursive copy, SHA-512 checksums and
// atomic checksum-verified installs.
package fsutil
