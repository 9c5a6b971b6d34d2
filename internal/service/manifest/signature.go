package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SignatureSuffix is appended to an asset name to form its detached signature file name.
const SignatureSuffix = ".sig"

// errSignatureNotFound is returned when no signature file exists for an asset.
var errSignatureNotFound = errors.New("signature not found")

// FindSignature searches root recursively for <asset>.sig and returns its
// trimmed contents. The lexically first match wins when there are several.
func FindSignature(root, asset string) (string, error) {
	name := asset + SignatureSuffix

	var found string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("search %s: %w", root, err)
	}

	if found == "" {
		return "", fmt.Errorf("%s under %s: %w", name, root, errSignatureNotFound)
	}

	data, err := os.ReadFile(filepath.Clean(found))
	if err != nil {
		return "", err
	}

	signature := strings.TrimSpace(string(data))
	if signature == "" {
		return "", fmt.Errorf("%s is empty: %w", found, errSignatureNotFound)
	}

	return signature, nil
}
