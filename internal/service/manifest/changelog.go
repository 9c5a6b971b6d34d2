package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// nextHeading starts the following release section.
var nextHeading = regexp.MustCompile(`^##\s`)

// headingPattern matches "## [1.2.3]", "## 1.2.3" and either with " - YYYY-MM-DD".
func headingPattern(version string) *regexp.Regexp {
	v := regexp.QuoteMeta(version)
	return regexp.MustCompile(`^##\s*\[?` + v + `\]?(\s*-\s*\d{4}-\d{2}-\d{2})?\s*$`)
}

// ExtractNotes returns the trimmed body of the changelog section for version
// and whether a matching heading was found.
func ExtractNotes(changelog, version string) (string, bool) {
	heading := headingPattern(version)

	var (
		body  []string
		found bool
	)

	scanner := bufio.NewScanner(strings.NewReader(changelog))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if !found {
			found = heading.MatchString(line)
			continue
		}

		if nextHeading.MatchString(line) {
			break
		}

		body = append(body, line)
	}

	if !found {
		return "", false
	}

	return strings.TrimSpace(strings.Join(body, "\n")), true
}

// readChangelog loads the changelog, which must exist.
func readChangelog(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read changelog: %w: %w", ErrManifest, err)
	}

	return string(data), nil
}
