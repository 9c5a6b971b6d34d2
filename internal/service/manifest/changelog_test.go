package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ninja-release/internal/service/manifest"
)

// TestExtractNotes covers heading variants and section boundaries.
func TestExtractNotes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		changelog string
		want      string
		found     bool
	}{
		{
			name:      "bracketed with date",
			changelog: "# Changelog\n\n## [1.2.3] - 2025-11-30\nFoo\nBar\n## [1.2.2]\nOld\n",
			want:      "Foo\nBar",
			found:     true,
		},
		{
			name:      "plain heading",
			changelog: "## 1.2.3\n\n- fixed things\n\n## 1.2.2\n- old\n",
			want:      "- fixed things",
			found:     true,
		},
		{
			name:      "last section runs to end of file",
			changelog: "## [1.2.4]\nNew\n\n## [1.2.3]\n### Added\n- shuriken\n",
			want:      "### Added\n- shuriken",
			found:     true,
		},
		{
			name:      "crlf line endings",
			changelog: "## [1.2.3]\r\nFoo\r\nBar\r\n## [1.2.2]\r\n",
			want:      "Foo\nBar",
			found:     true,
		},
		{
			name:      "longer version is not a match",
			changelog: "## [1.2.30]\nWrong\n",
		},
		{
			name:      "deeper heading is not a match",
			changelog: "### 1.2.3\nWrong\n",
		},
		{
			name:      "no heading",
			changelog: "Nothing here\n",
		},
		{
			name:      "empty section",
			changelog: "## [1.2.3] - 2025-01-01\n\n## [1.2.2]\nOld\n",
			found:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, found := manifest.ExtractNotes(tc.changelog, "1.2.3")
			require.Equal(t, tc.found, found)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestExtractNotes_QuotesVersion treats dots in the version literally.
func TestExtractNotes_QuotesVersion(t *testing.T) {
	t.Parallel()

	_, found := manifest.ExtractNotes("## 1x2x3\nNope\n", "1.2.3")
	require.False(t, found)
}
