package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which stages a run executes.
type Mode string

// Supported modes.
const (
	ModeLibrary  Mode = "buildlibs"
	ModeBinaries Mode = "buildcli"
	ModeBundle   Mode = "buildninja"
	ModeAll      Mode = "buildall"
	ModeClean    Mode = "clean"
	ModeManifest Mode = "manifest"
)

// ErrUnknownMode is returned for mode names outside the supported set.
var ErrUnknownMode = errors.New("unknown mode")

// Modes returns every supported mode.
func Modes() []Mode {
	return []Mode{ModeLibrary, ModeBinaries, ModeBundle, ModeAll, ModeClean, ModeManifest}
}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))

	for _, known := range Modes() {
		if m == known {
			return m, nil
		}
	}

	return "", fmt.Errorf("%q: %w", s, ErrUnknownMode)
}

// stage is one step of a run.
type stage int

const (
	stageLibrary stage = iota
	stageBinaries
	stageBundle
	stageDist
	stageManifest
	stageClean
)

var stageNames = map[stage]string{
	stageLibrary:  "library",
	stageBinaries: "binaries",
	stageBundle:   "bundle",
	stageDist:     "dist",
	stageManifest: "manifest",
	stageClean:    "clean",
}

func (s stage) String() string {
	return stageNames[s]
}

// stages returns the fixed stage sequence of a mode.
func (m Mode) stages(withManifest bool) []stage {
	switch m {
	case ModeLibrary:
		return []stage{stageLibrary}
	case ModeBinaries:
		return []stage{stageBinaries}
	case ModeBundle:
		return []stage{stageLibrary, stageBundle}
	case ModeAll:
		if withManifest {
			return []stage{stageLibrary, stageBinaries, stageBundle, stageDist, stageManifest}
		}

		return []stage{stageLibrary, stageBinaries, stageBundle, stageDist}
	case ModeClean:
		return []stage{stageClean}
	case ModeManifest:
		return []stage{stageManifest}
	default:
		return nil
	}
}

// needsTriple reports whether any stage names artifacts after the target triple.
func needsTriple(stages []stage) bool {
	for _, s := range stages {
		if s == stageBinaries || s == stageDist || s == stageClean {
			return true
		}
	}

	return false
}
