package toolchain

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/ninja-release/internal/domain/artifact"
	"github.com/oshokin/ninja-release/internal/logger"
)

const (
	// hostQueryTool reports the compiler's host triple.
	hostQueryTool = "rustc"
	// hostKey is the key of the host triple in `rustc -vV` output.
	hostKey = "host"
	// targetFlag is the cargo flag selecting a cross-compilation target.
	targetFlag = "--target"
)

// ErrResolution is returned when the target triple cannot be determined.
var ErrResolution = errors.New("cannot determine target triple")

// ResolveTarget returns override verbatim when it is non-empty; otherwise it
// asks the host compiler for its triple. No stage may run without a triple.
func ResolveTarget(ctx context.Context, runner Runner, override string) (artifact.Triple, error) {
	if override = strings.TrimSpace(override); override != "" {
		logger.DebugKV(ctx, "Using explicit target triple", "target", override)
		return artifact.Triple(override), nil
	}

	if _, err := runner.LookPath(hostQueryTool); err != nil {
		return "", fmt.Errorf("%s not found: %w", hostQueryTool, ErrResolution)
	}

	out, err := runner.Output(ctx, Command{Name: hostQueryTool, Args: []string{"-vV"}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, err)
	}

	triple, ok := parseHostTriple(out)
	if !ok {
		return "", fmt.Errorf("no %q line in %s -vV output: %w", hostKey, hostQueryTool, ErrResolution)
	}

	logger.DebugKV(ctx, "Detected host target triple", "target", triple)

	return triple, nil
}

// parseHostTriple reads line-oriented "key: value" output and returns the first host value.
func parseHostTriple(out []byte) (artifact.Triple, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found || strings.TrimSpace(key) != hostKey {
			continue
		}

		if value = strings.TrimSpace(value); value != "" {
			return artifact.Triple(value), true
		}
	}

	return "", false
}

// TargetFromArgs returns the value of a --target flag in passthrough args.
// The args themselves are forwarded untouched; this is bookkeeping only.
func TargetFromArgs(args []string) (string, bool) {
	for i, arg := range args {
		if value, found := strings.CutPrefix(arg, targetFlag+"="); found {
			return value, value != ""
		}

		if arg == targetFlag && i+1 < len(args) {
			return args[i+1], args[i+1] != ""
		}
	}

	return "", false
}
