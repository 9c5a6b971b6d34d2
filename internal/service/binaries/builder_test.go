package binaries

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/domain/artifact"
	"github.com/oshokin/ninja-release/internal/toolchain"
	"github.com/oshokin/ninja-release/internal/toolchain/toolchaintest"
)

var (
	cli   = artifact.BinarySpec{Name: "shurikenctl", Package: "ninja-cli"}
	linux = artifact.Triple("x86_64-unknown-linux-gnu")
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Root = t.TempDir()

	return cfg
}

// TestBuild_ForwardsPassthroughVerbatim checks the cargo invocation and the located output.
func TestBuild_ForwardsPassthroughVerbatim(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	fake := toolchaintest.New("cargo").Handle("cargo", func(cmd toolchain.Command) ([]byte, error) {
		out := filepath.Join(cmd.Dir, "target", "release", "shurikenctl")
		require.NoError(t, os.MkdirAll(filepath.Dir(out), 0o755))

		return nil, os.WriteFile(out, []byte("elf"), 0o755)
	})

	passthrough := []string{"--features", "tls", "--locked"}

	built, err := NewBuilder(cfg, fake).Build(context.Background(), cli, linux, passthrough)
	require.NoError(t, err)
	require.True(t, built.Exists)
	require.Equal(t, artifact.RoleBuilt, built.Role)
	require.Equal(t, filepath.Join(cfg.Root, "target", "release", "shurikenctl"), built.Path)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "cargo", calls[0].Name)
	require.Equal(t, cfg.Root, calls[0].Dir)
	require.Equal(t,
		[]string{"build", "--release", "--bin", "shurikenctl", "--package", "ninja-cli", "--features", "tls", "--locked"},
		calls[0].Args)
}

// TestBuild_MissingOutputIsNotFatal leaves discovery to the relocator.
func TestBuild_MissingOutputIsNotFatal(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)

	built, err := NewBuilder(cfg, toolchaintest.New("cargo")).Build(context.Background(), cli, linux, nil)
	require.NoError(t, err)
	require.False(t, built.Exists)
}

// TestBuild_FailureIsBuildError verifies a non-zero exit maps to ErrBuild with the command attached.
func TestBuild_FailureIsBuildError(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	fake := toolchaintest.New("cargo").Handle("cargo", toolchaintest.Failing)

	_, err := NewBuilder(cfg, fake).Build(context.Background(), cli, linux, nil)
	require.ErrorIs(t, err, ErrBuild)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, "cargo", buildErr.Command.Name)

	var exitErr *toolchain.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Code)
}

// TestExpectedPath uses the cross directory only when passthrough selects a target.
func TestExpectedPath(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	b := NewBuilder(cfg, toolchaintest.New())
	windows := artifact.Triple("x86_64-pc-windows-gnu")

	require.Equal(t,
		filepath.Join(cfg.Root, "target", "release", "shurikenctl"),
		b.ExpectedPath(cli, linux, []string{"--locked"}))
	require.Equal(t,
		filepath.Join(cfg.Root, "target", "x86_64-pc-windows-gnu", "release", "shurikenctl.exe"),
		b.ExpectedPath(cli, windows, []string{"--target", "x86_64-pc-windows-gnu"}))
}

// TestBuildLibrary honours the debug switch.
func TestBuildLibrary(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	fake := toolchaintest.New("cargo")
	b := NewBuilder(cfg, fake)

	require.NoError(t, b.BuildLibrary(context.Background(), []string{"-v"}, false))
	require.NoError(t, b.BuildLibrary(context.Background(), nil, true))

	calls := fake.Calls()
	require.Equal(t, []string{"build", "--package", "ninja-core", "--release", "-v"}, calls[0].Args)
	require.Equal(t, []string{"build", "--package", "ninja-core"}, calls[1].Args)
}
