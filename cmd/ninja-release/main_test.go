package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/oshokin/ninja-release/cmd/ninja-release/cmd"
)

const fakeHost = "x86_64-unknown-linux-gnu"

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"ninja-release": cmd.Execute,
		"cargo":         fakeCargo,
		"rustc":         fakeRustc,
		"pnpm":          fakePnpm,
		"cargo-tauri":   func() {},
	})
}

// TestScripts runs the end-to-end scripts under testdata/script against fake toolchains.
func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}

// fakeRustc answers the host query.
func fakeRustc() {
	fmt.Printf("rustc 1.85.0\nbinary: rustc\nhost: %s\nrelease: 1.85.0\n", fakeHost)
}

// fakeCargo builds binaries and bundles by writing placeholder files.
// FAKE_CARGO_FAIL makes every build fail.
func fakeCargo() {
	args := os.Args[1:]
	fmt.Println("fake cargo", strings.Join(args, " "))

	if os.Getenv("FAKE_CARGO_FAIL") != "" {
		os.Exit(101)
	}

	switch {
	case len(args) > 1 && args[0] == "tauri" && args[1] == "build":
		exitOn(writeBundle())
	case len(args) > 0 && args[0] == "build":
		bin := flagValue(args, "--bin")
		if bin == "" {
			return
		}

		dir := filepath.Join("target", "release")
		if target := flagValue(args, "--target"); target != "" {
			dir = filepath.Join("target", target, "release")
		}

		exitOn(writeFile(filepath.Join(dir, bin), "binary "+bin))
	}
}

// fakePnpm runs the bundler; FAKE_PNPM_FAIL makes it exit non-zero.
func fakePnpm() {
	fmt.Println("fake pnpm", strings.Join(os.Args[1:], " "))

	if os.Getenv("FAKE_PNPM_FAIL") != "" {
		os.Exit(1)
	}

	exitOn(writeBundle())
}

func writeBundle() error {
	release := filepath.Join("target", "release")

	files := map[string]string{
		filepath.Join(release, "bundle", "deb", "Ninja_1.2.3_amd64.deb"):            "deb",
		filepath.Join(release, "bundle", "deb", "Ninja_1.2.3_amd64", "data.tar.gz"): "noise",
		filepath.Join(release, "bundle", "appimage", "Ninja_1.2.3_amd64.AppImage"):  "appimage",
		filepath.Join(release, "ninja"):                                             "gui",
	}

	for path, contents := range files {
		if err := writeFile(path, contents); err != nil {
			return err
		}
	}

	return nil
}

func writeFile(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(contents), 0o755)
}

func flagValue(args []string, flag string) string {
	for i, arg := range args {
		if value, ok := strings.CutPrefix(arg, flag+"="); ok {
			return value
		}

		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}

	return ""
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
