package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/logger"
	"github.com/oshokin/ninja-release/internal/service/pipeline"
	"github.com/oshokin/ninja-release/internal/toolchain"
	"github.com/oshokin/ninja-release/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// rootDir overrides the workspace root from the configuration.
	rootDir string
	// target overrides the target triple used for artifact names.
	target string
	// debug builds the library without --release.
	debug bool
	// logLevel is the minimum level of printed log lines.
	logLevel string

	// errUnexpectedArgs is returned when arguments appear before the "--" separator.
	errUnexpectedArgs = errors.New(`unexpected arguments, pass build arguments after "--"`)

	// rootCmd represents the base command of the release orchestrator.
	rootCmd = &cobra.Command{
		Use:   "ninja-release",
		Short: "Build, bundle and publish Ninja releases.",
		Long: `Release-build orchestrator for the Ninja workspace.

Builds the core library and the command-line binaries with cargo, names them
after the target triple and installs them where the desktop bundler expects
them. Builds the desktop bundle through pnpm, cargo tauri or npx, collects the
deliverables into dist/ and writes the updater manifest (latest.json).

Everything after "--" is forwarded verbatim to cargo and the bundler.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setupLogging()
		},
	}
)

// Execute runs the ninja-release CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

// newModeCommand builds the subcommand running one pipeline mode.
func newModeCommand(mode pipeline.Mode, alias, short string) *cobra.Command {
	return &cobra.Command{
		Use:     string(mode) + " [-- build args...]",
		Aliases: []string{alias},
		Short:   short,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			passthrough, err := passthroughArgs(cmd, args)
			if err != nil {
				return err
			}

			manifest, _ := cmd.Flags().GetBool("manifest")

			return run(cmd, pipeline.Options{
				Mode:        mode,
				Passthrough: passthrough,
				Target:      target,
				Debug:       debug,
				Manifest:    manifest,
			})
		},
	}
}

// passthroughArgs returns everything after "--" and rejects anything before it.
func passthroughArgs(cmd *cobra.Command, args []string) ([]string, error) {
	dash := cmd.ArgsLenAtDash()

	switch {
	case dash < 0 && len(args) > 0:
		return nil, fmt.Errorf("%q: %w", args, errUnexpectedArgs)
	case dash < 0:
		return nil, nil
	case dash > 0:
		return nil, fmt.Errorf("%q: %w", args[:dash], errUnexpectedArgs)
	default:
		return args, nil
	}
}

func run(cmd *cobra.Command, opts pipeline.Options) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts.Stdout = cmd.OutOrStdout()

	runner := toolchain.NewExecRunner(os.Stderr, os.Stderr)

	return pipeline.New(cfg, runner).Run(ctx, opts)
}

// loadConfig reads the configuration file, folds in the environment and flags, and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	config.ApplyEnv(cfg, os.LookupEnv)

	if rootDir != "" {
		cfg.Root = rootDir
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setupLogging() error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&rootDir, "root", "", "workspace root (overrides the configuration)")
	flags.StringVar(&target, "target", "", "target triple used to name artifacts (default: host triple)")
	flags.BoolVar(&debug, "debug", false, "build the library without --release")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	buildAll := newModeCommand(pipeline.ModeAll, "build-all",
		"Build library, binaries and bundle, then collect dist/.")
	buildAll.Flags().Bool("manifest", false, "also generate latest.json")

	rootCmd.AddCommand(
		newModeCommand(pipeline.ModeLibrary, "build-lib", "Build the core library."),
		newModeCommand(pipeline.ModeBinaries, "build-bins",
			"Build the command-line binaries and install them for the bundler."),
		newModeCommand(pipeline.ModeBundle, "build-bundle", "Build the core library and the desktop bundle."),
		buildAll,
		newModeCommand(pipeline.ModeClean, "clean-binaries", "Remove triple-tagged binaries and dist/."),
		newModeCommand(pipeline.ModeManifest, "latest", "Write the updater manifest (latest.json)."),
		initConfigCmd,
	)
}
