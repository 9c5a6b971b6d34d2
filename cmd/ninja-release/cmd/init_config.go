package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/ninja-release/internal/config"
	"github.com/oshokin/ninja-release/internal/fsutil"
)

// errConfigExists is returned when init-config would overwrite a file.
var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

// force allows init-config to overwrite an existing file.
var force bool

// initConfigCmd writes the default configuration so it can be edited.
var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if fsutil.Exists(configPath) && !force {
			return fmt.Errorf("%s: %w", configPath, errConfigExists)
		}

		if err := config.Save(configPath, config.Default()); err != nil {
			return err
		}

		_, err := fmt.Fprintln(cmd.OutOrStdout(), configPath)

		return err
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
}

