// =============================================================================
// MergeFiles - Config Command
// =============================================================================
//
// This file defines the 'config' command group.
//
// COMMAND USAGE:
//   mergefiles config init [path] [--force]
//
// 'config init' writes the default configuration so it can be edited. It
// runs without loading any existing configuration.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elsoutlet/MergeFiles/internal/config"
	"github.com/elsoutlet/MergeFiles/pkg/utils"
)

// forceInit overwrites an existing configuration file.
var forceInit bool

// configCmd groups configuration subcommands.
var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage the configuration file",
	Annotations: map[string]string{skipConfigAnnotation: "true"},
}

// configInitCmd writes the default configuration.
var configInitCmd = &cobra.Command{
	Use:         "init [path]",
	Short:       "Write the default configuration file",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE:        runConfigInit,
}

// init registers the config commands with the root command.
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = config.DefaultConfigFile
	}

	if utils.FileExists(path) && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
