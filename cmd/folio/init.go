package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folio-sh/folio/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the folio home directory",
	Long: `Initialize the folio home directory.

Creates the home directory (default ~/.folio, or --home), an exports
directory, and a default config.yaml. Safe to run again; an existing
config is left alone unless --force is given.

Examples:
  folio init                       # Set up ~/.folio
  folio --home .folio init         # Keep the library inside a worktree`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExportsDir(); err != nil {
			return err
		}

		if h.ConfigExists() && !initForce {
			fmt.Fprintf(cmd.ErrOrStderr(), "Config already exists at %s (use --force to overwrite)\n", h.ConfigPath())
		} else {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote default config to %s\n", h.ConfigPath())
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Initialized folio home at %s\n", h.Path())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	rootCmd.AddCommand(initCmd)
}
