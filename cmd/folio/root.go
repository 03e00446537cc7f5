package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/folio-sh/folio/internal/config"
	"github.com/folio-sh/folio/internal/home"
	"github.com/folio-sh/folio/internal/library"
	"github.com/folio-sh/folio/internal/output"
	"github.com/folio-sh/folio/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Versioned prompt library shared safely between processes",
	Long: `Folio keeps a library of versioned, composable prompt documents in plain
NDJSON files, safe for concurrent mutation by any number of processes
sharing the same directory.

Every mutation appends a complete new version of the document:
  - Append-only history with atomic writes
  - Sidecar lockfiles with stale-lock reclamation
  - Inheritance between documents (override, append, remove)
  - Markdown import/export and schema validation`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or <home>/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "folio home directory (default: ~/.folio)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	// Set output format and log level before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.SetFormat(outputFormat)

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// getConfig loads configuration. An explicit --config wins; otherwise a
// config.yaml inside the home directory is preferred over the search path.
func getConfig(h *home.Dir) (*config.Config, error) {
	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	cm, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	return cm.Get(), nil
}

// getLibrary wires home, config and logger into a Library.
func getLibrary() (*library.Library, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}

	cfg, err := getConfig(h)
	if err != nil {
		return nil, err
	}

	// The config's output format applies unless the flag was given explicitly.
	if !rootCmd.PersistentFlags().Changed("output") && cfg.Output.Format != "" {
		output.SetFormat(cfg.Output.Format)
	}

	return library.New(h, cfg.Lock.Locker(), slog.Default()), nil
}
