package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/folio-sh/folio/internal/output"
	"github.com/folio-sh/folio/internal/types"
)

var setCmd = &cobra.Command{
	Use:   "set <name> <section> <body>",
	Short: "Set a section's body",
	Long: `Set a section's body, appending a new version of the document.

An existing section is replaced in place; a new one is appended at the
end. An empty body stages a removal: the section disappears from the
rendered output and masks any inherited section of the same name.

Pass '-' as the body to read it from stdin:
  cat tone.md | folio set support-bot tone -`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		body := args[2]
		if body == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read body from stdin: %w", err)
			}
			body = string(data)
		}

		p, err := lib.SetSection(ctx, args[0], args[1], body)
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var rmSectionCmd = &cobra.Command{
	Use:   "rm-section <name> <section>",
	Short: "Remove a section from a document",
	Long: `Remove a section from a document's own record.

This drops the section entry entirely. To mask a section inherited from
a parent instead, set it to an empty body with 'folio set'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, err := lib.RemoveSection(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a document",
	Long: `Rename a document.

Children extend parents by name, so renaming a parent deliberately
breaks their inheritance until they are re-pointed with 'folio extend'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, err := lib.Rename(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var extendClear bool

var extendCmd = &cobra.Command{
	Use:   "extend <name> [parent]",
	Short: "Set or clear a document's parent",
	Long: `Point a document at a parent to inherit its sections, or clear the
parent with --clear.

The new chain is resolved before anything is written; a cycle, a
missing parent, or a chain past the depth limit rejects the change.

Examples:
  folio extend support-bot org-base
  folio extend support-bot --clear`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		parent := ""
		if len(args) == 2 {
			parent = args[1]
		}
		if parent == "" && !extendClear {
			return fmt.Errorf("provide a parent name, or --clear to remove the current one")
		}

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, err := lib.SetExtends(ctx, args[0], parent)
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <name> <draft|active|archived>",
	Short: "Set a document's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, err := lib.SetStatus(ctx, args[0], types.Status(args[1]))
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <name>",
	Short: "Archive a document",
	Long: `Archive a document.

Archiving is folio's only form of deletion: the document drops out of
default listings but its history stays in the log, it still resolves,
and its name stays taken.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, err := lib.Archive(ctx, args[0])
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <name> <version>",
	Short: "Pin a document to an exact version",
	Long: `Pin a document so consumers resolve it at an exact version instead of
its latest. The pin is carried on the document itself; rendering with
an explicit --version still overrides it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, err := lib.Pin(ctx, args[0], v)
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var unpinCmd = &cobra.Command{
	Use:   "unpin <name>",
	Short: "Remove a document's version pin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, err := lib.Unpin(ctx, args[0])
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

func init() {
	extendCmd.Flags().BoolVar(&extendClear, "clear", false, "remove the current parent")

	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(rmSectionCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(extendCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(unpinCmd)
}
