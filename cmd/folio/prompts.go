package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/folio-sh/folio/internal/library"
	"github.com/folio-sh/folio/internal/output"
	"github.com/folio-sh/folio/internal/types"
)

var (
	createExtends  string
	createSections []string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new prompt document",
	Long: `Create a new prompt document at version 1.

Sections may be supplied inline with repeated --section flags; anything
more than a line of text is easier to add afterwards with 'folio set'
or imported from markdown with 'folio import'.

Examples:
  folio create support-bot
  folio create support-bot --extends org-base
  folio create support-bot --section tone="Friendly but direct"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		sections, err := parseSectionFlags(createSections)
		if err != nil {
			return err
		}

		p, err := lib.Create(ctx, args[0], sections, createExtends)
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

// promptRow is the summary line used by list and versions.
type promptRow struct {
	Name      string    `json:"name" yaml:"name"`
	Version   int       `json:"version" yaml:"version"`
	Status    string    `json:"status" yaml:"status"`
	Sections  int       `json:"sections" yaml:"sections"`
	Extends   string    `json:"extends,omitempty" yaml:"extends,omitempty"`
	Pinned    int       `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func toRow(p types.Prompt) promptRow {
	return promptRow{
		Name:      p.Name,
		Version:   p.Version,
		Status:    string(p.Status),
		Sections:  len(p.Sections),
		Extends:   p.Extends,
		Pinned:    p.Pinned,
		UpdatedAt: p.UpdatedAt,
	}
}

// ListResponse is the response for listing prompt documents.
type ListResponse struct {
	Prompts []promptRow `json:"prompts" yaml:"prompts"`
}

var (
	listAll    bool
	listStatus string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt documents",
	Long: `List the current version of every prompt document.

Archived documents are hidden unless --all or --status archived is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listStatus != "" && !types.Status(listStatus).Valid() {
			return fmt.Errorf("invalid status %q", listStatus)
		}

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		prompts, err := lib.List(library.ListFilter{
			Status: types.Status(listStatus),
			All:    listAll,
		})
		if err != nil {
			return err
		}

		resp := ListResponse{Prompts: make([]promptRow, 0, len(prompts))}
		for _, p := range prompts {
			resp.Prompts = append(resp.Prompts, toRow(p))
		}
		return output.Print(resp)
	},
}

var showVersion int

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a prompt document's stored record",
	Long: `Show the stored record for a prompt document: its own sections only,
without anything inherited from a parent. Use 'folio render' for the
composed view.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := getLibrary()
		if err != nil {
			return err
		}

		var p *types.Prompt
		if showVersion > 0 {
			p, err = lib.GetVersion(args[0], showVersion)
		} else {
			p, err = lib.Get(args[0])
		}
		if err != nil {
			return err
		}

		return output.Print(p)
	},
}

var renderVersion int

var renderCmd = &cobra.Command{
	Use:   "render <name>",
	Short: "Render a document with inheritance applied",
	Long: `Render the composed view of a prompt document: parent sections merged
root-first, overrides and removals applied, in final order.

A pinned document renders at its pinned version. --version renders an
exact historical version and overrides any pin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := getLibrary()
		if err != nil {
			return err
		}

		if renderVersion > 0 {
			res, err := lib.ResolveAt(args[0], renderVersion)
			if err != nil {
				return err
			}
			return output.Print(res)
		}

		res, err := lib.Resolve(args[0])
		if err != nil {
			return err
		}
		return output.Print(res)
	},
}

// VersionsResponse is the response for a document's version history.
type VersionsResponse struct {
	Versions []promptRow `json:"versions" yaml:"versions"`
}

var versionsCmd = &cobra.Command{
	Use:   "versions <name>",
	Short: "Show a document's version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := getLibrary()
		if err != nil {
			return err
		}

		history, err := lib.Versions(args[0])
		if err != nil {
			return err
		}

		resp := VersionsResponse{Versions: make([]promptRow, 0, len(history))}
		for _, p := range history {
			resp.Versions = append(resp.Versions, toRow(p))
		}
		return output.Print(resp)
	},
}

// parseSectionFlags converts repeated name=body flags into sections.
func parseSectionFlags(pairs []string) ([]types.Section, error) {
	var sections []types.Section
	for _, pair := range pairs {
		name, body, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --section %q, want name=body", pair)
		}
		sections = append(sections, types.Section{Name: name, Body: body})
	}
	return sections, nil
}

func init() {
	createCmd.Flags().StringVar(&createExtends, "extends", "", "parent document to inherit from")
	createCmd.Flags().StringArrayVar(&createSections, "section", nil, "initial section as name=body (repeatable)")

	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include archived documents")
	listCmd.Flags().StringVar(&listStatus, "status", "", "only documents with this status")

	showCmd.Flags().IntVar(&showVersion, "version", 0, "show an exact historical version")
	renderCmd.Flags().IntVar(&renderVersion, "version", 0, "render an exact historical version (overrides a pin)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionsCmd)
}
