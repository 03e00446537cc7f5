package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/folio-sh/folio/internal/home"
	"github.com/folio-sh/folio/internal/library"
	"github.com/folio-sh/folio/internal/markdown"
	"github.com/folio-sh/folio/internal/output"
	"github.com/folio-sh/folio/internal/types"
)

var importName string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a document from markdown",
	Long: `Import a prompt document from its markdown form: YAML frontmatter for
metadata, one level-two heading per section.

A new name creates the document; an existing name gets a replacement
version carrying exactly the imported sections. Pass '-' to read from
stdin.

Examples:
  folio import support-bot.md
  folio export support-bot | folio import -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}

		doc, err := markdown.Parse(data)
		if err != nil {
			return err
		}

		name := doc.Meta.Name
		if importName != "" {
			name = importName
		}
		if name == "" {
			return fmt.Errorf("document has no name: set one in frontmatter or with --name")
		}

		status := types.StatusDraft
		if doc.Meta.Status != "" {
			status = types.Status(doc.Meta.Status)
			if !status.Valid() {
				return fmt.Errorf("invalid status %q in frontmatter", doc.Meta.Status)
			}
		}

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		p, created, err := lib.Import(ctx, name, doc.Sections, doc.Meta.Extends, status, doc.Meta.Pinned)
		if err != nil {
			return err
		}

		verb := "Updated"
		if created {
			verb = "Created"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s (version %d)\n", verb, p.Name, p.Version)

		return output.Print(p)
	},
}

var (
	exportOut      string
	exportResolved bool
)

var exportCmd = &cobra.Command{
	Use:   "export [name]",
	Short: "Export documents to markdown",
	Long: `Export prompt documents to their markdown form.

With a name, exports that document (to <home>/exports/<name>.md unless
--out is given; '-' writes to stdout). Without one, exports every
non-archived document to the exports directory.

--resolved exports the composed view: inherited sections merged in and
the extends reference dropped.

Examples:
  folio export support-bot
  folio export support-bot --resolved --out -
  folio export`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := getLibrary()
		if err != nil {
			return err
		}
		h, err := getHome()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			if exportOut != "" {
				return fmt.Errorf("--out only applies when exporting a single document")
			}
			return exportAll(lib, h, cmd.ErrOrStderr())
		}

		name := args[0]
		p, err := lib.Get(name)
		if err != nil {
			return err
		}

		data, err := renderExport(lib, *p)
		if err != nil {
			return err
		}

		if exportOut == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}

		path := exportOut
		if path == "" {
			if err := h.EnsureExportsDir(); err != nil {
				return err
			}
			path = h.ExportPath(name)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", name, path)
		return nil
	},
}

// exportAll writes every non-archived document to the exports directory.
func exportAll(lib *library.Library, h *home.Dir, msgs io.Writer) error {
	prompts, err := lib.List(library.ListFilter{})
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		fmt.Fprintln(msgs, "Nothing to export")
		return nil
	}

	if err := h.EnsureExportsDir(); err != nil {
		return err
	}

	for _, p := range prompts {
		data, err := renderExport(lib, p)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", p.Name, err)
		}
		path := h.ExportPath(p.Name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	fmt.Fprintf(msgs, "Exported %d documents to %s\n", len(prompts), h.ExportsDir())
	return nil
}

// renderExport renders one document, composed when --resolved is set.
func renderExport(lib *library.Library, p types.Prompt) ([]byte, error) {
	doc := markdown.FromPrompt(p)
	if exportResolved {
		res, err := lib.Resolve(p.Name)
		if err != nil {
			return nil, err
		}
		doc.Sections = res.Sections
		doc.Meta.Extends = ""
		doc.Meta.Pinned = 0
	}
	return markdown.Render(doc)
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "import under this name instead of the frontmatter one")

	exportCmd.Flags().StringVar(&exportOut, "out", "", "write to this path instead of the exports directory ('-' for stdout)")
	exportCmd.Flags().BoolVar(&exportResolved, "resolved", false, "export the composed view with inheritance applied")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
