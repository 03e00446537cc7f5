package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/folio-sh/folio/internal/output"
	"github.com/folio-sh/folio/internal/types"
	"github.com/folio-sh/folio/internal/validate"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage validation schemas",
	Long: `Manage validation schemas.

A schema names the sections a document must carry and regex rules its
section bodies must match. Schemas are checked against the composed
view, so inherited sections count.

Examples:
  folio schema set default --required intro,task
  folio schema set default --rule contact='@'
  folio schema list
  folio check support-bot`,
}

var (
	schemaRequired []string
	schemaRules    []string
)

var schemaSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Create or replace a schema",
	Long: `Create or replace a schema. Schemas have no version history; the
latest write wins.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rules, err := parseRuleFlags(schemaRules)
		if err != nil {
			return err
		}

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		s, err := lib.SetSchema(ctx, types.Schema{
			ID:       args[0],
			Required: schemaRequired,
			Rules:    rules,
		})
		if err != nil {
			return err
		}

		return output.Print(s)
	},
}

// SchemasResponse is the response for listing schemas.
type SchemasResponse struct {
	Schemas []types.Schema `json:"schemas" yaml:"schemas"`
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := getLibrary()
		if err != nil {
			return err
		}

		schemas, err := lib.Schemas()
		if err != nil {
			return err
		}

		return output.Print(SchemasResponse{Schemas: schemas})
	},
}

var schemaRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		if err := lib.DeleteSchema(ctx, args[0]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Deleted schema %s\n", args[0])
		return nil
	},
}

// CheckResponse is the response for validating a document.
type CheckResponse struct {
	Schema     string               `json:"schema" yaml:"schema"`
	Violations []validate.Violation `json:"violations" yaml:"violations"`
}

var checkSchema string

var checkCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Validate a document against a schema",
	Long: `Validate a document's composed view against a schema. Uses the schema
named in config (default_schema) unless --schema is given.

Exits non-zero when there are violations.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		schemaID := checkSchema
		if schemaID == "" {
			cfg, err := getConfig(h)
			if err != nil {
				return err
			}
			schemaID = cfg.DefaultSchema
		}

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		violations, err := lib.Validate(args[0], schemaID)
		if err != nil {
			return err
		}

		if len(violations) > 0 {
			if err := output.Print(CheckResponse{Schema: schemaID, Violations: violations}); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return fmt.Errorf("%d violation(s) against schema %s", len(violations), schemaID)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s passes schema %s\n", args[0], schemaID)
		return nil
	},
}

// parseRuleFlags converts repeated section=pattern flags into rules.
func parseRuleFlags(pairs []string) ([]types.Rule, error) {
	var rules []types.Rule
	for _, pair := range pairs {
		section, pattern, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --rule %q, want section=pattern", pair)
		}
		rules = append(rules, types.Rule{Section: section, Pattern: pattern})
	}
	return rules, nil
}

func init() {
	schemaSetCmd.Flags().StringSliceVar(&schemaRequired, "required", nil, "sections that must be present and non-empty")
	schemaSetCmd.Flags().StringArrayVar(&schemaRules, "rule", nil, "regex rule as section=pattern (repeatable)")

	checkCmd.Flags().StringVar(&checkSchema, "schema", "", "schema id to check against")

	schemaCmd.AddCommand(schemaSetCmd)
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaRmCmd)

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(checkCmd)
}
