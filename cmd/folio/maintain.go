package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/folio-sh/folio/internal/doctor"
	"github.com/folio-sh/folio/internal/output"
)

// CompactResponse is the response for compacting the log.
type CompactResponse struct {
	Kept    int `json:"kept" yaml:"kept"`
	Dropped int `json:"dropped" yaml:"dropped"`
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the log keeping only current versions",
	Long: `Rewrite the prompt log keeping only the current version of each
document. Version history is discarded; archived documents survive.

Compaction also drops malformed lines, which reads normally skip over.
Run 'folio doctor' first if you want to see what would be lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := getLibrary()
		if err != nil {
			return err
		}

		kept, dropped, err := lib.Compact(ctx)
		if err != nil {
			return err
		}

		return output.Print(CompactResponse{Kept: kept, Dropped: dropped})
	},
}

var doctorStale time.Duration

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of the prompt store",
	Long: `Check the health of the prompt store.

Reads never fail on a damaged log; they skip what they cannot parse.
Doctor is where the damage becomes visible: malformed lines, records
failing their schema, duplicate (id, version) pairs from a merge,
version regressions, unresolvable inheritance chains, and stale lock
markers left by crashed processes.

Exits non-zero when anything is found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		report, err := doctor.Run(h.PromptsPath(), h.SchemasPath(), doctorStale)
		if err != nil {
			return err
		}

		if err := output.Print(report); err != nil {
			return err
		}

		if !report.Healthy {
			cmd.SilenceUsage = true
			return errors.New("prompt store is unhealthy")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().DurationVar(&doctorStale, "stale", 0, "lock markers older than this are reported (default 30s)")

	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(doctorCmd)
}
