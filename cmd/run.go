package main

import (
	"github.com/spf13/cobra"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: extract, clean, metrics, analyze",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStageCommand(cmd, model.Stages())
	},
}

func init() {
	runCmd.Flags().Bool("force", false, "re-run every stage even if complete artifacts exist")
	runCmd.Flags().Int64Slice("ids", nil, "record identifiers to fetch (overrides configured list)")
	rootCmd.AddCommand(runCmd)
}
