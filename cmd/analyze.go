package main

import (
	"github.com/spf13/cobra"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the grouped-statistics analysis report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStageCommand(cmd, []string{model.StageAnalyze})
	},
}

func init() {
	analyzeCmd.Flags().Bool("force", false, "re-run even if a complete artifact exists")
	rootCmd.AddCommand(analyzeCmd)
}
