package main

import (
	"github.com/spf13/cobra"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Derive profit and ROI from the cleaned records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStageCommand(cmd, []string{model.StageMetrics})
	},
}

func init() {
	metricsCmd.Flags().Bool("force", false, "re-run even if a complete artifact exists")
	rootCmd.AddCommand(metricsCmd)
}
