package main

import (
	"github.com/spf13/cobra"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch raw records from the catalog API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStageCommand(cmd, []string{model.StageExtract})
	},
}

func init() {
	extractCmd.Flags().Bool("force", false, "re-run even if a complete artifact exists")
	rootCmd.AddCommand(extractCmd)
}
