package main

import (
	"github.com/spf13/cobra"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize the raw extract into typed records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStageCommand(cmd, []string{model.StageClean})
	},
}

func init() {
	cleanCmd.Flags().Bool("force", false, "re-run even if a complete artifact exists")
	rootCmd.AddCommand(cleanCmd)
}
