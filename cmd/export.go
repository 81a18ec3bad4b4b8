package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/boxofficelab/catalog-cli/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stage artifact as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		stage, _ := cmd.Flags().GetString("stage")
		outPath, _ := cmd.Flags().GetString("out")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		artifact, err := st.LoadArtifact(ctx, stage)
		if err != nil {
			return eris.Wrapf(err, "export %s", stage)
		}

		var rows []map[string]any
		if err := json.Unmarshal(artifact.Rows, &rows); err != nil {
			return eris.Errorf("export: stage %s artifact is not tabular", stage)
		}

		f, err := os.Create(outPath)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", outPath)
		}
		defer f.Close() //nolint:errcheck

		if err := writeCSV(f, rows); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d rows to %s\n", len(rows), outPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("stage", model.StageMetrics, "stage artifact to export (extract, clean, metrics)")
	exportCmd.Flags().String("out", "", "output CSV path (required)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

// writeCSV writes the decoded rows with a stable column order: id and title
// first, remaining columns alphabetical.
func writeCSV(out io.Writer, rows []map[string]any) error {
	cols := columnOrder(rows)
	w := csv.NewWriter(out)

	if err := w.Write(cols); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, col := range cols {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush")
}

func columnOrder(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)

	// Keep the identifying columns up front.
	front := []string{"id", "title"}
	ordered := make([]string, 0, len(cols))
	for _, f := range front {
		if seen[f] {
			ordered = append(ordered, f)
		}
	}
	for _, col := range cols {
		if col != "id" && col != "title" {
			ordered = append(ordered, col)
		}
	}
	return ordered
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}
