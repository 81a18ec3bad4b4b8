package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/boxofficelab/catalog-cli/internal/analyze"
	"github.com/boxofficelab/catalog-cli/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query the metrics artifact by genre, actor, or director",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		genre, _ := cmd.Flags().GetString("genre")
		actor, _ := cmd.Flags().GetString("actor")
		director, _ := cmd.Flags().GetString("director")
		top, _ := cmd.Flags().GetInt("top")

		if genre == "" && actor == "" && director == "" {
			return eris.New("search: at least one of --genre, --actor, --director is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		artifact, err := st.LoadArtifact(ctx, model.StageMetrics)
		if err != nil {
			return eris.Wrap(err, "search: metrics artifact (run the metrics stage first)")
		}
		var records []model.MetricRecord
		if err := json.Unmarshal(artifact.Rows, &records); err != nil {
			return eris.Wrap(err, "search: decode metrics artifact")
		}

		a := analyze.New()
		var matches []model.MetricRecord
		switch {
		case genre != "" && actor != "" && director == "":
			matches = a.BestByGenreAndActor(records, genre, actor, top)
		case actor != "" && director != "" && genre == "":
			matches = a.ByActorAndDirector(records, actor, director)
		default:
			matches = a.Filter(records, genre, actor, director)
			if top > 0 && len(matches) > top {
				matches = matches[:top]
			}
		}

		if len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "No matching records.")
			return nil
		}
		return printJSON(matches)
	},
}

func init() {
	searchCmd.Flags().String("genre", "", "genre to match (substring, case-insensitive)")
	searchCmd.Flags().String("actor", "", "cast member to match")
	searchCmd.Flags().String("director", "", "director to match")
	searchCmd.Flags().Int("top", 5, "max records to print for ranked queries")
	rootCmd.AddCommand(searchCmd)
}
