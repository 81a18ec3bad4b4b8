package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boxofficelab/catalog-cli/internal/config"
	"github.com/boxofficelab/catalog-cli/internal/pipeline"
	"github.com/boxofficelab/catalog-cli/internal/resilience"
	"github.com/boxofficelab/catalog-cli/internal/store"
	"github.com/boxofficelab/catalog-cli/pkg/catalog"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "catalog-cli",
	Short: "Resilient movie-catalog ingestion and analytics pipeline",
	Long:  "Fetches movie records from the catalog API, cleans and scores them, derives financial metrics, and emits analysis reports through checkpointed stages.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; the environment wins either way.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initStore opens and migrates the SQLite store from config.
func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newCatalogClient builds the retrieval client from config.
func newCatalogClient() catalog.Client {
	return catalog.NewClient(cfg.Catalog.APIKey,
		catalog.WithBaseURL(cfg.Catalog.BaseURL),
		catalog.WithLanguage(cfg.Catalog.Language),
		catalog.WithHTTPClient(httpClientFromConfig()),
		catalog.WithRetryConfig(resilience.FromRetryConfig(
			cfg.Retry.MaxAttempts,
			cfg.Retry.BaseBackoffMS,
			cfg.Retry.MaxBackoffMS,
		)),
		catalog.WithInterRequestDelay(time.Duration(cfg.Catalog.InterRequestDelayMS)*time.Millisecond),
	)
}

func httpClientFromConfig() *http.Client {
	timeout := 30 * time.Second
	if cfg.Catalog.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.Catalog.TimeoutSecs) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// invocationConfig derives a copy of the loaded config with flag overrides
// applied, so the shared config stays immutable across invocations.
func invocationConfig(cmd *cobra.Command) *config.Config {
	c := *cfg
	if force, _ := cmd.Flags().GetBool("force"); force {
		c.Pipeline.SkipExisting = false
	}
	if ids, _ := cmd.Flags().GetInt64Slice("ids"); len(ids) > 0 {
		c.Pipeline.IDs = ids
	}
	return &c
}

// runStageCommand executes one or more pipeline stages and prints the run
// summary as JSON.
func runStageCommand(cmd *cobra.Command, stages []string) error {
	ctx := cmd.Context()
	runCfg := invocationConfig(cmd)

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	orch := pipeline.New(runCfg, st, newCatalogClient())
	run, runErr := orch.RunStages(ctx, stages)
	if run != nil {
		if printErr := printJSON(run); printErr != nil {
			return printErr
		}
	}
	if runErr != nil {
		return eris.Wrap(runErr, "pipeline")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
