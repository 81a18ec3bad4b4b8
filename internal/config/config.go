package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultRecordIDs is the catalog identifier set processed when none are
// supplied via config or flags.
var DefaultRecordIDs = []int64{
	299534, 19995, 140607, 299536, 597, 135397, 420818, 24428, 168259, 99861,
	284054, 12445, 181808, 330457, 351286, 109445, 321612, 260513,
}

// Config holds the full application configuration. It is constructed once at
// startup and passed by reference into every component; nothing mutates it
// after Load returns.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Validate ValidateConfig `yaml:"validate" mapstructure:"validate"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CatalogConfig holds the remote catalog API settings. APIKey is the single
// static credential; its absence is a fatal precondition checked by the
// retrieval client before any request is issued.
type CatalogConfig struct {
	APIKey              string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL             string `yaml:"base_url" mapstructure:"base_url"`
	Language            string `yaml:"language" mapstructure:"language"`
	TimeoutSecs         int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	InterRequestDelayMS int    `yaml:"inter_request_delay_ms" mapstructure:"inter_request_delay_ms"`
}

// RetryConfig configures exponential backoff for transient upstream failures.
type RetryConfig struct {
	MaxAttempts   int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseBackoffMS int `yaml:"base_backoff_ms" mapstructure:"base_backoff_ms"`
	MaxBackoffMS  int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// ValidateConfig configures schema validation and quality scoring.
type ValidateConfig struct {
	RequiredColumns      []string `yaml:"required_columns" mapstructure:"required_columns"`
	OutlierIQRMultiplier float64  `yaml:"outlier_iqr_multiplier" mapstructure:"outlier_iqr_multiplier"`
}

// MetricsConfig configures derived financial metrics.
type MetricsConfig struct {
	// ReliabilityThresholdMUSD is the minimum budget (millions USD) for ROI to
	// be trusted; below it ROI is withheld because low-budget reporting is
	// unreliable and distorts ranking statistics.
	ReliabilityThresholdMUSD float64 `yaml:"reliability_threshold_musd" mapstructure:"reliability_threshold_musd"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	// IDs is the record identifier batch to extract.
	IDs []int64 `yaml:"ids" mapstructure:"ids"`
	// MinQualityScore is the stage quality gate, in percent. A stage scoring
	// below it logs a warning; only a completely empty artifact aborts.
	MinQualityScore float64 `yaml:"min_quality_score" mapstructure:"min_quality_score"`
	// SkipExisting reuses a previously persisted complete stage artifact
	// instead of recomputing it.
	SkipExisting bool `yaml:"skip_existing" mapstructure:"skip_existing"`
}

// StoreConfig configures the stage artifact store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. AutomaticEnv only resolves keys viper has already seen, so
	// every key is registered here, including the ones that default to empty.
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("catalog.language", "en-US")
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("catalog.inter_request_delay_ms", 500)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("validate.required_columns", []string{"id", "title", "budget_musd", "revenue_musd"})
	v.SetDefault("validate.outlier_iqr_multiplier", 1.5)
	v.SetDefault("metrics.reliability_threshold_musd", 10.0)
	v.SetDefault("pipeline.ids", []int64(nil))
	v.SetDefault("pipeline.min_quality_score", 60.0)
	v.SetDefault("pipeline.skip_existing", true)
	v.SetDefault("store.path", "catalog.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Pipeline.IDs) == 0 {
		cfg.Pipeline.IDs = append([]int64(nil), DefaultRecordIDs...)
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
