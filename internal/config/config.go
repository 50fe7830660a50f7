// Package config loads application configuration from file and environment
// and initializes the global logger. No component below the CLI layer reads
// ambient environment state; everything is passed down as explicit structs.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// PipelineConfig holds the reconciliation constants the pipeline reads but
// does not define.
type PipelineConfig struct {
	GoalThreshold    float64 `yaml:"goal_threshold" mapstructure:"goal_threshold"`
	CountryCode      string  `yaml:"country_code" mapstructure:"country_code"`
	BatchSize        int     `yaml:"batch_size" mapstructure:"batch_size"`
	MatchWorkers     int     `yaml:"match_workers" mapstructure:"match_workers"`
	PlaceholderStart int     `yaml:"placeholder_start" mapstructure:"placeholder_start"`
	CodePrefix       string  `yaml:"code_prefix" mapstructure:"code_prefix"`
	JunkNamePattern  string  `yaml:"junk_name_pattern" mapstructure:"junk_name_pattern"`
	WritesPerSecond  float64 `yaml:"writes_per_second" mapstructure:"writes_per_second"`
}

// IngestConfig configures raw input loading.
type IngestConfig struct {
	FieldMapPath string `yaml:"field_map_path" mapstructure:"field_map_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and the MENTORSYNC_* environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MENTORSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "mentorsync.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pipeline.goal_threshold", 1000)
	v.SetDefault("pipeline.country_code", "1")
	v.SetDefault("pipeline.batch_size", 100)
	v.SetDefault("pipeline.match_workers", 8)
	v.SetDefault("pipeline.placeholder_start", 90000)
	v.SetDefault("pipeline.code_prefix", "MN")
	v.SetDefault("pipeline.junk_name_pattern", `(?i)^(anonymous|guest)(\s+donor)?\s*#?\d*$`)
	v.SetDefault("pipeline.writes_per_second", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
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
