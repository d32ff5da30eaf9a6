// Package config provides configuration for the benchmark engine.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/TFMV/equibench/pkg/orchestrator"
)

// Config carries the recognized benchmark options.
type Config struct {
	BaselineRuns          int     `mapstructure:"baseline_runs"`
	CandidateRuns         int     `mapstructure:"candidate_runs"`
	WinnerRuns            int     `mapstructure:"winner_runs"`
	KnownTimeout          bool    `mapstructure:"known_timeout"`
	TimeoutSeconds        float64 `mapstructure:"timeout_seconds"`
	PerStatementTimeoutMS int     `mapstructure:"per_statement_timeout_ms"`
	CollectExplain        bool    `mapstructure:"collect_explain"`
	SampleDBPath          string  `mapstructure:"sample_db_path"`
	Dialect               string  `mapstructure:"dialect"`
	LogLevel              string  `mapstructure:"log_level"`

	CrossCheck CrossCheckConfig `mapstructure:"cross_check"`
}

// CrossCheckConfig carries cross-engine pre-screen options.
type CrossCheckConfig struct {
	OracleDBPath      string `mapstructure:"oracle_db_path"`
	PerQueryTimeoutMS int    `mapstructure:"per_query_timeout_ms"`
	StripLimitCap     int    `mapstructure:"strip_limit_cap"`
}

// Default returns the defaults applied before any file or env override.
func Default() Config {
	return Config{
		BaselineRuns:          3,
		CandidateRuns:         3,
		WinnerRuns:            5,
		TimeoutSeconds:        30,
		PerStatementTimeoutMS: 30000,
		CollectExplain:        true,
		Dialect:               "duckdb",
		LogLevel:              "info",
		CrossCheck: CrossCheckConfig{
			PerQueryTimeoutMS: 10000,
			StripLimitCap:     1000,
		},
	}
}

// Load reads configuration from an optional file plus EQUIBENCH_* environment
// overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EQUIBENCH")
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("baseline_runs", cfg.BaselineRuns)
	v.SetDefault("candidate_runs", cfg.CandidateRuns)
	v.SetDefault("winner_runs", cfg.WinnerRuns)
	v.SetDefault("known_timeout", cfg.KnownTimeout)
	v.SetDefault("timeout_seconds", cfg.TimeoutSeconds)
	v.SetDefault("per_statement_timeout_ms", cfg.PerStatementTimeoutMS)
	v.SetDefault("collect_explain", cfg.CollectExplain)
	v.SetDefault("sample_db_path", cfg.SampleDBPath)
	v.SetDefault("dialect", cfg.Dialect)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("cross_check.oracle_db_path", cfg.CrossCheck.OracleDBPath)
	v.SetDefault("cross_check.per_query_timeout_ms", cfg.CrossCheck.PerQueryTimeoutMS)
	v.SetDefault("cross_check.strip_limit_cap", cfg.CrossCheck.StripLimitCap)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.BaselineRuns < 1 {
		return fmt.Errorf("baseline_runs must be at least 1, got %d", c.BaselineRuns)
	}
	if c.CandidateRuns < 1 {
		return fmt.Errorf("candidate_runs must be at least 1, got %d", c.CandidateRuns)
	}
	if c.WinnerRuns < c.CandidateRuns {
		return fmt.Errorf("winner_runs (%d) must not be below candidate_runs (%d)", c.WinnerRuns, c.CandidateRuns)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %v", c.TimeoutSeconds)
	}
	if c.PerStatementTimeoutMS <= 0 {
		return fmt.Errorf("per_statement_timeout_ms must be positive, got %d", c.PerStatementTimeoutMS)
	}
	if c.Dialect == "" {
		return fmt.Errorf("dialect must be set")
	}
	return nil
}

// Logger builds the root logger at the configured level. An unrecognized
// level falls back to info.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// PerStatementTimeout returns the per-statement timeout as a duration.
func (c *Config) PerStatementTimeout() time.Duration {
	return time.Duration(c.PerStatementTimeoutMS) * time.Millisecond
}

// Orchestrator maps the configuration onto a per-batch orchestrator config.
func (c *Config) Orchestrator(queryID string) orchestrator.Config {
	return orchestrator.Config{
		QueryID:             queryID,
		BaselineRuns:        c.BaselineRuns,
		CandidateRuns:       c.CandidateRuns,
		WinnerRuns:          c.WinnerRuns,
		KnownTimeout:        c.KnownTimeout,
		TimeoutSeconds:      c.TimeoutSeconds,
		PerStatementTimeout: c.PerStatementTimeout(),
		CollectExplain:      c.CollectExplain,
	}
}
