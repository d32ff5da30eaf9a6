// Package duckdb provides the DuckDB executor, the engine's fast local
// oracle.
package duckdb

import (
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/executor"
)

// Dialect is the dialect identifier DuckDB executors report.
const Dialect = "duckdb"

// Config configures a DuckDB executor.
type Config struct {
	// Path is the database file, or ":memory:" for an in-memory database.
	Path string
	// ReadOnly opens the database read-only. Oracle and sample databases
	// are always opened this way; in-memory databases cannot be.
	ReadOnly           bool
	SlowQueryThreshold time.Duration
}

// New creates a DuckDB-backed executor.
func New(cfg Config, logger zerolog.Logger) executor.Executor {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}
	if cfg.ReadOnly && dsn != ":memory:" {
		dsn += "?access_mode=read_only"
	}
	return executor.NewSQLExecutor(executor.Options{
		Driver:               "duckdb",
		DSN:                  dsn,
		Dialect:              Dialect,
		Family:               executor.FamilyOracle,
		ExplainPrefix:        "EXPLAIN ",
		ExplainAnalyzePrefix: "EXPLAIN ANALYZE ",
		SlowQueryThreshold:   cfg.SlowQueryThreshold,
		Logger:               logger.With().Str("executor", "duckdb").Logger(),
	})
}
