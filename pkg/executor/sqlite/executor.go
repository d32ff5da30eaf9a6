// Package sqlite provides the SQLite executor used for small same-dialect
// sample databases.
package sqlite

import (
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/executor"
)

// Dialect is the dialect identifier SQLite executors report.
const Dialect = "sqlite"

// Config configures a SQLite executor.
type Config struct {
	// Path is the database file. Sample databases are opened read-only.
	Path               string
	SlowQueryThreshold time.Duration
}

// New creates a SQLite-backed executor over a read-only sample database.
func New(cfg Config, logger zerolog.Logger) executor.Executor {
	return executor.NewSQLExecutor(executor.Options{
		Driver:             "sqlite3",
		DSN:                "file:" + cfg.Path + "?mode=ro",
		Dialect:            Dialect,
		Family:             executor.FamilyOracle,
		ExplainPrefix:      "EXPLAIN QUERY PLAN ",
		SlowQueryThreshold: cfg.SlowQueryThreshold,
		Logger:             logger.With().Str("executor", "sqlite").Logger(),
	})
}
