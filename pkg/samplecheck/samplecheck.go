// Package samplecheck provides the reduced-sample fallback correctness
// check. It is consulted when a candidate returns zero rows against the full
// dataset, to distinguish a wrong rewrite from a semantically correct
// execution that an earlier timeout truncated to empty.
package samplecheck

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/errors"
	"github.com/TFMV/equibench/pkg/executor"
	"github.com/TFMV/equibench/pkg/executor/sqlite"
	"github.com/TFMV/equibench/pkg/models"
)

// Checker re-executes an original/candidate pair against a small pre-built
// sample of the same schema and dialect.
type Checker interface {
	Check(ctx context.Context, original, candidate string) (*models.SampleCheckResult, error)
}

type checker struct {
	// newExecutor yields a fresh executor per check. The sample connection
	// is independent of the orchestrator's connection budget.
	newExecutor func() executor.Executor
	timeout     time.Duration
	log         zerolog.Logger
}

// New creates a sample checker over an executor factory.
func New(factory func() executor.Executor, timeout time.Duration, logger zerolog.Logger) Checker {
	return &checker{
		newExecutor: factory,
		timeout:     timeout,
		log:         logger.With().Str("component", "samplecheck").Logger(),
	}
}

// NewSQLite creates a sample checker over a read-only SQLite sample database.
func NewSQLite(path string, timeout time.Duration, logger zerolog.Logger) Checker {
	return New(func() executor.Executor {
		return sqlite.New(sqlite.Config{Path: path}, logger)
	}, timeout, logger)
}

// Check executes both statements against the sample and compares row counts
// and checksums.
func (c *checker) Check(ctx context.Context, original, candidate string) (*models.SampleCheckResult, error) {
	result := &models.SampleCheckResult{}

	ex := c.newExecutor()
	if err := ex.Connect(ctx); err != nil {
		result.Error = err.Error()
		return result, err
	}
	defer ex.Close()

	origRows, err := ex.Execute(ctx, original, c.timeout)
	if err != nil {
		result.Error = err.Error()
		return result, errors.Wrap(err, errors.GetCode(err), "sample execution of original failed")
	}
	candRows, err := ex.Execute(ctx, candidate, c.timeout)
	if err != nil {
		result.Error = err.Error()
		return result, errors.Wrap(err, errors.GetCode(err), "sample execution of candidate failed")
	}

	result.OriginalSampleRows = origRows.RowCount()
	result.CandidateSampleRows = candRows.RowCount()
	result.Equivalent = result.OriginalSampleRows == result.CandidateSampleRows &&
		origRows.Checksum() == candRows.Checksum()

	c.log.Debug().
		Int64("original_rows", result.OriginalSampleRows).
		Int64("candidate_rows", result.CandidateSampleRows).
		Bool("equivalent", result.Equivalent).
		Msg("sample check completed")
	return result, nil
}
