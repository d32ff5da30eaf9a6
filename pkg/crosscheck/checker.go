package crosscheck

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/errors"
	"github.com/TFMV/equibench/pkg/executor"
	"github.com/TFMV/equibench/pkg/metrics"
	"github.com/TFMV/equibench/pkg/models"
)

// Config configures a cross-engine checker.
type Config struct {
	// SourceDialect is the dialect the incoming SQL is written in.
	SourceDialect string
	// PerQueryTimeout is the hard deadline per oracle execution.
	PerQueryTimeout time.Duration
	// StripLimitCap caps the LIMIT applied in the stripped second pass.
	StripLimitCap int
}

// Checker pre-screens candidate rewrites against a local oracle.
//
// Verdict policy: a row-count mismatch is a hard failure in exact mode but
// only a non-blocking warning in stripped mode, and a checksum mismatch is
// never a hard failure cross-engine — dialect-specific type coercion breaks
// byte-level equality for semantically identical queries. Any checker error
// fails open: a checker bug must never block the pipeline from reaching the
// authoritative production benchmark.
type Checker struct {
	oracle     executor.Executor
	transpiler Transpiler
	cfg        Config
	log        zerolog.Logger
	metrics    metrics.Collector

	schemaOnce sync.Once
	colTables  map[string][]string
}

// New creates a cross-engine checker over a connected-or-connectable oracle
// executor.
func New(oracle executor.Executor, transpiler Transpiler, cfg Config, logger zerolog.Logger, collector metrics.Collector) *Checker {
	if cfg.PerQueryTimeout <= 0 {
		cfg.PerQueryTimeout = 10 * time.Second
	}
	if cfg.StripLimitCap <= 0 {
		cfg.StripLimitCap = 1000
	}
	if transpiler == nil {
		transpiler = NewParserTranspiler()
	}
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	return &Checker{
		oracle:     oracle,
		transpiler: transpiler,
		cfg:        cfg,
		log:        logger.With().Str("component", "crosscheck").Logger(),
		metrics:    collector,
	}
}

// Check pre-screens one original/candidate pair. Pass 1 runs the transpiled
// statements unmodified. A zero-row original is a strong signal that the
// synthetic seed data does not satisfy literal filter values, not that the
// query is wrong, so pass 2 retries with literal predicates stripped from
// both sides identically.
func (c *Checker) Check(ctx context.Context, original, candidate string) *models.CrossCheckResult {
	result := c.check(ctx, original, candidate)
	c.metrics.CrossCheckOutcome(result.Equivalent, result.UsedStripped)
	return result
}

func (c *Checker) check(ctx context.Context, original, candidate string) *models.CrossCheckResult {
	if err := c.oracle.Connect(ctx); err != nil {
		return c.failOpen("oracle unavailable", err)
	}

	origSQL, err := c.transpiler.Transpile(original, c.cfg.SourceDialect, c.oracle.Dialect())
	if err != nil {
		return c.failOpen("transpile of original failed", err)
	}
	candSQL, err := c.transpiler.Transpile(candidate, c.cfg.SourceDialect, c.oracle.Dialect())
	if err != nil {
		return c.failOpen("transpile of candidate failed", err)
	}

	schema := c.loadSchema(ctx)
	origSQL = qualifyColumns(origSQL, schema)
	candSQL = qualifyColumns(candSQL, schema)

	origRows, err := c.execute(ctx, origSQL)
	if err != nil {
		return c.failOpen("oracle execution of original failed", err)
	}

	stripped := false
	if origRows.RowCount() == 0 {
		strippedOrig, serr := StripForSeedData(origSQL, c.cfg.StripLimitCap)
		strippedCand, cerr := StripForSeedData(candSQL, c.cfg.StripLimitCap)
		if serr == nil && cerr == nil {
			retry, rerr := c.execute(ctx, strippedOrig)
			if rerr == nil && retry.RowCount() > 0 {
				origSQL, candSQL = strippedOrig, strippedCand
				origRows = retry
				stripped = true
			}
		}
	}

	candRows, err := c.execute(ctx, candSQL)
	if err != nil {
		return c.failOpen("oracle execution of candidate failed", err)
	}

	result := &models.CrossCheckResult{
		Equivalent:        true,
		OriginalRows:      origRows.RowCount(),
		CandidateRows:     candRows.RowCount(),
		OriginalChecksum:  origRows.Checksum(),
		CandidateChecksum: candRows.Checksum(),
		UsedStripped:      stripped,
	}

	if result.OriginalRows != result.CandidateRows {
		if stripped {
			// Structural rewrites legitimately shift result distributions once
			// literal filters are removed.
			result.Warning = "row count mismatch under stripped predicates"
			c.log.Warn().
				Int64("original_rows", result.OriginalRows).
				Int64("candidate_rows", result.CandidateRows).
				Msg("stripped-mode row count mismatch (non-blocking)")
		} else {
			result.Equivalent = false
			result.Error = "row count mismatch"
		}
		return result
	}

	if result.OriginalChecksum != result.CandidateChecksum {
		// Diagnostic only. Cross-engine coercion breaks checksum equality for
		// semantically identical queries.
		result.Warning = "checksum mismatch ignored cross-engine"
		c.log.Info().
			Str("original_checksum", result.OriginalChecksum).
			Str("candidate_checksum", result.CandidateChecksum).
			Bool("stripped", stripped).
			Msg("cross-engine checksum mismatch ignored")
	}
	return result
}

// execute races an oracle execution against the per-query deadline. The
// context deadline handles drivers with real cancellation; for drivers
// without it the worker goroutine is abandoned, not killed, and leaks until
// the driver returns on its own. Callers must treat a timeout as a
// correctness-contract boundary, not a resource-reclamation guarantee.
func (c *Checker) execute(ctx context.Context, query string) (*executor.ResultSet, error) {
	type outcome struct {
		rs  *executor.ResultSet
		err error
	}
	done := make(chan outcome, 1)

	execCtx, cancel := context.WithTimeout(ctx, c.cfg.PerQueryTimeout)
	go func() {
		defer cancel()
		rs, err := c.oracle.Execute(execCtx, query, 0)
		done <- outcome{rs, err}
	}()

	timer := time.NewTimer(c.cfg.PerQueryTimeout + 100*time.Millisecond)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.rs, out.err
	case <-timer.C:
		c.log.Warn().Str("sql", query).Msg("oracle execution abandoned on deadline")
		return nil, errors.New(errors.CodeTimeout, "oracle execution exceeded deadline")
	}
}

func (c *Checker) failOpen(msg string, err error) *models.CrossCheckResult {
	c.log.Warn().Err(err).Msg(msg + " (failing open)")
	return &models.CrossCheckResult{
		Equivalent: true,
		Error:      msg + ": " + err.Error(),
	}
}
