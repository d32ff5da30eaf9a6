// Package validate is the single-pair convenience entry point composing the
// query normalizer, the benchmarker, and the equivalence checker.
package validate

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/bench"
	"github.com/TFMV/equibench/pkg/equivalence"
	"github.com/TFMV/equibench/pkg/errors"
	"github.com/TFMV/equibench/pkg/executor"
	"github.com/TFMV/equibench/pkg/models"
	"github.com/TFMV/equibench/pkg/normalize"
)

// Options configures a single-pair validation.
type Options struct {
	Runs                int
	PerStatementTimeout time.Duration
	Strategy            normalize.Strategy
	Tolerance           float64
	MaxDiffs            int
	// EstimateCost also derives the advisory cost reduction from EXPLAIN.
	EstimateCost bool
}

func (o *Options) applyDefaults() {
	if o.Runs <= 0 {
		o.Runs = 3
	}
	if o.Strategy == "" {
		o.Strategy = normalize.StrategyAddOrder
	}
	if o.Tolerance <= 0 {
		o.Tolerance = equivalence.DefaultTolerance
	}
	if o.MaxDiffs <= 0 {
		o.MaxDiffs = equivalence.DefaultMaxDiffs
	}
}

// Validator validates one original/candidate pair end to end.
type Validator struct {
	bench *bench.Benchmarker
	log   zerolog.Logger
}

// New creates a Validator.
func New(logger zerolog.Logger) *Validator {
	return &Validator{
		bench: bench.New(logger),
		log:   logger.With().Str("component", "validate").Logger(),
	}
}

// Validate normalizes, benchmarks, and compares one pair on a single
// connection. Speedup and cost reduction are reporting metrics only; the
// status is decided by rows and values alone.
func (v *Validator) Validate(ctx context.Context, ex executor.Executor, original, candidate string, opts Options) *models.ValidationResult {
	opts.applyDefaults()
	result := &models.ValidationResult{Status: models.StatusError}

	if err := ex.Connect(ctx); err != nil {
		return v.errorResult(result, err)
	}
	defer ex.Close()

	origNorm, candNorm := normalize.NormalizePair(original, candidate, opts.Strategy)
	if origNorm.Err != nil || candNorm.Err != nil {
		// Soft failure: proceed unnormalized rather than aborting.
		v.log.Debug().
			AnErr("original_err", origNorm.Err).
			AnErr("candidate_err", candNorm.Err).
			Msg("normalization failed; proceeding unnormalized")
	}
	if origNorm.WasModified || origNorm.Err != nil {
		n := origNorm.Model()
		result.OriginalNormalization = &n
	}
	if candNorm.WasModified || candNorm.Err != nil {
		n := candNorm.Model()
		result.CandidateNormalization = &n
	}

	pair, err := v.bench.MeasurePair(ctx, ex, origNorm.SQL, candNorm.SQL, opts.Runs, opts.PerStatementTimeout)
	if err != nil {
		return v.errorResult(result, err)
	}

	origExec, candExec := pair.Executions()
	result.OriginalMS = origExec.Timing.MeasuredMS
	result.CandidateMS = candExec.Timing.MeasuredMS
	result.Speedup = pair.Speedup
	result.OriginalRows = origExec.RowCount
	result.CandidateRows = candExec.RowCount

	if opts.EstimateCost {
		result.CostReductionPct = costReduction(
			v.bench.EstimateCost(ctx, ex, origNorm.SQL),
			v.bench.EstimateCost(ctx, ex, candNorm.SQL),
		)
	}

	// Row-count equality is the precondition for any value-level comparison.
	if !equivalence.CompareRowCounts(result.OriginalRows, result.CandidateRows) {
		result.Status = models.StatusFail
		result.Error = "row count mismatch"
		result.ErrorCode = errors.CodeCorrectness
		return result
	}

	if pair.OriginalRows.Checksum() == pair.CandidateRows.Checksum() {
		result.Status = models.StatusPass
		return result
	}

	// Checksums disagree; diagnose with tolerance before condemning.
	diffs, err := equivalence.CompareValues(
		pair.OriginalRows.Columns, pair.OriginalRows.Rows,
		pair.CandidateRows.Columns, pair.CandidateRows.Rows,
		opts.Tolerance, opts.MaxDiffs,
	)
	if err != nil {
		return v.errorResult(result, err)
	}
	if len(diffs) == 0 {
		// Within float tolerance everywhere.
		result.Status = models.StatusPass
		return result
	}

	result.Status = models.StatusFail
	result.Differences = diffs
	result.Error = "values differ"
	result.ErrorCode = errors.CodeCorrectness
	return result
}

func (v *Validator) errorResult(result *models.ValidationResult, err error) *models.ValidationResult {
	result.Status = models.StatusError
	result.Error = err.Error()
	result.ErrorCode = errors.Classify(err)
	return result
}

func costReduction(original, candidate models.CostResult) float64 {
	if math.IsInf(original.EstimatedCost, 0) || math.IsInf(candidate.EstimatedCost, 0) ||
		original.EstimatedCost <= 0 {
		return 0
	}
	return (original.EstimatedCost - candidate.EstimatedCost) / original.EstimatedCost * 100
}
