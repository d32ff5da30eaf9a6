// Package bench provides the timing methodology: discard-first-run averaging
// and trimmed-mean-of-N.
package bench

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/executor"
	"github.com/TFMV/equibench/pkg/models"
)

// PlanRuns splits a run count into its warmup and measured parts. Run counts
// of 3 and 4 spend the first run on cache/JIT warmup; counts of 5 and above
// measure every run and rely on trimming instead.
func PlanRuns(runs int) (warmup bool, measured int) {
	switch {
	case runs >= 5:
		return false, runs
	case runs >= 3:
		return true, runs - 1
	case runs >= 1:
		return false, runs
	default:
		return false, 1
	}
}

// Mean averages a timing sample.
func Mean(ms []float64) float64 {
	if len(ms) == 0 {
		return 0
	}
	var total float64
	for _, m := range ms {
		total += m
	}
	return total / float64(len(ms))
}

// TrimmedMean averages a timing sample after discarding its single fastest
// and slowest observations, for resistance to scheduler noise. Samples too
// small to trim fall back to the plain mean.
func TrimmedMean(ms []float64) float64 {
	if len(ms) < 3 {
		return Mean(ms)
	}
	minIdx, maxIdx := 0, 0
	for i, m := range ms {
		if m < ms[minIdx] {
			minIdx = i
		}
		if m > ms[maxIdx] {
			maxIdx = i
		}
	}
	var total float64
	var n int
	for i, m := range ms {
		if i == minIdx || i == maxIdx {
			continue
		}
		total += m
		n++
	}
	if n == 0 {
		return Mean(ms)
	}
	return total / float64(n)
}

// Aggregate reduces measured run times to the reported average: trimmed mean
// for deep samples, plain mean otherwise.
func Aggregate(measured []float64) float64 {
	if len(measured) >= 5 {
		return TrimmedMean(measured)
	}
	return Mean(measured)
}

// Measurement is one statement's timing observation.
type Measurement struct {
	WarmupMS   float64
	MeasuredMS float64
	AllMS      []float64
}

// Timing converts a measurement to its model form.
func (m *Measurement) Timing() models.TimingResult {
	return models.TimingResult{
		WarmupMS:   m.WarmupMS,
		MeasuredMS: m.MeasuredMS,
		AllMS:      m.AllMS,
	}
}

// Benchmarker times statements on a connected executor.
type Benchmarker struct {
	log zerolog.Logger
}

// New creates a Benchmarker.
func New(logger zerolog.Logger) *Benchmarker {
	return &Benchmarker{log: logger.With().Str("component", "bench").Logger()}
}

// MeasureQuery times a statement for the given run count. Rows from the
// first measured run are returned for checksumming; later runs drop their
// rows immediately after the scan.
func (b *Benchmarker) MeasureQuery(ctx context.Context, ex executor.Executor, query string, runs int, timeout time.Duration) (*Measurement, *executor.ResultSet, error) {
	warmup, measuredRuns := PlanRuns(runs)

	m := &Measurement{}
	if warmup {
		elapsed, _, err := b.timeOnce(ctx, ex, query, timeout)
		if err != nil {
			return nil, nil, err
		}
		m.WarmupMS = elapsed
	}

	var firstRows *executor.ResultSet
	for i := 0; i < measuredRuns; i++ {
		elapsed, rows, err := b.timeOnce(ctx, ex, query, timeout)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			firstRows = rows
		}
		m.AllMS = append(m.AllMS, elapsed)
	}
	m.MeasuredMS = Aggregate(m.AllMS)

	b.log.Debug().
		Float64("avg_ms", m.MeasuredMS).
		Int("runs", runs).
		Msg("query measured")
	return m, firstRows, nil
}

// PairMeasurement is one original/candidate timing comparison. Each side is
// timed independently with the same methodology.
type PairMeasurement struct {
	Original      *Measurement
	Candidate     *Measurement
	OriginalRows  *executor.ResultSet
	CandidateRows *executor.ResultSet
	Speedup       float64
}

// Executions converts both sides into their execution-result model form.
func (p *PairMeasurement) Executions() (models.QueryExecutionResult, models.QueryExecutionResult) {
	return executionResult(p.Original, p.OriginalRows), executionResult(p.Candidate, p.CandidateRows)
}

func executionResult(m *Measurement, rows *executor.ResultSet) models.QueryExecutionResult {
	return models.QueryExecutionResult{
		Timing:   m.Timing(),
		RowCount: rows.RowCount(),
		Checksum: rows.Checksum(),
	}
}

// MeasurePair times both sides of a rewrite and reports
// speedup = original_ms / candidate_ms.
func (b *Benchmarker) MeasurePair(ctx context.Context, ex executor.Executor, original, candidate string, runs int, timeout time.Duration) (*PairMeasurement, error) {
	origM, origRows, err := b.MeasureQuery(ctx, ex, original, runs, timeout)
	if err != nil {
		return nil, err
	}
	candM, candRows, err := b.MeasureQuery(ctx, ex, candidate, runs, timeout)
	if err != nil {
		return nil, err
	}
	return &PairMeasurement{
		Original:      origM,
		Candidate:     candM,
		OriginalRows:  origRows,
		CandidateRows: candRows,
		Speedup:       Speedup(origM.MeasuredMS, candM.MeasuredMS),
	}, nil
}

// Speedup computes original/candidate, guarding the zero denominator.
func Speedup(originalMS, candidateMS float64) float64 {
	if candidateMS <= 0 {
		return 0
	}
	return originalMS / candidateMS
}

func (b *Benchmarker) timeOnce(ctx context.Context, ex executor.Executor, query string, timeout time.Duration) (float64, *executor.ResultSet, error) {
	start := time.Now()
	rows, err := ex.Execute(ctx, query, timeout)
	if err != nil {
		return 0, nil, err
	}
	return float64(time.Since(start).Microseconds()) / 1000.0, rows, nil
}

// EstimateCost derives an advisory cost estimate from the engine's plan. It
// never gates correctness; any failure reports +Inf.
func (b *Benchmarker) EstimateCost(ctx context.Context, ex executor.Executor, query string) models.CostResult {
	plan, err := ex.Explain(ctx, query, false)
	if err != nil {
		return models.CostResult{EstimatedCost: math.Inf(1)}
	}
	return ParsePlanCost(plan)
}
