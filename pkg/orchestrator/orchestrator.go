// Package orchestrator ties baseline, candidates, winner reconfirmation, and
// plan capture into one connection-scoped benchmark lifecycle.
package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TFMV/equibench/pkg/bench"
	"github.com/TFMV/equibench/pkg/errors"
	"github.com/TFMV/equibench/pkg/executor"
	"github.com/TFMV/equibench/pkg/metrics"
	"github.com/TFMV/equibench/pkg/models"
	"github.com/TFMV/equibench/pkg/samplecheck"
)

// Config carries the per-batch options recognized by the orchestrator.
type Config struct {
	QueryID       string
	BaselineRuns  int
	CandidateRuns int
	WinnerRuns    int

	// KnownTimeout asserts the original is a known prior timeout. The
	// baseline is then skipped entirely and the timeout ceiling stands in as
	// a synthetic baseline: re-running a known-slow query wastes budget for
	// no signal.
	KnownTimeout   bool
	TimeoutSeconds float64

	PerStatementTimeout time.Duration
	CollectExplain      bool

	// Classify overrides the default speedup classification.
	Classify func(float64) models.SpeedupClass
}

func (c *Config) applyDefaults() {
	if c.QueryID == "" {
		c.QueryID = uuid.NewString()
	}
	if c.BaselineRuns <= 0 {
		c.BaselineRuns = 3
	}
	if c.CandidateRuns <= 0 {
		c.CandidateRuns = 3
	}
	if c.WinnerRuns <= 0 {
		c.WinnerRuns = 5
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.PerStatementTimeout <= 0 {
		c.PerStatementTimeout = time.Duration(c.TimeoutSeconds * float64(time.Second))
	}
	if c.Classify == nil {
		c.Classify = models.ClassifySpeedup
	}
}

// Orchestrator benchmarks N candidate rewrites of one query against its
// baseline over exactly one database connection.
type Orchestrator struct {
	bench   *bench.Benchmarker
	sample  samplecheck.Checker
	metrics metrics.Collector
	log     zerolog.Logger
}

// New creates an Orchestrator. The sample checker is optional; without it a
// zero-row candidate is simply a row-count failure.
func New(sample samplecheck.Checker, collector metrics.Collector, logger zerolog.Logger) *Orchestrator {
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	return &Orchestrator{
		bench:   bench.New(logger),
		sample:  sample,
		metrics: collector,
		log:     logger.With().Str("component", "orchestrator").Logger(),
	}
}

// baseline is the reference every candidate is compared against. A
// known-timeout baseline has no row capture, so captured is false and
// correctness cannot be proven against it.
type baseline struct {
	avgMS    float64
	rowCount int64
	checksum string
	captured bool
}

// Run executes the full benchmark lifecycle and always returns a summary,
// even when the baseline fails. A baseline failure marks every candidate
// ERROR; an individual candidate's failure never affects its siblings.
func (o *Orchestrator) Run(ctx context.Context, ex executor.Executor, original string, candidates []string, cfg Config) *models.BenchmarkSummary {
	cfg.applyDefaults()
	start := time.Now()
	log := o.log.With().Str("query_id", cfg.QueryID).Logger()

	summary := &models.BenchmarkSummary{
		QueryID:   cfg.QueryID,
		BestIndex: -1,
	}

	if err := ex.Connect(ctx); err != nil {
		o.failBatch(summary, candidates, err)
		return o.finish(summary, cfg, start, log)
	}
	defer ex.Close()

	base, err := o.measureBaseline(ctx, ex, original, cfg, log)
	if err != nil {
		o.failBatch(summary, candidates, err)
		return o.finish(summary, cfg, start, log)
	}
	summary.BaselineMS = base.avgMS
	summary.BaselineRows = base.rowCount
	summary.BaselineChecksum = base.checksum

	for i, candidate := range candidates {
		res := o.runCandidate(ctx, ex, original, candidate, i, base, cfg, log)
		summary.CandidateResults = append(summary.CandidateResults, res)
		summary.NBenchmarked++
		o.metrics.CandidateOutcome(res.Passed)
		if res.Passed && res.Speedup > summary.BestSpeedup {
			summary.BestSpeedup = res.Speedup
			summary.BestIndex = i
		}
	}

	o.reconfirmWinner(ctx, ex, candidates, base, cfg, summary, log)
	o.capturePlans(ctx, ex, candidates, cfg, summary, log)

	for _, res := range summary.CandidateResults {
		if res.Passed {
			summary.NPassed++
		}
	}

	return o.finish(summary, cfg, start, log)
}

// finish records batch-level metrics and the closing log line. Every exit of
// Run funnels through here so failed batches stay visible to metrics.
func (o *Orchestrator) finish(summary *models.BenchmarkSummary, cfg Config, start time.Time, log zerolog.Logger) *models.BenchmarkSummary {
	elapsed := time.Since(start)
	o.metrics.BenchmarkDuration(elapsed.Seconds())
	o.metrics.QueryBenchmarked(string(o.bestClass(summary, cfg)))
	log.Info().
		Int("candidates", summary.NBenchmarked).
		Int("passed", summary.NPassed).
		Float64("best_speedup", summary.BestSpeedup).
		Int("best_index", summary.BestIndex).
		Dur("elapsed", elapsed).
		Msg("benchmark batch complete")
	return summary
}

func (o *Orchestrator) measureBaseline(ctx context.Context, ex executor.Executor, original string, cfg Config, log zerolog.Logger) (*baseline, error) {
	if cfg.KnownTimeout {
		log.Info().
			Float64("ceiling_ms", cfg.TimeoutSeconds*1000).
			Msg("known-timeout baseline; skipping baseline execution")
		return &baseline{avgMS: cfg.TimeoutSeconds * 1000}, nil
	}

	m, rows, err := o.bench.MeasureQuery(ctx, ex, original, cfg.BaselineRuns, cfg.PerStatementTimeout)
	if err != nil {
		return nil, errors.Wrap(err, errors.GetCode(err), "baseline execution failed")
	}
	base := &baseline{
		avgMS:    m.MeasuredMS,
		rowCount: rows.RowCount(),
		checksum: rows.Checksum(),
		captured: true,
	}
	log.Debug().
		Float64("baseline_ms", base.avgMS).
		Int64("rows", base.rowCount).
		Msg("baseline measured")
	return base, nil
}

// runCandidate benchmarks one candidate, fail-fast: correctness is decided on
// the first measured run, and a failure short-circuits the remaining runs.
func (o *Orchestrator) runCandidate(ctx context.Context, ex executor.Executor, original, candidate string, index int, base *baseline, cfg Config, log zerolog.Logger) models.CandidateResult {
	res := models.CandidateResult{Index: index, Class: models.ClassError}

	warmup, measured := bench.PlanRuns(cfg.CandidateRuns)
	if warmup {
		if _, err := ex.Execute(ctx, candidate, cfg.PerStatementTimeout); err != nil {
			return o.candidateError(res, err)
		}
	}

	// First measured run carries the correctness decision.
	elapsed, rows, err := o.timeOnce(ctx, ex, candidate, cfg.PerStatementTimeout)
	if err != nil {
		return o.candidateError(res, err)
	}
	res.AllTimes = append(res.AllTimes, elapsed)
	res.RowCount = rows.RowCount()
	res.Checksum = rows.Checksum()

	verdict := o.checkCorrectness(ctx, original, candidate, base, rows, log)
	if !verdict.passed {
		res.Error = verdict.message
		res.ErrorCode = errors.CodeCorrectness
		log.Debug().Int("candidate", index).Str("reason", verdict.message).Msg("candidate failed correctness")
		return res
	}
	res.CorrectnessVerified = verdict.verified

	for i := 1; i < measured; i++ {
		elapsed, _, err := o.timeOnce(ctx, ex, candidate, cfg.PerStatementTimeout)
		if err != nil {
			return o.candidateError(res, err)
		}
		res.AllTimes = append(res.AllTimes, elapsed)
	}

	res.Passed = true
	res.AvgMS = bench.Aggregate(res.AllTimes)
	res.Speedup = bench.Speedup(base.avgMS, res.AvgMS)
	res.Class = cfg.Classify(res.Speedup)
	return res
}

// correctnessVerdict separates "may keep timing" from "full-dataset proof".
// A zero-row candidate rescued by the sample checker passes with
// verified=false: a distinct confidence tier, never conflated with a
// checksum-verified pass.
type correctnessVerdict struct {
	passed   bool
	verified bool
	message  string
}

func (o *Orchestrator) checkCorrectness(ctx context.Context, original, candidate string, base *baseline, rows *executor.ResultSet, log zerolog.Logger) correctnessVerdict {
	if !base.captured {
		// Synthetic baseline has nothing to compare against. The sample
		// checker is the only available signal.
		if o.sample != nil {
			return o.sampleFallback(ctx, original, candidate, log)
		}
		return correctnessVerdict{passed: true}
	}

	if rows.RowCount() != base.rowCount {
		if rows.RowCount() == 0 && o.sample != nil {
			// Zero rows may mean "truncated by an earlier timeout", not
			// "wrong". Ask the cheap local sample before condemning it.
			return o.sampleFallback(ctx, original, candidate, log)
		}
		return correctnessVerdict{
			message: "row count mismatch: baseline returned " +
				itoa(base.rowCount) + " rows, candidate returned " + itoa(rows.RowCount()),
		}
	}

	if base.checksum != "" && rows.Checksum() != base.checksum {
		return correctnessVerdict{message: "results differ: checksum mismatch"}
	}
	return correctnessVerdict{passed: true, verified: true}
}

func (o *Orchestrator) sampleFallback(ctx context.Context, original, candidate string, log zerolog.Logger) correctnessVerdict {
	sampleRes, err := o.sample.Check(ctx, original, candidate)
	if err != nil {
		return correctnessVerdict{message: "sample check failed: " + err.Error()}
	}
	if !sampleRes.Equivalent {
		return correctnessVerdict{message: "sample check found differing results"}
	}
	log.Debug().Msg("candidate accepted via sample fallback")
	return correctnessVerdict{passed: true, verified: false}
}

// reconfirmWinner re-times the current best candidate at the deeper winner
// run count and re-verifies correctness against the fresh row capture. An
// already-accepted winner can still be demoted to FAIL here.
func (o *Orchestrator) reconfirmWinner(ctx context.Context, ex executor.Executor, candidates []string, base *baseline, cfg Config, summary *models.BenchmarkSummary, log zerolog.Logger) {
	if summary.BestIndex < 0 || cfg.WinnerRuns <= cfg.CandidateRuns {
		return
	}
	idx := summary.BestIndex
	res := &summary.CandidateResults[idx]

	m, rows, err := o.bench.MeasureQuery(ctx, ex, candidates[idx], cfg.WinnerRuns, cfg.PerStatementTimeout)
	if err != nil {
		res.Passed = false
		res.CorrectnessVerified = false
		res.Speedup = 0
		res.Error = "winner reconfirmation failed: " + err.Error()
		res.ErrorCode = errors.Classify(err)
		res.Class = models.ClassError
		o.recomputeBest(summary)
		return
	}

	if base.captured {
		if rows.RowCount() != base.rowCount || (base.checksum != "" && rows.Checksum() != base.checksum) {
			res.Passed = false
			res.CorrectnessVerified = false
			res.Speedup = 0
			res.Error = "winner reconfirmation found differing results"
			res.ErrorCode = errors.CodeCorrectness
			res.Class = models.ClassError
			log.Warn().Int("candidate", idx).Msg("winner demoted on reconfirmation")
			o.recomputeBest(summary)
			return
		}
	}

	res.AvgMS = m.MeasuredMS
	res.AllTimes = m.AllMS
	res.Speedup = bench.Speedup(base.avgMS, m.MeasuredMS)
	res.Class = cfg.Classify(res.Speedup)
	o.recomputeBest(summary)
	log.Debug().
		Int("candidate", idx).
		Float64("speedup", res.Speedup).
		Msg("winner reconfirmed")
}

func (o *Orchestrator) recomputeBest(summary *models.BenchmarkSummary) {
	summary.BestIndex = -1
	summary.BestSpeedup = 0
	for _, res := range summary.CandidateResults {
		if res.Passed && res.Speedup > summary.BestSpeedup {
			summary.BestSpeedup = res.Speedup
			summary.BestIndex = res.Index
		}
	}
}

// capturePlans captures the plan of every still-passing candidate on the
// same connection. Plans are user-facing diagnostics, never a gate.
func (o *Orchestrator) capturePlans(ctx context.Context, ex executor.Executor, candidates []string, cfg Config, summary *models.BenchmarkSummary, log zerolog.Logger) {
	if !cfg.CollectExplain {
		return
	}
	for i := range summary.CandidateResults {
		res := &summary.CandidateResults[i]
		if !res.Passed {
			continue
		}
		plan, err := ex.Explain(ctx, candidates[res.Index], false)
		if err != nil {
			log.Debug().Err(err).Int("candidate", res.Index).Msg("plan capture failed")
			continue
		}
		res.ExplainText = plan
	}
}

func (o *Orchestrator) timeOnce(ctx context.Context, ex executor.Executor, query string, timeout time.Duration) (float64, *executor.ResultSet, error) {
	start := time.Now()
	rows, err := ex.Execute(ctx, query, timeout)
	if err != nil {
		return 0, nil, err
	}
	return float64(time.Since(start).Microseconds()) / 1000.0, rows, nil
}

func (o *Orchestrator) candidateError(res models.CandidateResult, err error) models.CandidateResult {
	res.Passed = false
	res.Error = err.Error()
	res.ErrorCode = errors.Classify(err)
	res.Class = models.ClassError
	return res
}

// failBatch marks every candidate ERROR. No baseline means no speedup can be
// computed for anything.
func (o *Orchestrator) failBatch(summary *models.BenchmarkSummary, candidates []string, err error) {
	summary.Error = err.Error()
	for i := range candidates {
		summary.CandidateResults = append(summary.CandidateResults, models.CandidateResult{
			Index:     i,
			Error:     "baseline failed: " + err.Error(),
			ErrorCode: errors.Classify(err),
			Class:     models.ClassError,
		})
		summary.NBenchmarked++
	}
	o.log.Error().Err(err).Str("query_id", summary.QueryID).Msg("baseline failure is fatal for the batch")
}

func (o *Orchestrator) bestClass(summary *models.BenchmarkSummary, cfg Config) models.SpeedupClass {
	if summary.BestIndex < 0 {
		if summary.Error != "" {
			return models.ClassError
		}
		return models.ClassRegression
	}
	return summary.CandidateResults[summary.BestIndex].Class
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
