// Package models defines the data model shared across the benchmark engine.
package models

import "math"

// PairStatus is the verdict for a single original/candidate pair.
type PairStatus string

const (
	StatusPass  PairStatus = "PASS"
	StatusFail  PairStatus = "FAIL"
	StatusError PairStatus = "ERROR"
)

// SpeedupClass buckets a measured speedup into a closed set of outcomes.
type SpeedupClass string

const (
	ClassWin        SpeedupClass = "WIN"
	ClassImproved   SpeedupClass = "IMPROVED"
	ClassNeutral    SpeedupClass = "NEUTRAL"
	ClassRegression SpeedupClass = "REGRESSION"
	ClassError      SpeedupClass = "ERROR"
)

// Speedup classification thresholds.
const (
	WinThreshold      = 1.10
	ImprovedThreshold = 1.05
	NeutralThreshold  = 0.95
)

// ClassifySpeedup maps a speedup ratio onto its class.
// Speedup is original_ms / candidate_ms, so >1 means the candidate is faster.
func ClassifySpeedup(speedup float64) SpeedupClass {
	switch {
	case math.IsNaN(speedup) || math.IsInf(speedup, 0):
		return ClassError
	case speedup >= WinThreshold:
		return ClassWin
	case speedup >= ImprovedThreshold:
		return ClassImproved
	case speedup >= NeutralThreshold:
		return ClassNeutral
	default:
		return ClassRegression
	}
}

// TimingResult holds one query's measured cost. The warmup run is never part
// of the average.
type TimingResult struct {
	WarmupMS   float64   `json:"warmup_ms"`
	MeasuredMS float64   `json:"measured_ms"`
	AllMS      []float64 `json:"all_ms,omitempty"`
}

// CostResult is an advisory EXPLAIN-derived estimate. It never gates
// correctness; a failed estimate is +Inf.
type CostResult struct {
	EstimatedCost float64 `json:"estimated_cost"`
	ActualRows    int64   `json:"actual_rows,omitempty"`
}

// QueryExecutionResult is one execution's full observation. Rows are retained
// only long enough to compute a checksum.
type QueryExecutionResult struct {
	Timing   TimingResult `json:"timing"`
	Cost     *CostResult  `json:"cost,omitempty"`
	RowCount int64        `json:"row_count"`
	Checksum string       `json:"checksum,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ValueDifference is a single diagnostic mismatch between normalized rows.
type ValueDifference struct {
	RowIndex       int    `json:"row_index"`
	Column         string `json:"column"`
	OriginalValue  string `json:"original_value"`
	CandidateValue string `json:"candidate_value"`
}

// CandidateResult is one candidate's outcome inside a batch.
type CandidateResult struct {
	Index  int  `json:"index"`
	Passed bool `json:"passed"`

	Speedup  float64 `json:"speedup"`
	AvgMS    float64 `json:"avg_ms"`
	RowCount int64   `json:"row_count"`
	Checksum string  `json:"checksum,omitempty"`

	// CorrectnessVerified is false when the candidate passed only through the
	// reduced-sample fallback, a weaker confidence tier than a full-dataset
	// checksum match.
	CorrectnessVerified bool `json:"correctness_verified"`

	Error       string       `json:"error,omitempty"`
	ErrorCode   string       `json:"error_code,omitempty"`
	AllTimes    []float64    `json:"all_times,omitempty"`
	ExplainText string       `json:"explain_text,omitempty"`
	Class       SpeedupClass `json:"class"`
}

// BenchmarkSummary is one query's full batch outcome.
type BenchmarkSummary struct {
	QueryID          string            `json:"query_id"`
	BaselineMS       float64           `json:"baseline_ms"`
	BaselineRows     int64             `json:"baseline_rows"`
	BaselineChecksum string            `json:"baseline_checksum,omitempty"`
	NBenchmarked     int               `json:"n_benchmarked"`
	NPassed          int               `json:"n_passed"`
	BestSpeedup      float64           `json:"best_speedup"`
	BestIndex        int               `json:"best_index"` // -1 when no candidate passed
	CandidateResults []CandidateResult `json:"candidate_results"`
	Error            string            `json:"error,omitempty"`
}

// CrossCheckResult is the cross-engine pre-screen verdict.
type CrossCheckResult struct {
	Equivalent        bool   `json:"equivalent"`
	OriginalRows      int64  `json:"original_rows"`
	CandidateRows     int64  `json:"candidate_rows"`
	OriginalChecksum  string `json:"original_checksum,omitempty"`
	CandidateChecksum string `json:"candidate_checksum,omitempty"`
	Error             string `json:"error,omitempty"`
	Warning           string `json:"warning,omitempty"`
	UsedStripped      bool   `json:"used_stripped"`
}

// SampleCheckResult is the reduced-sample fallback verdict.
type SampleCheckResult struct {
	Equivalent          bool   `json:"equivalent"`
	OriginalSampleRows  int64  `json:"original_sample_rows"`
	CandidateSampleRows int64  `json:"candidate_sample_rows"`
	Error               string `json:"error,omitempty"`
}

// NormalizationResult is the outcome of SQL-text normalization. A parse
// failure is soft: SQL comes back unmodified with Error set.
type NormalizationResult struct {
	SQL                  string `json:"sql"`
	WasModified          bool   `json:"was_modified"`
	HadLimitWithoutOrder bool   `json:"had_limit_without_order"`
	StrategyApplied      string `json:"strategy_applied,omitempty"`
	Error                string `json:"error,omitempty"`
}

// ValidationResult is the single-pair façade outcome.
type ValidationResult struct {
	Status           PairStatus        `json:"status"`
	Speedup          float64           `json:"speedup"`
	CostReductionPct float64           `json:"cost_reduction_pct"`
	OriginalMS       float64           `json:"original_ms"`
	CandidateMS      float64           `json:"candidate_ms"`
	OriginalRows     int64             `json:"original_rows"`
	CandidateRows    int64             `json:"candidate_rows"`
	Differences      []ValueDifference `json:"differences,omitempty"`
	Error            string            `json:"error,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`

	// Normalization outcomes are reported only when a side was rewritten or
	// failed to parse.
	OriginalNormalization  *NormalizationResult `json:"original_normalization,omitempty"`
	CandidateNormalization *NormalizationResult `json:"candidate_normalization,omitempty"`
}
