// Package metrics provides metrics collection for the benchmark engine.
package metrics

// Collector records benchmark engine metrics. The orchestrator and checkers
// call it on every outcome; the default is a no-op.
type Collector interface {
	// QueryBenchmarked records a completed batch with its best class.
	QueryBenchmarked(class string)
	// CandidateOutcome records a single candidate verdict.
	CandidateOutcome(passed bool)
	// BenchmarkDuration records a full batch's wall-clock seconds.
	BenchmarkDuration(seconds float64)
	// CrossCheckOutcome records a cross-engine pre-screen verdict.
	CrossCheckOutcome(equivalent, usedStripped bool)
}

// NoOpCollector is a no-op implementation of Collector.
type NoOpCollector struct{}

// NewNoOpCollector creates a new no-op collector.
func NewNoOpCollector() Collector {
	return &NoOpCollector{}
}

// QueryBenchmarked does nothing.
func (n *NoOpCollector) QueryBenchmarked(class string) {}

// CandidateOutcome does nothing.
func (n *NoOpCollector) CandidateOutcome(passed bool) {}

// BenchmarkDuration does nothing.
func (n *NoOpCollector) BenchmarkDuration(seconds float64) {}

// CrossCheckOutcome does nothing.
func (n *NoOpCollector) CrossCheckOutcome(equivalent, usedStripped bool) {}
