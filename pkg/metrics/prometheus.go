package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector using Prometheus.
type PrometheusCollector struct {
	queriesBenchmarked *prometheus.CounterVec
	candidateOutcomes  *prometheus.CounterVec
	benchmarkDuration  prometheus.Histogram
	crossCheckOutcomes *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector registered on the given
// registerer. Pass prometheus.DefaultRegisterer for the process default.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		queriesBenchmarked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "equibench_queries_benchmarked_total",
			Help: "Completed benchmark batches by best-candidate class.",
		}, []string{"class"}),
		candidateOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "equibench_candidates_total",
			Help: "Candidate verdicts by pass/fail.",
		}, []string{"passed"}),
		benchmarkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "equibench_benchmark_duration_seconds",
			Help:    "Wall-clock duration of full benchmark batches.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		crossCheckOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "equibench_crosscheck_total",
			Help: "Cross-engine pre-screen verdicts.",
		}, []string{"equivalent", "stripped"}),
	}
	reg.MustRegister(
		c.queriesBenchmarked,
		c.candidateOutcomes,
		c.benchmarkDuration,
		c.crossCheckOutcomes,
	)
	return c
}

// QueryBenchmarked records a completed batch.
func (c *PrometheusCollector) QueryBenchmarked(class string) {
	c.queriesBenchmarked.WithLabelValues(class).Inc()
}

// CandidateOutcome records a candidate verdict.
func (c *PrometheusCollector) CandidateOutcome(passed bool) {
	c.candidateOutcomes.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

// BenchmarkDuration records a batch duration.
func (c *PrometheusCollector) BenchmarkDuration(seconds float64) {
	c.benchmarkDuration.Observe(seconds)
}

// CrossCheckOutcome records a pre-screen verdict.
func (c *PrometheusCollector) CrossCheckOutcome(equivalent, usedStripped bool) {
	c.crossCheckOutcomes.WithLabelValues(
		strconv.FormatBool(equivalent),
		strconv.FormatBool(usedStripped),
	).Inc()
}
