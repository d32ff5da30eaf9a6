package bench

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TFMV/equibench/pkg/equivalence"
	"github.com/TFMV/equibench/pkg/executor"
)

func TestPlanRuns(t *testing.T) {
	tests := []struct {
		runs         int
		wantWarmup   bool
		wantMeasured int
	}{
		{0, false, 1},
		{1, false, 1},
		{2, false, 2},
		{3, true, 2},
		{4, true, 3},
		{5, false, 5},
		{9, false, 9},
	}

	for _, tt := range tests {
		warmup, measured := PlanRuns(tt.runs)
		assert.Equal(t, tt.wantWarmup, warmup, "runs=%d", tt.runs)
		assert.Equal(t, tt.wantMeasured, measured, "runs=%d", tt.runs)
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 10.0, Mean([]float64{10}))
	assert.Equal(t, 20.0, Mean([]float64{10, 20, 30}))
}

func TestTrimmedMean(t *testing.T) {
	// Drops the single fastest and slowest; averages the remainder.
	assert.Equal(t, 20.0, TrimmedMean([]float64{5, 10, 20, 30, 100}))
	// An outlier no longer skews the result.
	assert.Equal(t, 10.0, TrimmedMean([]float64{9, 10, 11, 500, 8}))
	// Too small to trim falls back to plain mean.
	assert.Equal(t, 15.0, TrimmedMean([]float64{10, 20}))
}

func TestAggregate(t *testing.T) {
	// Deep samples use the trimmed mean.
	assert.Equal(t, 20.0, Aggregate([]float64{5, 10, 20, 30, 100}))
	// Shallow samples use the plain mean.
	assert.Equal(t, 20.0, Aggregate([]float64{10, 30}))
}

func TestSpeedup(t *testing.T) {
	assert.Equal(t, 2.0, Speedup(100, 50))
	assert.Equal(t, 0.5, Speedup(50, 100))
	assert.Equal(t, 0.0, Speedup(100, 0))
}

func TestParsePlanCost(t *testing.T) {
	tests := []struct {
		name     string
		plan     string
		wantCost float64
		wantRows int64
	}{
		{
			name:     "postgres style cost range",
			plan:     "Seq Scan on events (cost=0.00..431.40 rows=10 width=4)",
			wantCost: 431.40,
			wantRows: 10,
		},
		{
			name:     "duckdb style row estimate",
			plan:     "SEQ_SCAN\n~120 Rows",
			wantCost: 120,
			wantRows: 120,
		},
		{
			name:     "empty plan",
			plan:     "",
			wantCost: math.Inf(1),
		},
		{
			name:     "no numbers",
			plan:     "PROJECTION\nFILTER",
			wantCost: math.Inf(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePlanCost(tt.plan)
			if math.IsInf(tt.wantCost, 1) {
				assert.True(t, math.IsInf(got.EstimatedCost, 1))
			} else {
				assert.InDelta(t, tt.wantCost, got.EstimatedCost, 1e-9)
			}
			assert.Equal(t, tt.wantRows, got.ActualRows)
		})
	}
}

func TestPairMeasurement_Executions(t *testing.T) {
	pair := &PairMeasurement{
		Original:  &Measurement{WarmupMS: 12, MeasuredMS: 100, AllMS: []float64{100, 100}},
		Candidate: &Measurement{MeasuredMS: 50, AllMS: []float64{50}},
		OriginalRows: &executor.ResultSet{
			Columns: []string{"a"},
			Rows:    [][]equivalence.Value{{equivalence.Int(1)}, {equivalence.Int(2)}},
		},
		CandidateRows: &executor.ResultSet{
			Columns: []string{"a"},
			Rows:    [][]equivalence.Value{{equivalence.Int(1)}, {equivalence.Int(2)}},
		},
	}

	orig, cand := pair.Executions()
	assert.Equal(t, 100.0, orig.Timing.MeasuredMS)
	assert.Equal(t, 12.0, orig.Timing.WarmupMS)
	assert.Equal(t, 50.0, cand.Timing.MeasuredMS)
	assert.Equal(t, int64(2), orig.RowCount)
	assert.Equal(t, orig.Checksum, cand.Checksum)
	assert.NotEmpty(t, orig.Checksum)
}
