package models

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// The summary JSON is consumed by external tooling, so its shape is pinned
// with a golden file: field renames and omitempty changes must be deliberate.
func TestBenchmarkSummaryJSON(t *testing.T) {
	summary := BenchmarkSummary{
		QueryID:          "q-1",
		BaselineMS:       120.5,
		BaselineRows:     500,
		BaselineChecksum: "3d2172418ce305c7d16d4b05597c6a59",
		NBenchmarked:     2,
		NPassed:          1,
		BestSpeedup:      2.5,
		BestIndex:        0,
		CandidateResults: []CandidateResult{
			{
				Index:               0,
				Passed:              true,
				Speedup:             2.5,
				AvgMS:               48.2,
				RowCount:            500,
				Checksum:            "3d2172418ce305c7d16d4b05597c6a59",
				CorrectnessVerified: true,
				AllTimes:            []float64{50, 48.2, 46.4},
				Class:               ClassWin,
			},
			{
				Index:     1,
				Passed:    false,
				RowCount:  500,
				Error:     "results differ: checksum mismatch",
				ErrorCode: "CORRECTNESS_FAILED",
				Class:     ClassError,
			},
		},
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "benchmark_summary", data)
}
