package crosscheck

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/equibench/pkg/equivalence"
	"github.com/TFMV/equibench/pkg/executor"
)

// fakeOracle scripts oracle behavior per statement.
type fakeOracle struct {
	exec  func(sql string) (*executor.ResultSet, error)
	calls []string
}

func (f *fakeOracle) Connect(ctx context.Context) error { return nil }
func (f *fakeOracle) Close() error                      { return nil }
func (f *fakeOracle) Dialect() string                   { return "duckdb" }
func (f *fakeOracle) Family() executor.Family           { return executor.FamilyOracle }

func (f *fakeOracle) Execute(ctx context.Context, sql string, timeout time.Duration) (*executor.ResultSet, error) {
	f.calls = append(f.calls, sql)
	return f.exec(sql)
}

func (f *fakeOracle) Explain(ctx context.Context, sql string, analyze bool) (string, error) {
	return "", nil
}

func rowsOf(n int, offset int64) *executor.ResultSet {
	rs := &executor.ResultSet{Columns: []string{"a"}}
	for i := 0; i < n; i++ {
		rs.Rows = append(rs.Rows, []equivalence.Value{equivalence.Int(offset + int64(i))})
	}
	return rs
}

func isSchemaQuery(sql string) bool {
	return strings.Contains(sql, "information_schema")
}

func newTestChecker(oracle *fakeOracle) *Checker {
	return New(oracle, nil, Config{
		SourceDialect:   "duckdb", // same dialect: transpile passes through
		PerQueryTimeout: 2 * time.Second,
		StripLimitCap:   1000,
	}, zerolog.Nop(), nil)
}

func TestChecker_ExactMatch(t *testing.T) {
	oracle := &fakeOracle{exec: func(sql string) (*executor.ResultSet, error) {
		if isSchemaQuery(sql) {
			return &executor.ResultSet{}, nil
		}
		return rowsOf(5, 0), nil
	}}

	res := newTestChecker(oracle).Check(context.Background(), "SELECT a FROM t", "SELECT a FROM t2")
	assert.True(t, res.Equivalent)
	assert.False(t, res.UsedStripped)
	assert.Empty(t, res.Warning)
	assert.Equal(t, int64(5), res.OriginalRows)
	assert.Equal(t, int64(5), res.CandidateRows)
}

func TestChecker_ExactRowCountMismatchIsHardFailure(t *testing.T) {
	oracle := &fakeOracle{exec: func(sql string) (*executor.ResultSet, error) {
		switch {
		case isSchemaQuery(sql):
			return &executor.ResultSet{}, nil
		case strings.Contains(sql, "t2"):
			return rowsOf(3, 0), nil
		default:
			return rowsOf(5, 0), nil
		}
	}}

	res := newTestChecker(oracle).Check(context.Background(), "SELECT a FROM t", "SELECT a FROM t2")
	assert.False(t, res.Equivalent)
	assert.NotEmpty(t, res.Error)
}

func TestChecker_ZeroRowOriginalTriggersStrippedRetry(t *testing.T) {
	// Scenario: original returns 0 rows unstripped (seed data misses the
	// literal filter); stripped retry returns 120 rows on both sides with
	// differing checksums. Verdict: equivalent, non-blocking warning only.
	oracle := &fakeOracle{exec: func(sql string) (*executor.ResultSet, error) {
		lower := strings.ToLower(sql)
		switch {
		case isSchemaQuery(sql):
			return &executor.ResultSet{}, nil
		case strings.Contains(lower, "where"):
			// Unstripped pass: the literal filter matches nothing.
			return rowsOf(0, 0), nil
		case strings.Contains(lower, "t2"):
			// Stripped candidate: same count, different values.
			return rowsOf(120, 5000), nil
		default:
			// Stripped original.
			return rowsOf(120, 0), nil
		}
	}}

	res := newTestChecker(oracle).Check(context.Background(),
		"SELECT a FROM t WHERE a = 99",
		"SELECT a FROM t2 WHERE a = 99")

	assert.True(t, res.Equivalent)
	assert.True(t, res.UsedStripped)
	assert.Equal(t, int64(120), res.OriginalRows)
	assert.Equal(t, int64(120), res.CandidateRows)
	assert.NotEqual(t, res.OriginalChecksum, res.CandidateChecksum)
	assert.NotEmpty(t, res.Warning)
	assert.Empty(t, res.Error)
}

func TestChecker_StrippedRowCountMismatchIsWarningOnly(t *testing.T) {
	oracle := &fakeOracle{exec: func(sql string) (*executor.ResultSet, error) {
		lower := strings.ToLower(sql)
		switch {
		case isSchemaQuery(sql):
			return &executor.ResultSet{}, nil
		case strings.Contains(lower, "where"):
			return rowsOf(0, 0), nil
		case strings.Contains(lower, "t2"):
			return rowsOf(80, 0), nil
		default:
			return rowsOf(120, 0), nil
		}
	}}

	res := newTestChecker(oracle).Check(context.Background(),
		"SELECT a FROM t WHERE a = 99",
		"SELECT a FROM t2 WHERE a = 99")

	assert.True(t, res.Equivalent)
	assert.True(t, res.UsedStripped)
	assert.NotEmpty(t, res.Warning)
	assert.Empty(t, res.Error)
}

func TestChecker_ExecutionErrorFailsOpen(t *testing.T) {
	oracle := &fakeOracle{exec: func(sql string) (*executor.ResultSet, error) {
		if isSchemaQuery(sql) {
			return &executor.ResultSet{}, nil
		}
		return nil, fmt.Errorf("catalog does not exist")
	}}

	res := newTestChecker(oracle).Check(context.Background(), "SELECT a FROM t", "SELECT a FROM t2")
	assert.True(t, res.Equivalent, "checker failures must never block the pipeline")
	assert.NotEmpty(t, res.Error)
}

func TestChecker_TimeoutFailsOpenAndAbandons(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	oracle := &fakeOracle{exec: func(sql string) (*executor.ResultSet, error) {
		if isSchemaQuery(sql) {
			return &executor.ResultSet{}, nil
		}
		<-block
		return rowsOf(1, 0), nil
	}}

	checker := New(oracle, nil, Config{
		SourceDialect:   "duckdb",
		PerQueryTimeout: 50 * time.Millisecond,
		StripLimitCap:   1000,
	}, zerolog.Nop(), nil)

	start := time.Now()
	res := checker.Check(context.Background(), "SELECT a FROM t", "SELECT a FROM t2")
	require.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.Equivalent)
	assert.NotEmpty(t, res.Error)
}
