// Package executor defines the minimal database execution capability the
// benchmark engine consumes. The engine depends only on this surface, never
// on a concrete driver.
package executor

import (
	"context"
	"time"

	"github.com/TFMV/equibench/pkg/equivalence"
)

// Family distinguishes the two engine families the core is polymorphic over.
type Family int

const (
	// FamilyOracle is a fast local engine used for pre-screening and
	// sample checks.
	FamilyOracle Family = iota
	// FamilyProduction is the authoritative engine speedups are measured on.
	FamilyProduction
)

// String returns the string representation of the family.
func (f Family) String() string {
	switch f {
	case FamilyOracle:
		return "oracle"
	case FamilyProduction:
		return "production"
	default:
		return "unknown"
	}
}

// ResultSet is one execution's materialized rows as typed values.
type ResultSet struct {
	Columns []string
	Rows    [][]equivalence.Value
}

// RowCount returns the number of rows.
func (rs *ResultSet) RowCount() int64 {
	if rs == nil {
		return 0
	}
	return int64(len(rs.Rows))
}

// Checksum returns the order-independent checksum of the result set.
func (rs *ResultSet) Checksum() string {
	if rs == nil {
		return equivalence.EmptyChecksum
	}
	return equivalence.Checksum(rs.Columns, rs.Rows)
}

// Executor is the capability surface consumed by the benchmark core.
//
// Implementations hold at most one live connection per Connect call; the
// orchestrator's connection budget depends on that discipline.
type Executor interface {
	// Connect acquires the executor's single connection.
	Connect(ctx context.Context) error
	// Close releases the connection and any underlying pool.
	Close() error
	// Execute runs a statement and materializes its rows. A zero timeout
	// means no per-statement deadline. Timeouts come back classified, not
	// as hangs.
	Execute(ctx context.Context, query string, timeout time.Duration) (*ResultSet, error)
	// Explain captures the engine's plan text for a statement.
	Explain(ctx context.Context, query string, analyze bool) (string, error)
	// Dialect identifies the SQL dialect the executor speaks.
	Dialect() string
	// Family identifies the engine family.
	Family() Family
}
