// Package normalize fixes LIMIT-without-ORDER-BY nondeterminism in SQL text
// before execution. A LIMIT with no ORDER BY can return a different row
// subset on every execution, which breaks equivalence comparison even for a
// correct rewrite.
package normalize

import (
	"strconv"

	"github.com/xwb1989/sqlparser"

	"github.com/TFMV/equibench/pkg/models"
)

// Strategy selects how a nondeterministic LIMIT is repaired.
type Strategy string

const (
	// StrategyAddOrder injects an ORDER BY over all output columns by
	// positional index. For SELECT * the column count is unknown before
	// execution, so it falls back to ORDER BY 1 only.
	StrategyAddOrder Strategy = "ADD_ORDER"
	// StrategyRemoveLimit strips the LIMIT so full result sets are compared.
	StrategyRemoveLimit Strategy = "REMOVE_LIMIT"
)

// Result is the outcome of one normalization. A parse failure is soft: SQL
// comes back unmodified with Err set and the caller proceeds unnormalized.
type Result struct {
	SQL                  string
	WasModified          bool
	HadLimitWithoutOrder bool
	StrategyApplied      Strategy
	Err                  error
}

// Model converts the result to its shared reporting form.
func (r Result) Model() models.NormalizationResult {
	out := models.NormalizationResult{
		SQL:                  r.SQL,
		WasModified:          r.WasModified,
		HadLimitWithoutOrder: r.HadLimitWithoutOrder,
		StrategyApplied:      string(r.StrategyApplied),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// Detect reports whether the parsed statement has a LIMIT and no ORDER BY.
// Unparseable or non-SELECT statements report false.
func Detect(sql string) bool {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return false
	}
	limit, orderBy, _ := limitAndOrder(stmt)
	return limit != nil && len(orderBy) == 0
}

// Normalize repairs a nondeterministic LIMIT using the given strategy.
func Normalize(sql string, strategy Strategy) Result {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return Result{SQL: sql, Err: err}
	}

	limit, orderBy, sel := limitAndOrder(stmt)
	if limit == nil || len(orderBy) > 0 {
		return Result{SQL: sql}
	}

	switch strategy {
	case StrategyRemoveLimit:
		setLimit(stmt, nil)
	case StrategyAddOrder:
		setOrderBy(stmt, positionalOrderBy(outputColumns(sel)))
	default:
		return Result{SQL: sql, HadLimitWithoutOrder: true}
	}

	return Result{
		SQL:                  sqlparser.String(stmt),
		WasModified:          true,
		HadLimitWithoutOrder: true,
		StrategyApplied:      strategy,
	}
}

// NormalizePair applies the same strategy to both sides whenever either side
// needs it. Asymmetric treatment would make the comparison meaningless.
func NormalizePair(original, candidate string, strategy Strategy) (Result, Result) {
	origNeeds := Detect(original)
	candNeeds := Detect(candidate)
	if !origNeeds && !candNeeds {
		return Result{SQL: original}, Result{SQL: candidate}
	}
	return forceNormalize(original, strategy), forceNormalize(candidate, strategy)
}

// forceNormalize applies the strategy even to a side that is deterministic on
// its own, so both sides of a pair end up shaped identically.
func forceNormalize(sql string, strategy Strategy) Result {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return Result{SQL: sql, Err: err}
	}

	limit, orderBy, sel := limitAndOrder(stmt)
	hadLimitNoOrder := limit != nil && len(orderBy) == 0

	switch strategy {
	case StrategyRemoveLimit:
		if limit == nil {
			return Result{SQL: sql, HadLimitWithoutOrder: hadLimitNoOrder}
		}
		setLimit(stmt, nil)
	case StrategyAddOrder:
		if len(orderBy) > 0 {
			return Result{SQL: sql}
		}
		setOrderBy(stmt, positionalOrderBy(outputColumns(sel)))
	default:
		return Result{SQL: sql, HadLimitWithoutOrder: hadLimitNoOrder}
	}

	return Result{
		SQL:                  sqlparser.String(stmt),
		WasModified:          true,
		HadLimitWithoutOrder: hadLimitNoOrder,
		StrategyApplied:      strategy,
	}
}

// limitAndOrder extracts the LIMIT and ORDER BY of the outermost statement.
// The enclosed *Select is returned when the statement is a plain SELECT;
// unions report a zero column count and take the ORDER BY 1 fallback.
func limitAndOrder(stmt sqlparser.Statement) (*sqlparser.Limit, sqlparser.OrderBy, *sqlparser.Select) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return s.Limit, s.OrderBy, s
	case *sqlparser.Union:
		return s.Limit, s.OrderBy, nil
	default:
		return nil, nil, nil
	}
}

func setLimit(stmt sqlparser.Statement, limit *sqlparser.Limit) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		s.Limit = limit
	case *sqlparser.Union:
		s.Limit = limit
	}
}

func setOrderBy(stmt sqlparser.Statement, orderBy sqlparser.OrderBy) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		s.OrderBy = orderBy
	case *sqlparser.Union:
		s.OrderBy = orderBy
	}
}

// outputColumns counts the statement's output columns, or 0 when the count
// is unknowable before execution (SELECT *, unions).
func outputColumns(sel *sqlparser.Select) int {
	if sel == nil {
		return 0
	}
	for _, expr := range sel.SelectExprs {
		if _, ok := expr.(*sqlparser.StarExpr); ok {
			return 0
		}
	}
	return len(sel.SelectExprs)
}

// positionalOrderBy builds ORDER BY 1..n, or ORDER BY 1 when the column
// count is unknown.
func positionalOrderBy(n int) sqlparser.OrderBy {
	if n < 1 {
		n = 1
	}
	orderBy := make(sqlparser.OrderBy, n)
	for i := 0; i < n; i++ {
		orderBy[i] = &sqlparser.Order{
			Expr:      sqlparser.NewIntVal([]byte(strconv.Itoa(i + 1))),
			Direction: sqlparser.AscScr,
		}
	}
	return orderBy
}
