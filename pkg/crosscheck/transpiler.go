// Package crosscheck pre-screens candidate rewrites against a fast local
// oracle engine when the production engine speaks a different dialect, so
// structurally wrong candidates never burn production executions.
package crosscheck

import (
	"strconv"

	"github.com/xwb1989/sqlparser"

	"github.com/TFMV/equibench/pkg/errors"
)

// Transpiler converts SQL text between dialects. Implementations are
// best-effort: the checker fails open on any transpile error.
type Transpiler interface {
	Transpile(sql, fromDialect, toDialect string) (string, error)
}

// ParserTranspiler transpiles by round-tripping through a SQL AST, which
// normalizes quoting and expression syntax to forms the oracle accepts. It
// covers the common dialect surface; engine-specific functions pass through
// untouched and surface as oracle execution errors, which the checker treats
// as fail-open.
type ParserTranspiler struct{}

// NewParserTranspiler creates a ParserTranspiler.
func NewParserTranspiler() *ParserTranspiler {
	return &ParserTranspiler{}
}

// Transpile parses and re-serializes the statement.
func (t *ParserTranspiler) Transpile(sql, fromDialect, toDialect string) (string, error) {
	if fromDialect == toDialect {
		return sql, nil
	}
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeSyntax, "cannot transpile %s to %s", fromDialect, toDialect)
	}
	return sqlparser.String(stmt), nil
}

// StripForSeedData rewrites a statement for the stripped second pass: every
// column-vs-literal WHERE/HAVING predicate is removed (column-vs-column joins
// and anything containing a subquery are preserved, since those may hide join
// semantics), ORDER BY is dropped, and LIMIT is capped.
func StripForSeedData(sql string, limitCap int) (string, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeSyntax, "cannot strip predicates")
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		stripSelect(s, limitCap)
	case *sqlparser.Union:
		stripUnionSide(s.Left, limitCap)
		stripUnionSide(s.Right, limitCap)
		s.OrderBy = nil
		s.Limit = capLimit(s.Limit, limitCap)
	default:
		return sql, nil
	}
	return sqlparser.String(stmt), nil
}

func stripUnionSide(stmt sqlparser.SelectStatement, limitCap int) {
	if sel, ok := stmt.(*sqlparser.Select); ok {
		stripSelect(sel, limitCap)
	}
}

func stripSelect(sel *sqlparser.Select, limitCap int) {
	if sel.Where != nil {
		if expr := stripLiteralPredicates(sel.Where.Expr); expr != nil {
			sel.Where.Expr = expr
		} else {
			sel.Where = nil
		}
	}
	if sel.Having != nil {
		if expr := stripLiteralPredicates(sel.Having.Expr); expr != nil {
			sel.Having.Expr = expr
		} else {
			sel.Having = nil
		}
	}
	sel.OrderBy = nil
	sel.Limit = capLimit(sel.Limit, limitCap)
}

// stripLiteralPredicates removes column-vs-literal comparisons from a boolean
// expression tree. Returning nil means the whole expression was stripped.
func stripLiteralPredicates(expr sqlparser.Expr) sqlparser.Expr {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		left := stripLiteralPredicates(e.Left)
		right := stripLiteralPredicates(e.Right)
		return combine(left, right, func(l, r sqlparser.Expr) sqlparser.Expr {
			return &sqlparser.AndExpr{Left: l, Right: r}
		})
	case *sqlparser.OrExpr:
		left := stripLiteralPredicates(e.Left)
		right := stripLiteralPredicates(e.Right)
		return combine(left, right, func(l, r sqlparser.Expr) sqlparser.Expr {
			return &sqlparser.OrExpr{Left: l, Right: r}
		})
	case *sqlparser.ParenExpr:
		inner := stripLiteralPredicates(e.Expr)
		if inner == nil {
			return nil
		}
		return &sqlparser.ParenExpr{Expr: inner}
	case *sqlparser.ComparisonExpr:
		if containsSubquery(e) {
			return e
		}
		if isColumnVsLiteral(e.Left, e.Right) {
			return nil
		}
		return e
	case *sqlparser.RangeCond:
		if containsSubquery(e) {
			return e
		}
		if isColumn(e.Left) && isLiteral(e.From) && isLiteral(e.To) {
			return nil
		}
		return e
	case *sqlparser.IsExpr:
		if isColumn(e.Expr) {
			return nil
		}
		return e
	default:
		return expr
	}
}

func combine(left, right sqlparser.Expr, join func(l, r sqlparser.Expr) sqlparser.Expr) sqlparser.Expr {
	switch {
	case left == nil && right == nil:
		return nil
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return join(left, right)
	}
}

func isColumnVsLiteral(left, right sqlparser.Expr) bool {
	return (isColumn(left) && isLiteral(right)) || (isLiteral(left) && isColumn(right))
}

func isColumn(expr sqlparser.Expr) bool {
	_, ok := expr.(*sqlparser.ColName)
	return ok
}

func isLiteral(expr sqlparser.Expr) bool {
	switch e := expr.(type) {
	case *sqlparser.SQLVal, *sqlparser.NullVal, sqlparser.BoolVal:
		return true
	case sqlparser.ValTuple:
		for _, elem := range e {
			if !isLiteral(elem) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func containsSubquery(node sqlparser.SQLNode) bool {
	found := false
	_ = sqlparser.Walk(func(n sqlparser.SQLNode) (bool, error) {
		if _, ok := n.(*sqlparser.Subquery); ok {
			found = true
			return false, nil
		}
		return true, nil
	}, node)
	return found
}

// capLimit bounds the row count while leaving any OFFSET in place.
func capLimit(limit *sqlparser.Limit, cap int) *sqlparser.Limit {
	if cap <= 0 {
		return limit
	}
	rowcount := sqlparser.NewIntVal([]byte(strconv.Itoa(cap)))
	if limit == nil {
		return &sqlparser.Limit{Rowcount: rowcount}
	}
	if val, ok := limit.Rowcount.(*sqlparser.SQLVal); ok && val.Type == sqlparser.IntVal {
		if n, err := strconv.Atoi(string(val.Val)); err == nil && n <= cap {
			return limit
		}
	}
	return &sqlparser.Limit{Offset: limit.Offset, Rowcount: rowcount}
}
