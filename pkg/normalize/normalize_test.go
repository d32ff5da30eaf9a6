package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xwb1989/sqlparser"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected bool
	}{
		{"limit without order", "SELECT a FROM t LIMIT 10", true},
		{"limit with order", "SELECT a FROM t ORDER BY a LIMIT 10", false},
		{"no limit", "SELECT a FROM t", false},
		{"order only", "SELECT a FROM t ORDER BY a", false},
		{"limit offset without order", "SELECT a FROM t LIMIT 10 OFFSET 5", true},
		{"star with limit", "SELECT * FROM t LIMIT 3", true},
		{"unparseable", "SELEC a FRM t", false},
		{"insert", "INSERT INTO t VALUES (1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Detect(tt.sql))
		})
	}
}

func TestNormalize_AddOrder(t *testing.T) {
	res := Normalize("SELECT a, b FROM t LIMIT 10", StrategyAddOrder)
	require.NoError(t, res.Err)
	assert.True(t, res.WasModified)
	assert.True(t, res.HadLimitWithoutOrder)
	assert.Equal(t, StrategyAddOrder, res.StrategyApplied)

	// The result must re-parse as valid SQL and must contain an ORDER BY.
	stmt, err := sqlparser.Parse(res.SQL)
	require.NoError(t, err)
	sel, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.Len(t, sel.OrderBy, 2)
	assert.NotNil(t, sel.Limit)
	assert.False(t, Detect(res.SQL))
}

func TestNormalize_AddOrder_StarFallsBackToFirstColumn(t *testing.T) {
	res := Normalize("SELECT * FROM t LIMIT 3", StrategyAddOrder)
	require.NoError(t, res.Err)
	assert.True(t, res.WasModified)

	stmt, err := sqlparser.Parse(res.SQL)
	require.NoError(t, err)
	sel := stmt.(*sqlparser.Select)
	// Column count is unknown before execution, so only ORDER BY 1.
	require.Len(t, sel.OrderBy, 1)
}

func TestNormalize_RemoveLimit(t *testing.T) {
	res := Normalize("SELECT a FROM t LIMIT 10", StrategyRemoveLimit)
	require.NoError(t, res.Err)
	assert.True(t, res.WasModified)
	assert.False(t, strings.Contains(strings.ToLower(res.SQL), "limit"))

	_, err := sqlparser.Parse(res.SQL)
	require.NoError(t, err)
}

func TestNormalize_DeterministicInputUntouched(t *testing.T) {
	sql := "SELECT a FROM t ORDER BY a LIMIT 10"
	res := Normalize(sql, StrategyAddOrder)
	require.NoError(t, res.Err)
	assert.False(t, res.WasModified)
	assert.Equal(t, sql, res.SQL)
}

func TestNormalize_ParseFailureIsSoft(t *testing.T) {
	sql := "SELEC a FRM t LIMIT 5"
	res := Normalize(sql, StrategyAddOrder)
	assert.Error(t, res.Err)
	assert.Equal(t, sql, res.SQL)
	assert.False(t, res.WasModified)
}

func TestNormalizePair_AppliesSameStrategyToBothSides(t *testing.T) {
	// Only the candidate needs normalization; both sides must still get the
	// identical strategy.
	orig := "SELECT a FROM t ORDER BY a LIMIT 10"
	cand := "SELECT a FROM t LIMIT 10"

	origRes, candRes := NormalizePair(orig, cand, StrategyRemoveLimit)
	require.NoError(t, origRes.Err)
	require.NoError(t, candRes.Err)
	assert.True(t, origRes.WasModified)
	assert.True(t, candRes.WasModified)
	assert.False(t, strings.Contains(strings.ToLower(origRes.SQL), "limit"))
	assert.False(t, strings.Contains(strings.ToLower(candRes.SQL), "limit"))
}

func TestNormalizePair_AddOrderBothSides(t *testing.T) {
	orig := "SELECT a, b FROM t LIMIT 10"
	cand := "SELECT a, b FROM u LIMIT 10"

	origRes, candRes := NormalizePair(orig, cand, StrategyAddOrder)
	assert.True(t, origRes.WasModified)
	assert.True(t, candRes.WasModified)
	assert.False(t, Detect(origRes.SQL))
	assert.False(t, Detect(candRes.SQL))
}

func TestNormalizePair_NeitherNeedsIt(t *testing.T) {
	orig := "SELECT a FROM t"
	cand := "SELECT a FROM t WHERE a > 0"

	origRes, candRes := NormalizePair(orig, cand, StrategyAddOrder)
	assert.False(t, origRes.WasModified)
	assert.False(t, candRes.WasModified)
	assert.Equal(t, orig, origRes.SQL)
	assert.Equal(t, cand, candRes.SQL)
}

func TestResult_Model(t *testing.T) {
	res := Normalize("SELECT a FROM t LIMIT 10", StrategyAddOrder)
	m := res.Model()
	assert.Equal(t, res.SQL, m.SQL)
	assert.True(t, m.WasModified)
	assert.True(t, m.HadLimitWithoutOrder)
	assert.Equal(t, string(StrategyAddOrder), m.StrategyApplied)
	assert.Empty(t, m.Error)

	bad := Normalize("SELEC a FRM t", StrategyAddOrder)
	assert.NotEmpty(t, bad.Model().Error)
}
