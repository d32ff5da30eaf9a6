package equivalence

import (
	"sort"

	"github.com/TFMV/equibench/pkg/errors"
	"github.com/TFMV/equibench/pkg/models"
)

// Comparison defaults.
const (
	DefaultTolerance = 1e-9
	DefaultMaxDiffs  = 10
)

// CompareRowCounts is the necessary precondition for any value-level
// comparison: exact equality, always checked first.
func CompareRowCounts(a, b int64) bool {
	return a == b
}

// CompareValues diagnoses where two row sets differ. It is only worth calling
// once checksums disagree; it requires equal row counts. Both sides are
// sorted by canonical tuple so the comparison is order-independent, then
// compared column-by-column over the union of column names with float
// tolerance. Absent columns are treated as NULL, never an error. Collection
// stops at maxDiffs.
func CompareValues(origCols []string, origRows [][]Value, candCols []string, candRows [][]Value, tolerance float64, maxDiffs int) ([]models.ValueDifference, error) {
	if len(origRows) != len(candRows) {
		return nil, errors.New(errors.CodeCorrectness, "row counts differ; value comparison requires equal counts")
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if maxDiffs <= 0 {
		maxDiffs = DefaultMaxDiffs
	}

	columns := unionColumns(origCols, candCols)
	origSorted := sortRows(origCols, origRows)
	candSorted := sortRows(candCols, candRows)

	origIdx := indexColumns(origCols)
	candIdx := indexColumns(candCols)

	var diffs []models.ValueDifference
	for i := range origSorted {
		for _, col := range columns {
			ov := cellAt(origSorted[i], origIdx, col)
			cv := cellAt(candSorted[i], candIdx, col)
			if ValuesEqual(ov, cv, tolerance) {
				continue
			}
			diffs = append(diffs, models.ValueDifference{
				RowIndex:       i,
				Column:         col,
				OriginalValue:  Canon(ov),
				CandidateValue: Canon(cv),
			})
			if len(diffs) >= maxDiffs {
				return diffs, nil
			}
		}
	}
	return diffs, nil
}

// sortRows orders rows by their canonical tuple without mutating the input.
func sortRows(columns []string, rows [][]Value) [][]Value {
	keys := make([]string, len(rows))
	order := columnOrder(columns)
	for i, row := range rows {
		cells := make([]string, len(order))
		for j, colIdx := range order {
			if colIdx < len(row) {
				cells[j] = Canon(row[colIdx])
			} else {
				cells[j] = Canon(Null{})
			}
		}
		keys[i] = join(cells)
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	sorted := make([][]Value, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	return sorted
}

func join(cells []string) string {
	out := ""
	for i, c := range cells {
		if i > 0 {
			out += cellSep
		}
		out += c
	}
	return out
}

func unionColumns(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, col := range a {
		if _, ok := seen[col]; !ok {
			seen[col] = struct{}{}
			out = append(out, col)
		}
	}
	for _, col := range b {
		if _, ok := seen[col]; !ok {
			seen[col] = struct{}{}
			out = append(out, col)
		}
	}
	sort.Strings(out)
	return out
}

func indexColumns(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, col := range columns {
		idx[col] = i
	}
	return idx
}

func cellAt(row []Value, idx map[string]int, col string) Value {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return Null{}
	}
	return row[i]
}
