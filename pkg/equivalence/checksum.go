package equivalence

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// EmptyChecksum is the checksum of every empty row set, independent of
// schema. Two empty results are trivially equal.
const EmptyChecksum = "d41d8cd98f00b204e9800998ecf8427e"

// Tuple separators. Unit/record separators keep adjacent cells from
// colliding under concatenation.
const (
	cellSep = "\x1f"
	rowSep  = "\x1e"
)

// canonicalTuples builds one canonical tuple per row over a lexicographically
// fixed column order, then sorts the tuples. The result is independent of
// both row order and the column order the engine happened to return.
func canonicalTuples(columns []string, rows [][]Value) []string {
	order := columnOrder(columns)

	tuples := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(order))
		for j, colIdx := range order {
			if colIdx < len(row) {
				cells[j] = Canon(row[colIdx])
			} else {
				// Absent cell is indistinguishable from NULL.
				cells[j] = Canon(Null{})
			}
		}
		tuples[i] = strings.Join(cells, cellSep)
	}
	sort.Strings(tuples)
	return tuples
}

// columnOrder returns row indices sorted by column name.
func columnOrder(columns []string) []int {
	order := make([]int, len(columns))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return columns[order[a]] < columns[order[b]]
	})
	return order
}

// Checksum computes a stable 128-bit digest over normalized, canonically
// sorted row tuples. Permutations of the same row set always hash equal.
func Checksum(columns []string, rows [][]Value) string {
	if len(rows) == 0 {
		return EmptyChecksum
	}
	tuples := canonicalTuples(columns, rows)

	h := md5.New()
	for i, t := range tuples {
		if i > 0 {
			h.Write([]byte(rowSep))
		}
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}
