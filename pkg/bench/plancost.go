package bench

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/TFMV/equibench/pkg/models"
)

var (
	costRe      = regexp.MustCompile(`cost=([0-9]+(?:\.[0-9]+)?)(?:\.\.([0-9]+(?:\.[0-9]+)?))?`)
	rowsEqRe    = regexp.MustCompile(`rows=([0-9]+)`)
	tildeRowsRe = regexp.MustCompile(`~?([0-9]+)\s+[Rr]ows`)
)

// ParsePlanCost extracts an advisory cost scalar and row estimate from plan
// text. Plan formats vary by engine, so this is deliberately best-effort: an
// unrecognized plan reports the summed row estimates, and a plan with no
// numbers at all reports +Inf.
func ParsePlanCost(plan string) models.CostResult {
	result := models.CostResult{EstimatedCost: math.Inf(1)}
	if strings.TrimSpace(plan) == "" {
		return result
	}

	var totalRows int64
	var totalCost float64
	var sawCost, sawRows bool
	for _, line := range strings.Split(plan, "\n") {
		if m := costRe.FindStringSubmatch(line); m != nil {
			upper := m[1]
			if m[2] != "" {
				upper = m[2]
			}
			if c, err := strconv.ParseFloat(upper, 64); err == nil {
				totalCost += c
				sawCost = true
			}
		}
		rows := rowsEqRe.FindStringSubmatch(line)
		if rows == nil {
			rows = tildeRowsRe.FindStringSubmatch(line)
		}
		if rows != nil {
			if n, err := strconv.ParseInt(rows[1], 10, 64); err == nil {
				totalRows += n
				sawRows = true
			}
		}
	}

	switch {
	case sawCost:
		result.EstimatedCost = totalCost
	case sawRows:
		result.EstimatedCost = float64(totalRows)
	}
	if sawRows {
		result.ActualRows = totalRows
	}
	return result
}
