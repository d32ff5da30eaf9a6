package crosscheck

import (
	"context"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/TFMV/equibench/pkg/equivalence"
)

// loadSchema introspects the oracle once per checker instance. The cache is
// never shared across instances, so a rebuilt oracle never serves stale
// schema through an old checker.
func (c *Checker) loadSchema(ctx context.Context) map[string][]string {
	c.schemaOnce.Do(func() {
		rs, err := c.oracle.Execute(ctx,
			"SELECT table_name, column_name FROM information_schema.columns", c.cfg.PerQueryTimeout)
		if err != nil {
			c.log.Debug().Err(err).Msg("schema introspection unavailable; skipping qualification")
			return
		}
		colTables := make(map[string][]string)
		for _, row := range rs.Rows {
			if len(row) < 2 {
				continue
			}
			table := strings.ToLower(equivalence.Canon(row[0]))
			column := strings.ToLower(equivalence.Canon(row[1]))
			colTables[column] = append(colTables[column], table)
		}
		c.colTables = colTables
		c.log.Debug().Int("columns", len(colTables)).Msg("oracle schema cached")
	})
	return c.colTables
}

// qualifyColumns attaches a table qualifier to every bare column reference
// that maps to exactly one table in the cached schema. Best-effort: anything
// unparseable or ambiguous is left alone.
func qualifyColumns(sql string, colTables map[string][]string) string {
	if len(colTables) == 0 {
		return sql
	}
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return sql
	}

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		col, ok := node.(*sqlparser.ColName)
		if !ok || !col.Qualifier.IsEmpty() {
			return true, nil
		}
		tables := colTables[col.Name.Lowered()]
		if len(tables) == 1 {
			col.Qualifier = sqlparser.TableName{Name: sqlparser.NewTableIdent(tables[0])}
		}
		return true, nil
	}, stmt)

	return sqlparser.String(stmt)
}
