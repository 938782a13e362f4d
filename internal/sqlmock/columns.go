// Package sqlmock synthesizes shape-correct responses for the dashboard's
// data-fetch API. Snippets under test issue SQL through the mocked
// fetchData call; this package extracts the output column names from the
// query and fabricates a small CSV result set around them.
package sqlmock

import (
	"github.com/xwb1989/sqlparser"
)

// ColumnNames returns the ordered output column identifiers of a SQL
// query. Aliases win over raw column names, duplicates are preserved, and
// a query with no identifiers (or one that does not parse) yields an
// empty list rather than an error.
func ColumnNames(sql string) []string {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil
	}
	sel, ok := stmt.(sqlparser.SelectStatement)
	if !ok {
		return nil
	}
	var names []string
	collectSelect(sel, &names)
	return names
}

func collectSelect(stmt sqlparser.SelectStatement, names *[]string) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		for _, expr := range s.SelectExprs {
			collectExpr(expr, names)
		}
	case *sqlparser.Union:
		collectSelect(s.Left, names)
		collectSelect(s.Right, names)
	case *sqlparser.ParenSelect:
		collectSelect(s.Select, names)
	}
}

func collectExpr(expr sqlparser.SelectExpr, names *[]string) {
	ae, ok := expr.(*sqlparser.AliasedExpr)
	if !ok {
		// Star expressions carry no concrete column names.
		return
	}
	if !ae.As.IsEmpty() {
		*names = append(*names, ae.As.String())
		return
	}
	if col, ok := ae.Expr.(*sqlparser.ColName); ok {
		// A plain column reference is an identifier, not a container;
		// it contributes its own name and nothing beneath it.
		*names = append(*names, col.Name.String())
		return
	}
	// Composite expression (function call, arithmetic, subquery):
	// collect embedded column references depth-first, in order.
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if col, ok := node.(*sqlparser.ColName); ok {
			*names = append(*names, col.Name.String())
		}
		return true, nil
	}, ae.Expr)
}
