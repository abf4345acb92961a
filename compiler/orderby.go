package compiler

import (
	"strings"

	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/sqlbuilder"
)

// ParseOrderBy builds the SQL Builder's ordered OrderTerm list from the
// "orderBy" argument: a list of single-field "<Type>OrderBy" input objects,
// each naming one column and its OrderDirection (spec.md §4.6). Multiple
// list entries compose a multi-column ORDER BY in the given sequence.
func ParseOrderBy(t *catalog.Table, args map[string]any) ([]sqlbuilder.OrderTerm, error) {
	raw, ok := args["orderBy"]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, badWhereShape(t.Name)
	}

	var terms []sqlbuilder.OrderTerm
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, badWhereShape(t.Name)
		}
		for col, dir := range obj {
			if dir == nil {
				continue
			}
			if _, ok := t.Column(col); !ok {
				continue
			}
			s, _ := dir.(string)
			direction := sqlbuilder.Asc
			if strings.EqualFold(s, "DESC") {
				direction = sqlbuilder.Desc
			}
			terms = append(terms, sqlbuilder.OrderTerm{Column: col, Direction: direction})
		}
	}
	return terms, nil
}
