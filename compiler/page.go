package compiler

import (
	"github.com/arcflow/pgql"
	"github.com/arcflow/pgql/cursor"
	"github.com/arcflow/pgql/sqlbuilder"
)

func invalidCursor(table string, err error) error {
	return pgql.NewInvalidCursorError(table, err.Error())
}

// ParsePage builds a sqlbuilder.Page from a connection field's pagination
// arguments (spec.md §4.3/§6: limit/offset or first/after/last/before,
// mutually exclusive styles).
func ParsePage(table string, args map[string]any) (sqlbuilder.Page, error) {
	var page sqlbuilder.Page

	if v, ok := intArg(args, "limit"); ok {
		page.Limit = v
	}
	if v, ok := intArg(args, "offset"); ok {
		page.Offset = v
	}
	if v, ok := intArg(args, "first"); ok {
		page.First = &v
	}
	if v, ok := intArg(args, "last"); ok {
		page.Last = &v
	}
	if s, ok := stringArg(args, "after"); ok {
		c, err := cursor.Decode(s)
		if err != nil {
			return page, invalidCursor(table, err)
		}
		page.After = &c
	}
	if s, ok := stringArg(args, "before"); ok {
		c, err := cursor.Decode(s)
		if err != nil {
			return page, invalidCursor(table, err)
		}
		page.Before = &c
	}

	return page, nil
}

func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
