package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/arcflow/pgql"
	"github.com/arcflow/pgql/cursor"
	"github.com/arcflow/pgql/dialect/sql"
	"github.com/arcflow/pgql/typemap"
)

// OrderDirection is the sort direction of one orderBy term.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// OrderTerm is one column of a (possibly multi-column) orderBy clause.
type OrderTerm struct {
	Column    string
	Direction OrderDirection
}

// Page carries the pagination arguments of spec.md §4.3/§6: either
// offset-based (Limit/Offset) or keyset-based (First/After or Last/Before).
// Keyset pagination requires a non-empty OrderBy (enforced by Build).
type Page struct {
	Limit  int
	Offset int

	First *int
	After *cursor.Cursor

	Last   *int
	Before *cursor.Cursor
}

// Select describes one SELECT statement to build.
type Select struct {
	Table   string
	Columns []string
	Where   *WhereTree
	OrderBy []OrderTerm
	Page    Page
}

// Built is the rendered result of Build: the parameterized SQL text plus
// its positional argument slice, ready to pass straight to a database/sql
// QueryContext call.
type Built struct {
	SQL  string
	Args []any
}

// Build renders sel into a single parameterized SELECT statement against
// types (normally a catalog.Table, adapted via TableColumnTyper).
func Build(sel Select, types ColumnTyper) (Built, error) {
	if (sel.Page.First != nil || sel.Page.Last != nil) && len(sel.OrderBy) == 0 {
		return Built{}, pgql.NewCursorRequiresOrderByError(sel.Table)
	}

	var buf strings.Builder
	var args []any
	argN := 0

	buf.WriteString("SELECT ")
	for i, col := range sel.Columns {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(sql.QuoteIdent(col))
	}
	buf.WriteString(" FROM ")
	buf.WriteString(sql.QuoteIdent(sel.Table))

	var whereParts []string
	if sel.Where != nil {
		var wbuf strings.Builder
		if err := writeWhere(&wbuf, sel.Where, sel.Table, types, &args, &argN); err != nil {
			return Built{}, err
		}
		whereParts = append(whereParts, wbuf.String())
	}

	effectiveOrder := sel.OrderBy
	if sel.Page.Before != nil || sel.Page.Last != nil {
		effectiveOrder = reverseOrder(sel.OrderBy)
	}

	if cur := keysetCursor(sel.Page); cur != nil {
		cond, err := writeKeysetWindow(*cur, effectiveOrder, sel.Table, types, &args, &argN)
		if err != nil {
			return Built{}, err
		}
		whereParts = append(whereParts, cond)
	}

	if len(whereParts) > 0 {
		buf.WriteString(" WHERE ")
		buf.WriteString(strings.Join(whereParts, " AND "))
	}

	if len(effectiveOrder) > 0 {
		buf.WriteString(" ORDER BY ")
		for i, term := range effectiveOrder {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%s %s", sql.QuoteIdent(term.Column), term.Direction)
		}
	}

	limit := resolveLimit(sel.Page)
	if limit > 0 {
		fmt.Fprintf(&buf, " LIMIT %d", limit)
	}
	if sel.Page.Offset > 0 {
		fmt.Fprintf(&buf, " OFFSET %d", sel.Page.Offset)
	}

	return Built{SQL: buf.String(), Args: args}, nil
}

// keysetCursor picks whichever of After/Before was supplied; spec.md §4.3
// treats them as mutually exclusive per page request.
func keysetCursor(p Page) *cursor.Cursor {
	if p.After != nil {
		return p.After
	}
	if p.Before != nil {
		return p.Before
	}
	return nil
}

func resolveLimit(p Page) int {
	if p.First != nil {
		return *p.First
	}
	if p.Last != nil {
		return *p.Last
	}
	return p.Limit
}

// reverseOrder flips every term's direction, used for `last`/`before`
// pagination: the engine fetches the window in reverse physical order and
// the caller re-reverses the returned rows back to the requested orderBy.
func reverseOrder(order []OrderTerm) []OrderTerm {
	out := make([]OrderTerm, len(order))
	for i, t := range order {
		d := Asc
		if t.Direction == Asc {
			d = Desc
		}
		out[i] = OrderTerm{Column: t.Column, Direction: d}
	}
	return out
}

// writeKeysetWindow builds the row-value comparison that restricts results
// to rows strictly after (for ASC) or before (for DESC) the cursor's tagged
// position, per spec.md §4.3's keyset-window construction. For a
// multi-column orderBy it uses Postgres row-value comparison:
//
//	(col1, col2) > ($1, $2)
//
// which already has the correct lexicographic semantics for mixed
// directions is NOT generally true, so each column direction is folded
// into the comparison operator of that column's row-value tuple via
// per-column OR-chains instead when directions are mixed.
func writeKeysetWindow(cur cursor.Cursor, order []OrderTerm, table string, types ColumnTyper, binder *[]any, argN *int) (string, error) {
	if err := cur.Validate(orderColumnNames(order)); err != nil {
		return "", pgql.NewInvalidCursorError(table, err.Error())
	}

	allSameDirection := true
	for i := 1; i < len(order); i++ {
		if order[i].Direction != order[0].Direction {
			allSameDirection = false
			break
		}
	}

	if allSameDirection && len(order) > 0 {
		op := ">"
		if order[0].Direction == Desc {
			op = "<"
		}
		var cols, vals []string
		for i, term := range order {
			ft, ok := types.ColumnType(term.Column)
			if !ok {
				return "", pgql.NewColumnNotFoundError(table, term.Column)
			}
			v, err := cur.Value(i)
			if err != nil {
				return "", pgql.NewInvalidCursorError(table, err.Error())
			}
			*argN++
			*binder = append(*binder, v)
			ph := fmt.Sprintf("$%d", *argN)
			if ft.IsCastRequired() {
				ph += "::" + ft.CastType()
			}
			cols = append(cols, sql.QuoteIdent(term.Column))
			vals = append(vals, ph)
		}
		return fmt.Sprintf("(%s) %s (%s)", strings.Join(cols, ", "), op, strings.Join(vals, ", ")), nil
	}

	// Mixed directions: build the standard keyset disjunction
	//   (c1 > v1) OR (c1 = v1 AND c2 > v2) OR (c1 = v1 AND c2 = v2 AND c3 > v3) ...
	// with each term's comparison operator chosen by its own direction.
	var clauses []string
	for i := range order {
		var parts []string
		for j := 0; j < i; j++ {
			eqPart, err := eqClause(order[j], cur, j, table, types, binder, argN)
			if err != nil {
				return "", err
			}
			parts = append(parts, eqPart)
		}
		cmpPart, err := cmpClause(order[i], cur, i, table, types, binder, argN)
		if err != nil {
			return "", err
		}
		parts = append(parts, cmpPart)
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	return "(" + strings.Join(clauses, " OR ") + ")", nil
}

func eqClause(term OrderTerm, cur cursor.Cursor, i int, table string, types ColumnTyper, binder *[]any, argN *int) (string, error) {
	return cmpOp(term, cur, i, table, types, binder, argN, "=")
}

func cmpClause(term OrderTerm, cur cursor.Cursor, i int, table string, types ColumnTyper, binder *[]any, argN *int) (string, error) {
	op := ">"
	if term.Direction == Desc {
		op = "<"
	}
	return cmpOp(term, cur, i, table, types, binder, argN, op)
}

func cmpOp(term OrderTerm, cur cursor.Cursor, i int, table string, types ColumnTyper, binder *[]any, argN *int, op string) (string, error) {
	ft, ok := types.ColumnType(term.Column)
	if !ok {
		return "", pgql.NewColumnNotFoundError(table, term.Column)
	}
	v, err := cur.Value(i)
	if err != nil {
		return "", pgql.NewInvalidCursorError(table, err.Error())
	}
	*argN++
	*binder = append(*binder, v)
	ph := fmt.Sprintf("$%d", *argN)
	if ft.IsCastRequired() {
		ph += "::" + ft.CastType()
	}
	return fmt.Sprintf("%s %s %s", sql.QuoteIdent(term.Column), op, ph), nil
}

func orderColumnNames(order []OrderTerm) []string {
	names := make([]string, len(order))
	for i, t := range order {
		names[i] = t.Column
	}
	return names
}

// TableColumnTyper adapts any lookup-by-name column source into a
// ColumnTyper. catalog.Table already exposes a matching Column method
// shape, so callers typically write:
//
//	sqlbuilder.TableColumnTyper(func(name string) (typemap.FieldType, bool) {
//	    col, ok := table.Column(name)
//	    return col.Type, ok
//	})
type TableColumnTyper func(name string) (typemap.FieldType, bool)

func (f TableColumnTyper) ColumnType(name string) (typemap.FieldType, bool) { return f(name) }
