package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/arcflow/pgql/dialect/sql"
)

// Assignment is one column/value pair for an INSERT or UPDATE.
type Assignment struct {
	Column string
	Value  any
}

// Insert describes a single-row INSERT ... RETURNING statement. The Query
// Compiler issues one Insert per row for create, and relies on the
// database to assign defaults/identity columns, which come back via
// Returning.
type Insert struct {
	Table      string
	Values     []Assignment
	Returning  []string
}

// BuildInsert renders an Insert into a parameterized statement.
func BuildInsert(ins Insert, types ColumnTyper) (Built, error) {
	var buf strings.Builder
	var args []any

	fmt.Fprintf(&buf, "INSERT INTO %s (", sql.QuoteIdent(ins.Table))
	for i, a := range ins.Values {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(sql.QuoteIdent(a.Column))
	}
	buf.WriteString(") VALUES (")
	for i, a := range ins.Values {
		if i > 0 {
			buf.WriteString(", ")
		}
		ft, _ := types.ColumnType(a.Column)
		args = append(args, a.Value)
		ph := fmt.Sprintf("$%d", len(args))
		if ft.IsCastRequired() {
			ph += "::" + ft.CastType()
		}
		buf.WriteString(ph)
	}
	buf.WriteString(")")

	writeReturning(&buf, ins.Returning)
	return Built{SQL: buf.String(), Args: args}, nil
}

// Update describes an UPDATE ... WHERE <primary key = ...> RETURNING
// statement. The Query Compiler always scopes updates by primary key
// (spec.md §4.6), never by an arbitrary WhereTree.
type Update struct {
	Table       string
	Set         []Assignment
	KeyColumns  []string
	KeyValues   []any
	Returning   []string
}

// BuildUpdate renders an Update into a parameterized statement.
func BuildUpdate(upd Update, types ColumnTyper) (Built, error) {
	var buf strings.Builder
	var args []any

	fmt.Fprintf(&buf, "UPDATE %s SET ", sql.QuoteIdent(upd.Table))
	for i, a := range upd.Set {
		if i > 0 {
			buf.WriteString(", ")
		}
		ft, _ := types.ColumnType(a.Column)
		args = append(args, a.Value)
		ph := fmt.Sprintf("$%d", len(args))
		if ft.IsCastRequired() {
			ph += "::" + ft.CastType()
		}
		fmt.Fprintf(&buf, "%s = %s", sql.QuoteIdent(a.Column), ph)
	}

	buf.WriteString(" WHERE ")
	for i, col := range upd.KeyColumns {
		if i > 0 {
			buf.WriteString(" AND ")
		}
		ft, _ := types.ColumnType(col)
		args = append(args, upd.KeyValues[i])
		ph := fmt.Sprintf("$%d", len(args))
		if ft.IsCastRequired() {
			ph += "::" + ft.CastType()
		}
		fmt.Fprintf(&buf, "%s = %s", sql.QuoteIdent(col), ph)
	}

	writeReturning(&buf, upd.Returning)
	return Built{SQL: buf.String(), Args: args}, nil
}

// Delete describes a DELETE ... WHERE <primary key = ...> RETURNING
// statement, scoped by primary key like Update.
type Delete struct {
	Table      string
	KeyColumns []string
	KeyValues  []any
	Returning  []string
}

// BuildDelete renders a Delete into a parameterized statement.
func BuildDelete(del Delete, types ColumnTyper) (Built, error) {
	var buf strings.Builder
	var args []any

	fmt.Fprintf(&buf, "DELETE FROM %s WHERE ", sql.QuoteIdent(del.Table))
	for i, col := range del.KeyColumns {
		if i > 0 {
			buf.WriteString(" AND ")
		}
		ft, _ := types.ColumnType(col)
		args = append(args, del.KeyValues[i])
		ph := fmt.Sprintf("$%d", len(args))
		if ft.IsCastRequired() {
			ph += "::" + ft.CastType()
		}
		fmt.Fprintf(&buf, "%s = %s", sql.QuoteIdent(col), ph)
	}

	writeReturning(&buf, del.Returning)
	return Built{SQL: buf.String(), Args: args}, nil
}

// BulkInsert describes a multi-row INSERT ... RETURNING statement with a
// single shared column list, used by bulkCreate mutations (spec.md §4.7).
// Rows are parallel to Columns; a nil entry binds as NULL, covering the
// union-of-fields padding the Query Compiler applies across input rows
// that don't all set the same fields.
type BulkInsert struct {
	Table     string
	Columns   []string
	Rows      [][]any
	Returning []string
}

// BuildBulkInsert renders a BulkInsert into a single parameterized
// multi-row INSERT statement.
func BuildBulkInsert(ins BulkInsert, types ColumnTyper) (Built, error) {
	var buf strings.Builder
	var args []any

	fmt.Fprintf(&buf, "INSERT INTO %s (", sql.QuoteIdent(ins.Table))
	for i, c := range ins.Columns {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(sql.QuoteIdent(c))
	}
	buf.WriteString(") VALUES ")

	for r, row := range ins.Rows {
		if r > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("(")
		for i, c := range ins.Columns {
			if i > 0 {
				buf.WriteString(", ")
			}
			ft, _ := types.ColumnType(c)
			args = append(args, row[i])
			ph := fmt.Sprintf("$%d", len(args))
			if ft.IsCastRequired() {
				ph += "::" + ft.CastType()
			}
			buf.WriteString(ph)
		}
		buf.WriteString(")")
	}

	writeReturning(&buf, ins.Returning)
	return Built{SQL: buf.String(), Args: args}, nil
}

// Count describes a COUNT(*) query scoped by an optional WhereTree, used
// by the Query Compiler to report a connection's totalCount alongside its
// paginated page of rows.
type Count struct {
	Table string
	Where *WhereTree
}

// BuildCount renders a Count into a parameterized SELECT COUNT(*) statement.
func BuildCount(c Count, types ColumnTyper) (Built, error) {
	var buf strings.Builder
	var args []any
	argN := 0

	buf.WriteString("SELECT COUNT(*) FROM ")
	buf.WriteString(sql.QuoteIdent(c.Table))

	if c.Where != nil {
		buf.WriteString(" WHERE ")
		if err := writeWhere(&buf, c.Where, c.Table, types, &args, &argN); err != nil {
			return Built{}, err
		}
	}
	return Built{SQL: buf.String(), Args: args}, nil
}

func writeReturning(buf *strings.Builder, cols []string) {
	if len(cols) == 0 {
		return
	}
	buf.WriteString(" RETURNING ")
	for i, c := range cols {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(sql.QuoteIdent(c))
	}
}
