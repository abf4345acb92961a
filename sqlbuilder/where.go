// Package sqlbuilder implements the SQL Builder (spec.md §4.3): it turns a
// resolved table, a WhereTree, ordering, and pagination arguments into a
// single parameterized SQL statement with explicit per-value type casts,
// never string-interpolating a value into the query text.
package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/arcflow/pgql"
	"github.com/arcflow/pgql/dialect/sql"
	"github.com/arcflow/pgql/typemap"
)

// Op is one filter operator, per spec.md §4.3/§6's operator table.
type Op string

const (
	OpEQ          Op = "eq"
	OpNEQ         Op = "neq"
	OpGT          Op = "gt"
	OpGTE         Op = "gte"
	OpLT          Op = "lt"
	OpLTE         Op = "lte"
	OpLike        Op = "like"
	OpILike       Op = "ilike"
	OpContains    Op = "contains"
	OpStartsWith  Op = "startsWith"
	OpEndsWith    Op = "endsWith"
	OpIn          Op = "in"
	OpNotIn       Op = "notIn"
	OpIsNull      Op = "isNull"
	OpIsNotNull   Op = "isNotNull"
	OpHasKey      Op = "hasKey"
	OpHasKeys     Op = "hasKeys"
	OpContainedBy Op = "containedBy"
	OpPath        Op = "path"
	OpPathText    Op = "pathText"
	OpHasAny      Op = "hasAny"
	OpHasAll      Op = "hasAll"
	OpLength      Op = "length"
)

// Condition is one leaf filter: a column, an operator, and the operand(s)
// the operator needs. Path carries the JSON path segments for OpPath and
// OpPathText; Value carries everything else (for OpLength, the length that
// array_length(column, 1) is compared against).
type Condition struct {
	Column string
	Op     Op
	Value  any
	Path   []string
}

// WhereTree is the recursive AND/OR filter tree of spec.md §3 ("WhereTree
// entity"). Exactly one of Cond, And, or Or should be set on a given node;
// And/Or combine their children with the named boolean operator.
type WhereTree struct {
	Cond *Condition
	And  []*WhereTree
	Or   []*WhereTree
}

// ColumnTyper resolves a column name to its FieldType, so the builder can
// decide whether a bound value needs an explicit cast. catalog.Table
// satisfies this via a thin adapter (see TableColumnTyper in select.go).
type ColumnTyper interface {
	ColumnType(name string) (typemap.FieldType, bool)
}

// writeWhere renders t into buf, appending bound parameters to binder and
// using placeholders numbered from *argN upward. table identifies the
// WhereTree's table for error reporting.
func writeWhere(buf *strings.Builder, t *WhereTree, table string, types ColumnTyper, binder *[]any, argN *int) error {
	switch {
	case t.Cond != nil:
		return writeCondition(buf, t.Cond, table, types, binder, argN)
	case len(t.And) > 0:
		return writeJunction(buf, "AND", t.And, table, types, binder, argN)
	case len(t.Or) > 0:
		return writeJunction(buf, "OR", t.Or, table, types, binder, argN)
	default:
		buf.WriteString("TRUE")
		return nil
	}
}

func writeJunction(buf *strings.Builder, op string, children []*WhereTree, table string, types ColumnTyper, binder *[]any, argN *int) error {
	buf.WriteByte('(')
	for i, child := range children {
		if i > 0 {
			buf.WriteString(" " + op + " ")
		}
		if err := writeWhere(buf, child, table, types, binder, argN); err != nil {
			return err
		}
	}
	buf.WriteByte(')')
	return nil
}

func writeCondition(buf *strings.Builder, c *Condition, table string, types ColumnTyper, binder *[]any, argN *int) error {
	ft, ok := types.ColumnType(c.Column)
	if !ok {
		return pgql.NewColumnNotFoundError(table, c.Column)
	}
	col := sql.QuoteIdent(c.Column)

	bind := func(v any) string {
		*argN++
		*binder = append(*binder, v)
		ph := fmt.Sprintf("$%d", *argN)
		if ft.IsCastRequired() {
			return ph + "::" + ft.CastType()
		}
		return ph
	}

	// bindArray casts ANY()/ALL() operands to an array of the column's
	// scalar type, not the scalar type itself — "= ANY($1::date)" is
	// invalid Postgres, it must be "= ANY($1::date[])".
	bindArray := func(v any) string {
		*argN++
		*binder = append(*binder, v)
		ph := fmt.Sprintf("$%d", *argN)
		if ft.IsCastRequired() {
			return ph + "::" + ft.CastType() + "[]"
		}
		return ph
	}

	// likeOp defaults to case-sensitive LIKE (spec.md §4.3); only network
	// types use ILIKE, matching how those address families are normally
	// compared case-insensitively.
	likeOp := "LIKE"
	switch ft.Kind {
	case typemap.Inet, typemap.Cidr, typemap.MacAddr:
		likeOp = "ILIKE"
	}

	switch c.Op {
	case OpEQ:
		fmt.Fprintf(buf, "%s = %s", col, bind(c.Value))
	case OpNEQ:
		fmt.Fprintf(buf, "%s != %s", col, bind(c.Value))
	case OpGT:
		fmt.Fprintf(buf, "%s > %s", col, bind(c.Value))
	case OpGTE:
		fmt.Fprintf(buf, "%s >= %s", col, bind(c.Value))
	case OpLT:
		fmt.Fprintf(buf, "%s < %s", col, bind(c.Value))
	case OpLTE:
		fmt.Fprintf(buf, "%s <= %s", col, bind(c.Value))
	case OpLike:
		fmt.Fprintf(buf, "%s LIKE %s", col, bind(c.Value))
	case OpILike:
		fmt.Fprintf(buf, "%s ILIKE %s", col, bind(c.Value))
	case OpContains:
		fmt.Fprintf(buf, "%s %s %s", col, likeOp, bind(wrapLike(c.Value, "%", "%")))
	case OpStartsWith:
		fmt.Fprintf(buf, "%s %s %s", col, likeOp, bind(wrapLike(c.Value, "", "%")))
	case OpEndsWith:
		fmt.Fprintf(buf, "%s %s %s", col, likeOp, bind(wrapLike(c.Value, "%", "")))
	case OpIn:
		fmt.Fprintf(buf, "%s = ANY(%s)", col, bindArray(c.Value))
	case OpNotIn:
		fmt.Fprintf(buf, "%s != ALL(%s)", col, bindArray(c.Value))
	case OpIsNull:
		fmt.Fprintf(buf, "%s IS NULL", col)
	case OpIsNotNull:
		fmt.Fprintf(buf, "%s IS NOT NULL", col)
	case OpHasKey:
		fmt.Fprintf(buf, "%s ? %s", col, bind(c.Value))
	case OpHasKeys:
		fmt.Fprintf(buf, "%s ?& %s", col, bind(c.Value))
	case OpHasAny:
		fmt.Fprintf(buf, "%s ?| %s", col, bind(c.Value))
	case OpContainedBy:
		fmt.Fprintf(buf, "%s <@ %s", col, bind(c.Value))
	case OpHasAll:
		fmt.Fprintf(buf, "%s @> %s", col, bind(c.Value))
	case OpPath:
		fmt.Fprintf(buf, "%s #> %s = %s", col, bind(pqTextArray(c.Path)), bind(c.Value))
	case OpPathText:
		fmt.Fprintf(buf, "%s #>> %s = %s", col, bind(pqTextArray(c.Path)), bind(c.Value))
	case OpLength:
		fmt.Fprintf(buf, "array_length(%s, 1) = %s", col, bind(c.Value))
	default:
		return fmt.Errorf("sqlbuilder: unsupported operator %q", c.Op)
	}
	return nil
}

// wrapLike formats v (expected to be a string) for LIKE/ILIKE pattern
// matching by wrapping it with the given prefix/suffix wildcards.
func wrapLike(v any, prefix, suffix string) string {
	s, _ := v.(string)
	return prefix + s + suffix
}

// pqTextArray renders a JSON path segment list as a Postgres text[]
// literal for the #>/#>> operators' left-hand path argument.
func pqTextArray(segments []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range segments {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s)
	}
	b.WriteByte('}')
	return b.String()
}
