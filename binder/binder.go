// Package binder implements the Parameter Binder (spec.md §4.4): it
// normalizes GraphQL-surface argument values (strings, numbers, lists,
// objects) into the exact Go values the driver should bind for a column of
// a given FieldType, per the per-type rules in spec.md §4.4.
package binder

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arcflow/pgql"
	"github.com/google/uuid"

	"github.com/arcflow/pgql/typemap"
)

// Bind normalizes value for a column of type ft, returning the value the
// driver should bind in its place. table/column are used only for error
// context.
func Bind(table, column string, ft typemap.FieldType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch ft.Kind {
	case typemap.ArrayKind:
		return bindArray(table, column, ft, value)
	case typemap.JSON:
		return bindJSON(table, column, value)
	case typemap.Interval:
		// Intervals are passed through verbatim as text; Postgres parses
		// interval literals natively and the engine never needs to
		// interpret the duration itself (spec.md §4.4).
		return fmt.Sprintf("%v", value), nil
	case typemap.UUID:
		return bindUUID(table, column, value)
	case typemap.Timestamp, typemap.TimestampTz, typemap.Date, typemap.Time, typemap.TimeTz:
		return bindTemporal(value)
	case typemap.CompositeKind:
		return bindComposite(value)
	case typemap.EnumKind:
		return fmt.Sprintf("%v", value), nil
	case typemap.Inet, typemap.Cidr, typemap.MacAddr:
		// Network types are bound as text and cast by the SQL Builder's
		// "::inet"/"::cidr"/"::macaddr" annotation; malformed values are
		// caught by the database, not here.
		return fmt.Sprintf("%v", value), nil
	default:
		return value, nil
	}
}

// bindArray renders a Go slice as a Postgres array literal ("{a,b,c}").
// An empty list binds as NULL, per spec.md §4.4's "empty-list-as-NULL"
// rule, distinguishing "no filter" from "filter matching nothing".
func bindArray(table, column string, ft typemap.FieldType, value any) (any, error) {
	elems, err := toSlice(value)
	if err != nil {
		return nil, pgql.NewTypeMismatchError(table, column, "expected a list for an array column")
	}
	if len(elems) == 0 {
		return nil, nil
	}

	var elemType typemap.FieldType
	if ft.Elem != nil {
		elemType = *ft.Elem
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(arrayElementLiteral(elemType, e))
	}
	b.WriteByte('}')
	return b.String(), nil
}

func arrayElementLiteral(elemType typemap.FieldType, v any) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprintf("%v", v)
	switch elemType.Kind {
	case typemap.Text, typemap.UUID, typemap.EnumKind:
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	default:
		return s
	}
}

func toSlice(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("binder: not a list: %T", value)
	}
}

// bindJSON validates and re-serializes a JSON parameter, binding it as text
// for the SQL Builder's "::jsonb" cast. Accepts either an already-decoded
// Go value (map/slice/scalar) or a raw JSON string.
func bindJSON(table, column string, value any) (any, error) {
	if s, ok := value.(string); ok {
		var probe any
		if err := json.Unmarshal([]byte(s), &probe); err != nil {
			return nil, pgql.NewInvalidJSONError(table, column, err)
		}
		return s, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, pgql.NewInvalidJSONError(table, column, err)
	}
	return string(raw), nil
}

// bindUUID parses and re-canonicalizes a UUID argument.
func bindUUID(table, column string, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, pgql.NewInvalidUUIDError(table, column, fmt.Errorf("expected a string"))
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, pgql.NewInvalidUUIDError(table, column, err)
	}
	return id.String(), nil
}

// bindTemporal normalizes RFC3339 timestamps (accepting both "T" and space
// separators, with or without a trailing "Z"/offset) to the canonical form
// Postgres parses. Per spec.md §4.4, a value that doesn't parse as any
// recognized layout is passed through verbatim as text and left for the
// database's own cast to accept or reject, rather than rejected here.
func bindTemporal(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	normalized := strings.Replace(s, " ", "T", 1)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if _, err := time.Parse(layout, normalized); err == nil {
			return normalized, nil
		}
	}
	return s, nil
}

// bindComposite renders an ordered slice of attribute values as a Postgres
// composite-type row literal: "(v1,v2,...)", with each element
// quoted/escaped per the row-literal rules (an element that is empty or
// holds a comma, paren, quote, backslash or whitespace is double-quoted,
// with quotes and backslashes escaped). Callers must supply values in the composite type's declared
// attribute order (catalog.CompositeType.Attributes) themselves — a Go map
// has no stable iteration order, so the Binder never accepts one here.
func bindComposite(value any) (any, error) {
	elems, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("binder: composite value must be an ordered list of attribute values")
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(compositeElementLiteral(v))
	}
	b.WriteByte(')')
	return b.String(), nil
}

func compositeElementLiteral(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	needsQuote := strings.ContainsAny(s, ",()\"\\ \t\n\r") || s == ""
	if !needsQuote {
		return s
	}
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
