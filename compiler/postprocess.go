package compiler

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/typemap"
)

// decodeRow converts one scanned row (keyed by column name, raw driver
// values) into the map the GraphQL layer hands back for a row of table t,
// applying spec.md §6's per-Kind decode rules: JSON parsed into a tree,
// arrays into Go lists, bytea into hex text, composites into attribute
// maps, and date/time kinds into RFC3339 strings.
func decodeRow(raw map[string]any, t *catalog.Table, snap *catalog.Snapshot) map[string]any {
	out := make(map[string]any, len(raw))
	for _, col := range t.Columns {
		v, ok := raw[col.Name]
		if !ok {
			continue
		}
		out[col.Name] = decodeValue(col.Type, v, snap)
	}
	return out
}

func decodeValue(ft typemap.FieldType, v any, snap *catalog.Snapshot) any {
	if v == nil {
		return nil
	}
	switch ft.Kind {
	case typemap.JSON:
		return decodeJSON(v)
	case typemap.Bytea:
		return decodeBytea(v)
	case typemap.ArrayKind:
		return decodeArray(ft, v, snap)
	case typemap.CompositeKind:
		return decodeComposite(ft, v, snap)
	case typemap.Date, typemap.Time, typemap.TimeTz, typemap.Timestamp, typemap.TimestampTz:
		return decodeTemporal(v)
	default:
		return v
	}
}

func decodeJSON(v any) any {
	b, ok := toBytes(v)
	if !ok {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return string(b)
	}
	return out
}

func decodeBytea(v any) any {
	b, ok := toBytes(v)
	if !ok {
		return v
	}
	return hex.EncodeToString(b)
}

func decodeTemporal(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return v
}

// decodeArray parses a Postgres array literal ("{a,b,c}") back into a Go
// slice of decoded elements. lib/pq returns array-typed columns as their
// text literal when scanned into a plain `any` destination rather than a
// pq.Array-wrapped one, so the engine parses it here instead of requiring
// every call site to know the element type up front.
func decodeArray(ft typemap.FieldType, v any, snap *catalog.Snapshot) any {
	s, ok := toText(v)
	if !ok {
		return v
	}
	elems := parseDelimitedLiteral(s, '{', '}')
	var elemType typemap.FieldType
	if ft.Elem != nil {
		elemType = *ft.Elem
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		if e == "NULL" {
			out[i] = nil
			continue
		}
		out[i] = decodeValue(elemType, e, snap)
	}
	return out
}

// decodeComposite parses a Postgres composite row literal ("(v1,v2,...)")
// into a map keyed by the composite type's declared attribute names, per
// spec.md §4.2's composite-type support.
func decodeComposite(ft typemap.FieldType, v any, snap *catalog.Snapshot) any {
	s, ok := toText(v)
	if !ok {
		return v
	}
	ct, found := snap.Composites[ft.Name]
	if !found {
		return s
	}
	values := parseDelimitedLiteral(s, '(', ')')
	out := make(map[string]any, len(ct.Attributes))
	for i, attr := range ct.Attributes {
		if i >= len(values) || values[i] == "" {
			out[attr.Name] = nil
			continue
		}
		out[attr.Name] = decodeValue(attr.Type, values[i], snap)
	}
	return out
}

// parseDelimitedLiteral splits a Postgres array/composite literal, bounded
// by open/close, into its unquoted element strings, honoring
// double-quoted elements with backslash escapes.
func parseDelimitedLiteral(s string, open, close_ byte) []string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == open && s[len(s)-1] == close_ {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return nil
	}
	var elems []string
	var cur strings.Builder
	inQuotes := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			elems = append(elems, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	elems = append(elems, cur.String())
	return elems
}

func toBytes(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	default:
		return nil, false
	}
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case []byte:
		return string(t), true
	case string:
		return t, true
	default:
		return "", false
	}
}
