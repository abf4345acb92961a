// Package typemap implements the Type Mapper (spec.md §4.2): a total
// function from a database's declared column type string to a closed,
// tagged set of abstract field types consumed by the Schema Projector (to
// choose GraphQL scalar/list types) and the SQL Builder (to choose
// parameter casts).
//
// Per spec.md §9's "polymorphism over column types" design note, FieldType
// is a tagged variant rather than an inheritance hierarchy: operator
// applicability (sqlbuilder) and GraphQL scalar choice (schemagen) are both
// static maps keyed by the Kind.
package typemap

import (
	"strings"

	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the closed set of abstract field types, per spec.md §4.2.
type Kind string

const (
	Int32        Kind = "INT32"
	Int64        Kind = "INT64"
	Float        Kind = "FLOAT"
	Numeric      Kind = "NUMERIC"
	Bool         Kind = "BOOL"
	Text         Kind = "TEXT"
	UUID         Kind = "UUID"
	Date         Kind = "DATE"
	Time         Kind = "TIME"
	TimeTz       Kind = "TIMETZ"
	Timestamp    Kind = "TIMESTAMP"
	TimestampTz  Kind = "TIMESTAMPTZ"
	Interval     Kind = "INTERVAL"
	Bytea        Kind = "BYTEA"
	Inet         Kind = "INET"
	Cidr         Kind = "CIDR"
	MacAddr      Kind = "MACADDR"
	JSON         Kind = "JSON"
	XML          Kind = "XML"
	ArrayKind    Kind = "ARRAY"
	EnumKind     Kind = "ENUM"
	CompositeKind Kind = "COMPOSITE"
)

// FieldType is the resolved abstract type of a column. It satisfies atlas's
// schema.Type marker interface (an empty interface the teacher already
// depends on ariga.io/atlas to define), so catalog snapshots can hand
// FieldType values through any code written against atlas's generic schema
// vocabulary without a conversion shim.
type FieldType struct {
	Kind Kind

	// Declared is the original, unmodified declared type string as reported
	// by the catalog (e.g. "character varying(255)", "numeric(10,2)"),
	// preserved per spec.md §4.2 "unknown types ... preserve the original
	// declared string for parameter casting".
	Declared string

	// Elem is the element type for Kind == ArrayKind.
	Elem *FieldType

	// Name is the enum or composite type name for Kind == EnumKind/CompositeKind.
	Name string
}

var _ schema.Type = FieldType{}

// foldCaser normalizes declared type strings case-insensitively using
// Unicode-aware folding (golang.org/x/text/cases), rather than strings.ToLower,
// per spec.md §4.2 ("case-insensitive").
var foldCaser = cases.Fold()

// Map resolves a declared Postgres type string (as reported by information_schema
// or pg_catalog) into a FieldType. It is total: unrecognized base types fall
// back to Text for I/O while the Declared field preserves the original string.
func Map(declared string) FieldType {
	raw := strings.TrimSpace(declared)
	norm := foldCaser.String(raw)

	if isArray, elemDecl := arrayElement(raw, norm); isArray {
		elem := Map(elemDecl)
		return FieldType{Kind: ArrayKind, Declared: raw, Elem: &elem}
	}

	base := stripSizeSuffix(norm)

	if kind, ok := scalarKinds[base]; ok {
		return FieldType{Kind: kind, Declared: raw}
	}

	return FieldType{Kind: Text, Declared: raw}
}

// MapEnum resolves a column backed by a custom enum type (reported by the
// Catalog Reflector's enum-type query) into a FieldType, reusing atlas's
// postgres.EnumType as the canonical value representation for the enum's
// name and ordered values.
func MapEnum(e *postgres.EnumType) FieldType {
	return FieldType{Kind: EnumKind, Declared: e.T, Name: e.T}
}

// MapComposite resolves a column backed by a composite type into a FieldType.
func MapComposite(name string) FieldType {
	return FieldType{Kind: CompositeKind, Declared: name, Name: name}
}

// arrayElement detects Postgres array-type spellings: a trailing "[]" or
// "[N]", or the legacy "_typename" prefix used by pg_catalog.format_type
// for some introspection paths.
func arrayElement(raw, norm string) (bool, string) {
	if idx := strings.Index(raw, "["); idx > 0 {
		return true, raw[:idx]
	}
	if strings.HasPrefix(norm, "_") && len(norm) > 1 {
		return true, raw[1:]
	}
	return false, ""
}

// stripSizeSuffix removes precision/size/scale suffixes such as
// "varchar(255)" -> "varchar", "numeric(10,2)" -> "numeric",
// "timestamp(3) with time zone" -> "timestamp with time zone".
func stripSizeSuffix(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// scalarKinds maps normalized, size-stripped Postgres type names to Kind.
// Aliases map to the same Kind as their canonical spelling.
var scalarKinds = map[string]Kind{
	"smallint":  Int32,
	"int2":      Int32,
	"integer":   Int32,
	"int":       Int32,
	"int4":      Int32,
	"serial":    Int32,
	"bigint":    Int64,
	"int8":      Int64,
	"bigserial": Int64,
	"real":      Float,
	"float4":    Float,
	"double precision": Float,
	"float8":           Float,
	"numeric":  Numeric,
	"decimal":  Numeric,
	"money":    Numeric,
	"boolean":  Bool,
	"bool":     Bool,
	"text":     Text,
	"character varying": Text,
	"varchar":           Text,
	"character":         Text,
	"char":              Text,
	"bpchar":            Text,
	"citext":            Text,
	"name":              Text,
	"uuid":      UUID,
	"date":      Date,
	"time":      Time,
	"time without time zone": Time,
	"timetz":                 TimeTz,
	"time with time zone":    TimeTz,
	"timestamp":                    Timestamp,
	"timestamp without time zone":  Timestamp,
	"timestamptz":                  TimestampTz,
	"timestamp with time zone":     TimestampTz,
	"interval":  Interval,
	"bytea":     Bytea,
	"inet":      Inet,
	"cidr":      Cidr,
	"macaddr":   MacAddr,
	"macaddr8":  MacAddr,
	"json":      JSON,
	"jsonb":     JSON,
	"xml":       XML,
	// "varbit"/"bit varying" is distinct from "character varying" despite
	// the shared word "varying" (spec.md §4.4): both map to Text for
	// display purposes but the Declared string keeps them distinguishable
	// for the Parameter Binder's cast selection.
	"bit varying": Text,
	"varbit":      Text,
	"bit":         Text,
}

// IsCastRequired reports whether a parameter bound against this type needs
// an explicit "::type" cast per spec.md §4.3 (array, interval, JSON/JSONB,
// network types, timestamp/time variants, XML, bytea, enum, composite).
// Basic integers/text/bool/uuid are bound without casts.
func (t FieldType) IsCastRequired() bool {
	switch t.Kind {
	case ArrayKind, Interval, JSON, Inet, Cidr, MacAddr,
		Date, Time, TimeTz, Timestamp, TimestampTz, XML, Bytea, EnumKind, CompositeKind:
		return true
	case Text:
		// "bit varying"/"varbit" folds to Text like "character varying" does
		// (scalarKinds), but a bound text literal needs an explicit cast to
		// reach a bit-varying column; ordinary varchar/text columns don't.
		return isBitVarying(t.Declared)
	default:
		return false
	}
}

// isBitVarying reports whether a declared type string names Postgres's
// "bit varying"/"varbit" type, as distinct from "character varying" despite
// the shared word "varying" (spec.md §4.4).
func isBitVarying(declared string) bool {
	norm := foldCaser.String(stripSizeSuffix(strings.TrimSpace(declared)))
	return norm == "bit varying" || norm == "varbit"
}

// CastType returns the Postgres type name to use in a "::type" cast for
// this field type. Callers should only call this when IsCastRequired is
// true; for ArrayKind, CastType appends "[]" to the element's cast type.
func (t FieldType) CastType() string {
	switch t.Kind {
	case ArrayKind:
		if t.Elem == nil {
			return "text[]"
		}
		return t.Elem.CastType() + "[]"
	case EnumKind, CompositeKind:
		return t.Name
	case Int32:
		return "integer"
	case Int64:
		return "bigint"
	case Float:
		return "double precision"
	case Numeric:
		return "numeric"
	case Bool:
		return "boolean"
	case UUID:
		return "uuid"
	case Date:
		return "date"
	case Time:
		return "time"
	case TimeTz:
		return "timetz"
	case Timestamp:
		return "timestamp"
	case TimestampTz:
		return "timestamptz"
	case Interval:
		return "interval"
	case Bytea:
		return "bytea"
	case Inet:
		return "inet"
	case Cidr:
		return "cidr"
	case MacAddr:
		return "macaddr"
	case JSON:
		return "jsonb"
	case XML:
		return "xml"
	case Text:
		if isBitVarying(t.Declared) {
			return "varbit"
		}
		return "text"
	default:
		return "text"
	}
}
