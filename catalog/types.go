// Package catalog implements the Catalog Reflector (spec.md §4.1): it
// introspects a live Postgres schema into an immutable CatalogSnapshot and
// caches it per schema namespace under a wall-clock TTL with explicit
// invalidation (spec.md §3 "Lifecycle").
package catalog

import (
	"sort"

	"github.com/arcflow/pgql/typemap"
)

// TableKind distinguishes base tables from views, per spec.md §3.
type TableKind string

const (
	KindBaseTable        TableKind = "base"
	KindView             TableKind = "view"
	KindMaterializedView TableKind = "materialized-view"
)

// Column is an immutable description of one table/view column.
type Column struct {
	Name string

	// Type is the resolved field type: for domain-aliased columns this is
	// already rewritten to the alias's base type (spec.md §4.1's "Domain-aliased
	// column types are rewritten to their base type before emission").
	Type typemap.FieldType

	Nullable     bool
	IsPrimaryKey bool

	// IsArray mirrors Type.Kind == typemap.ArrayKind for convenient access;
	// BaseType is the array's element type when IsArray is true.
	IsArray  bool
	BaseType *typemap.FieldType
}

// ForeignKey describes a (possibly composite) foreign-key constraint. Per
// spec.md §9's "cyclic relationships" design note, the referenced table is
// stored by name, not by pointer, since the catalog graph is naturally
// cyclic.
type ForeignKey struct {
	Name              string
	LocalColumns      []string
	ReferencedTable   string
	ReferencedColumns []string
}

// Table is an immutable description of one table/view, including its
// ordered columns and (for base tables) its foreign keys. Views carry no
// ForeignKeys per spec.md §3's invariant.
type Table struct {
	Name    string
	Kind    TableKind
	Columns []Column
	ForeignKeys []ForeignKey
}

// PrimaryKey returns the table's primary-key column names in declaration
// order (spec.md §9: "treat primary keys as an ordered list everywhere").
func (t *Table) PrimaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// Column looks up a column by name, or reports ok=false.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ForeignKeyOn returns the foreign key whose local columns exactly match
// localCols (used by relate to find the FK backing a selected relationship
// field), or ok=false.
func (t *Table) ForeignKeyOn(localCols []string) (ForeignKey, bool) {
outer:
	for _, fk := range t.ForeignKeys {
		if len(fk.LocalColumns) != len(localCols) {
			continue
		}
		for i := range localCols {
			if fk.LocalColumns[i] != localCols[i] {
				continue outer
			}
		}
		return fk, true
	}
	return ForeignKey{}, false
}

// EnumType describes a Postgres enum type and its ordered values.
type EnumType struct {
	Name   string
	Values []string
}

// CompositeAttribute is one field of a composite type. Attribute order is
// part of the type's identity (spec.md §3).
type CompositeAttribute struct {
	Name     string
	Type     typemap.FieldType
	Nullable bool
}

// CompositeType describes a Postgres composite (row) type.
type CompositeType struct {
	Name       string
	Attributes []CompositeAttribute
}

// Snapshot is an immutable, consistent view of a schema namespace's
// reflected structure (spec.md §3's "Catalog snapshot"/GLOSSARY). Once
// published, none of its entities are mutated in place; a refresh produces
// an entirely new Snapshot that atomically replaces the cached one.
type Snapshot struct {
	Schema string

	// Tables is keyed by (unqualified) table/view name, per spec.md §9's
	// "store tables in a flat map keyed by name; references between them
	// are names, not pointers".
	Tables map[string]*Table

	Enums      map[string]*EnumType
	Composites map[string]*CompositeType
}

// TableNames returns the snapshot's table/view names in lexical order, for
// deterministic iteration (schema projection, tests).
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
