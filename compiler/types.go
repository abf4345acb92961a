package compiler

import (
	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/sqlbuilder"
	"github.com/arcflow/pgql/typemap"
)

// reservedArgs are the connection-field argument keys the Schema Projector
// always emits (spec.md §6); everything else in a field's argument map is
// a legacy flat filter keyed "<column>_<op>" (spec.md Open Question (a)).
var reservedArgs = map[string]bool{
	"where": true, "or": true, "orderBy": true,
	"limit": true, "offset": true,
	"first": true, "after": true, "last": true, "before": true,
}

// columnTyper adapts a *catalog.Table into a sqlbuilder.ColumnTyper.
func columnTyper(t *catalog.Table) sqlbuilder.ColumnTyper {
	return sqlbuilder.TableColumnTyper(func(name string) (typemap.FieldType, bool) {
		col, ok := t.Column(name)
		return col.Type, ok
	})
}
