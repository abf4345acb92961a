package compiler

import (
	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/typemap"
)

// customersTable is the shared fixture used across the compiler package's
// tests: a simple base table with a single-column primary key, a couple of
// scalar columns, and an array column for operator-parsing tests.
func customersTable() *catalog.Table {
	return &catalog.Table{
		Name: "customers",
		Kind: catalog.KindBaseTable,
		Columns: []catalog.Column{
			{Name: "id", Type: typemap.FieldType{Kind: typemap.Int64}, IsPrimaryKey: true},
			{Name: "email", Type: typemap.FieldType{Kind: typemap.Text}},
			{Name: "status", Type: typemap.FieldType{Kind: typemap.Text}},
			{Name: "created_at", Type: typemap.FieldType{Kind: typemap.TimestampTz}},
			{
				Name: "tags",
				Type: typemap.FieldType{
					Kind: typemap.ArrayKind,
					Elem: &typemap.FieldType{Kind: typemap.Text},
				},
			},
		},
	}
}

// ordersTable references customersTable via a belongs-to foreign key, for
// relationship-naming tests.
func ordersTable() *catalog.Table {
	return &catalog.Table{
		Name: "orders",
		Kind: catalog.KindBaseTable,
		Columns: []catalog.Column{
			{Name: "id", Type: typemap.FieldType{Kind: typemap.Int64}, IsPrimaryKey: true},
			{Name: "customer_id", Type: typemap.FieldType{Kind: typemap.Int64}},
			{Name: "total", Type: typemap.FieldType{Kind: typemap.Numeric}},
		},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "orders_customer_id_fkey", LocalColumns: []string{"customer_id"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"}},
		},
	}
}

func fixtureSnapshot() *catalog.Snapshot {
	customers := customersTable()
	orders := ordersTable()
	return &catalog.Snapshot{
		Schema: "public",
		Tables: map[string]*catalog.Table{
			"customers": customers,
			"orders":    orders,
		},
	}
}
