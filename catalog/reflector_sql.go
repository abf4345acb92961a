package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arcflow/pgql"
	"github.com/arcflow/pgql/typemap"
	"github.com/lib/pq"
)

// DBAdapter wraps a *sql.DB (or any type with an equivalent QueryContext
// method, such as *sql.Conn) so it satisfies Querier. *sql.Rows already
// implements rowsScanner, so this is a zero-cost method-set adapter.
type DBAdapter struct {
	DB *sql.DB
}

func (a DBAdapter) QueryContext(ctx context.Context, query string, args ...any) (rowsScanner, error) {
	return a.DB.QueryContext(ctx, query, args...)
}

// reflect runs the bulk introspection algorithm of spec.md §4.1 against
// schema and assembles a fresh, immutable Snapshot. It never mutates a
// previously-published Snapshot; on any query failure it returns an
// IntrospectionError and no partial Snapshot.
func (r *Reflector) reflect(ctx context.Context, schema string) (*Snapshot, error) {
	snap := &Snapshot{
		Schema:     schema,
		Tables:     make(map[string]*Table),
		Enums:      make(map[string]*EnumType),
		Composites: make(map[string]*CompositeType),
	}

	tableNames, err := r.loadTableNames(ctx, schema, snap)
	if err != nil {
		return nil, err
	}
	if len(tableNames) == 0 {
		return snap, nil
	}

	if err := r.loadColumns(ctx, schema, tableNames, snap); err != nil {
		return nil, err
	}
	if err := r.loadPrimaryKeys(ctx, schema, tableNames, snap); err != nil {
		return nil, err
	}
	if err := r.loadForeignKeys(ctx, schema, tableNames, snap); err != nil {
		return nil, err
	}
	if err := r.loadEnumTypes(ctx, schema, snap); err != nil {
		return nil, err
	}
	if err := r.loadCompositeTypes(ctx, schema, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (r *Reflector) loadTableNames(ctx context.Context, schema string, snap *Snapshot) ([]string, error) {
	var names []string

	rows, err := r.db.QueryContext(ctx, queryTableNames, schema)
	if err != nil {
		return nil, pgql.NewIntrospectionError(schema, fmt.Errorf("list base tables: %w", err))
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, pgql.NewIntrospectionError(schema, fmt.Errorf("scan base table name: %w", err))
		}
		snap.Tables[name] = &Table{Name: name, Kind: KindBaseTable}
		names = append(names, name)
	}
	if err := closeRows(rows); err != nil {
		return nil, pgql.NewIntrospectionError(schema, fmt.Errorf("list base tables: %w", err))
	}

	rows, err = r.db.QueryContext(ctx, queryViewNames, schema)
	if err != nil {
		return nil, pgql.NewIntrospectionError(schema, fmt.Errorf("list views: %w", err))
	}
	for rows.Next() {
		var name, relkind string
		if err := rows.Scan(&name, &relkind); err != nil {
			rows.Close()
			return nil, pgql.NewIntrospectionError(schema, fmt.Errorf("scan view name: %w", err))
		}
		kind := KindView
		if relkind == "m" {
			kind = KindMaterializedView
		}
		snap.Tables[name] = &Table{Name: name, Kind: kind}
		names = append(names, name)
	}
	if err := closeRows(rows); err != nil {
		return nil, pgql.NewIntrospectionError(schema, fmt.Errorf("list views: %w", err))
	}

	return names, nil
}

func (r *Reflector) loadColumns(ctx context.Context, schema string, tableNames []string, snap *Snapshot) error {
	rows, err := r.db.QueryContext(ctx, queryColumns, schema, pq.Array(tableNames))
	if err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list columns: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, columnName, declaredType, domainBase string
			ordinal                                          int
			nullable, isArrayOID                             bool
		)
		if err := rows.Scan(&tableName, &columnName, &ordinal, &nullable, &declaredType, &domainBase, &isArrayOID); err != nil {
			return pgql.NewIntrospectionError(schema, fmt.Errorf("scan column: %w", err))
		}

		// Domain-aliased column types are rewritten to their base type
		// before emission (spec.md §4.1).
		typeToMap := declaredType
		if domainBase != "" {
			typeToMap = domainBase
		}

		ft := typemap.Map(typeToMap)
		col := Column{
			Name:     columnName,
			Type:     ft,
			Nullable: nullable,
			IsArray:  ft.Kind == typemap.ArrayKind,
		}
		if col.IsArray {
			col.BaseType = ft.Elem
		}

		t, ok := snap.Tables[tableName]
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list columns: %w", err))
	}
	return nil
}

func (r *Reflector) loadPrimaryKeys(ctx context.Context, schema string, tableNames []string, snap *Snapshot) error {
	rows, err := r.db.QueryContext(ctx, queryPrimaryKeys, schema, pq.Array(tableNames))
	if err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list primary keys: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return pgql.NewIntrospectionError(schema, fmt.Errorf("scan primary key: %w", err))
		}
		t, ok := snap.Tables[tableName]
		if !ok {
			continue
		}
		for i := range t.Columns {
			if t.Columns[i].Name == columnName {
				t.Columns[i].IsPrimaryKey = true
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list primary keys: %w", err))
	}
	return nil
}

func (r *Reflector) loadForeignKeys(ctx context.Context, schema string, tableNames []string, snap *Snapshot) error {
	rows, err := r.db.QueryContext(ctx, queryForeignKeys, schema, pq.Array(tableNames))
	if err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list foreign keys: %w", err))
	}
	defer rows.Close()

	// Foreign keys arrive one (table, constraint, local_column, ref_column)
	// row per constraint column, ordered by local_ordinal; group by
	// (table, constraint) to assemble composite keys.
	type fkKey struct{ table, constraint string }
	order := make([]fkKey, 0)
	byKey := make(map[fkKey]*ForeignKey)

	for rows.Next() {
		var tableName, constraintName, localCol, refTable, refCol string
		var ordinal int
		if err := rows.Scan(&tableName, &constraintName, &localCol, &refTable, &refCol, &ordinal); err != nil {
			return pgql.NewIntrospectionError(schema, fmt.Errorf("scan foreign key: %w", err))
		}
		k := fkKey{tableName, constraintName}
		fk, ok := byKey[k]
		if !ok {
			fk = &ForeignKey{Name: constraintName, ReferencedTable: refTable}
			byKey[k] = fk
			order = append(order, k)
		}
		fk.LocalColumns = append(fk.LocalColumns, localCol)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list foreign keys: %w", err))
	}

	for _, k := range order {
		t, ok := snap.Tables[k.table]
		if !ok {
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, *byKey[k])
	}
	return nil
}

func (r *Reflector) loadEnumTypes(ctx context.Context, schema string, snap *Snapshot) error {
	rows, err := r.db.QueryContext(ctx, queryEnumTypes, schema)
	if err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list enum types: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return pgql.NewIntrospectionError(schema, fmt.Errorf("scan enum value: %w", err))
		}
		e, ok := snap.Enums[name]
		if !ok {
			e = &EnumType{Name: name}
			snap.Enums[name] = e
		}
		e.Values = append(e.Values, value)
	}
	if err := rows.Err(); err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list enum types: %w", err))
	}
	return nil
}

func (r *Reflector) loadCompositeTypes(ctx context.Context, schema string, snap *Snapshot) error {
	rows, err := r.db.QueryContext(ctx, queryCompositeTypes, schema)
	if err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list composite types: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var compositeName, attrName, attrType string
		var nullable bool
		var ordinal int
		if err := rows.Scan(&compositeName, &attrName, &attrType, &nullable, &ordinal); err != nil {
			return pgql.NewIntrospectionError(schema, fmt.Errorf("scan composite attribute: %w", err))
		}
		c, ok := snap.Composites[compositeName]
		if !ok {
			c = &CompositeType{Name: compositeName}
			snap.Composites[compositeName] = c
		}
		c.Attributes = append(c.Attributes, CompositeAttribute{
			Name:     attrName,
			Type:     typemap.Map(attrType),
			Nullable: nullable,
		})
	}
	if err := rows.Err(); err != nil {
		return pgql.NewIntrospectionError(schema, fmt.Errorf("list composite types: %w", err))
	}
	return nil
}

func closeRows(rows rowsScanner) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
