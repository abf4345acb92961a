package compiler

import (
	"context"
	"time"

	"github.com/arcflow/pgql"
	"github.com/arcflow/pgql/binder"
	"github.com/arcflow/pgql/catalog"
	pgqlsql "github.com/arcflow/pgql/dialect/sql"
	"github.com/arcflow/pgql/schemagen"
	"github.com/arcflow/pgql/sqlbuilder"
	"github.com/arcflow/pgql/typemap"
)

// Create compiles and executes a single-row create mutation: null-valued
// input fields are dropped so the column's own database default applies,
// any omitted non-nullable date/timestamp column is stamped with the
// current time, and the inserted row is returned in full (spec.md §4.7).
func (c *Compiler) Create(ctx context.Context, tableName string, input map[string]any) (map[string]any, error) {
	if input == nil {
		return nil, pgql.NewInputRequiredError(tableName)
	}
	t, err := c.table(ctx, tableName)
	if err != nil {
		return nil, err
	}

	filtered := filterNulls(input)
	autoFillTimestamps(t, filtered)

	assigns, err := bindAssignments(t, filtered)
	if err != nil {
		return nil, err
	}

	ins := sqlbuilder.Insert{Table: t.Name, Values: toSQLAssignments(assigns), Returning: columnNames(t)}
	built, err := sqlbuilder.BuildInsert(ins, columnTyper(t))
	if err != nil {
		return nil, err
	}

	raw, ok, err := c.queryOneRaw(ctx, c.Driver.Conn, built)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgql.NewTransactionFailedError(t.Name, nil)
	}

	snap, err := c.Reflector.Snapshot(ctx, c.Schema)
	if err != nil {
		return nil, err
	}
	return decodeRow(raw, t, snap), nil
}

// BulkCreate compiles and executes a multi-row create mutation as a single
// INSERT statement. Per spec.md §4.7's "union-of-fields NULL-padding", the
// column list is the union of every field set across all the input rows;
// a row that omits one of those fields binds NULL for it rather than
// falling back to the column's database default, since a single
// multi-row INSERT can only declare one column list for every row.
func (c *Compiler) BulkCreate(ctx context.Context, tableName string, inputs []map[string]any) ([]map[string]any, error) {
	if len(inputs) == 0 {
		return nil, pgql.NewInputRequiredError(tableName)
	}
	t, err := c.table(ctx, tableName)
	if err != nil {
		return nil, err
	}

	filteredInputs := make([]map[string]any, len(inputs))
	for i, input := range inputs {
		filtered := filterNulls(input)
		autoFillTimestamps(t, filtered)
		filteredInputs[i] = filtered
	}

	union := unionColumns(t, filteredInputs)
	rows := make([][]any, len(inputs))
	for i, filtered := range filteredInputs {
		row := make([]any, len(union))
		for j, col := range union {
			v, present := filtered[col]
			if !present {
				row[j] = nil
				continue
			}
			ft, _ := t.Column(col)
			bound, err := binder.Bind(t.Name, col, ft.Type, v)
			if err != nil {
				return nil, err
			}
			row[j] = bound
		}
		rows[i] = row
	}

	ins := sqlbuilder.BulkInsert{Table: t.Name, Columns: union, Rows: rows, Returning: columnNames(t)}
	built, err := sqlbuilder.BuildBulkInsert(ins, columnTyper(t))
	if err != nil {
		return nil, err
	}

	raws, err := c.queryRaw(ctx, c.Driver.Conn, built)
	if err != nil {
		return nil, err
	}

	snap, err := c.Reflector.Snapshot(ctx, c.Schema)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(raws))
	for i, r := range raws {
		out[i] = decodeRow(r, t, snap)
	}
	return out, nil
}

// Update compiles and executes a primary-key-scoped update mutation. The
// input must carry the table's full primary key plus at least one other
// field to set; a zero-row result (the key didn't match any row) reports
// NotFound rather than silently succeeding (spec.md §4.7).
func (c *Compiler) Update(ctx context.Context, tableName string, input map[string]any) (map[string]any, error) {
	if input == nil {
		return nil, pgql.NewInputRequiredError(tableName)
	}
	t, err := c.table(ctx, tableName)
	if err != nil {
		return nil, err
	}

	pkCols := t.PrimaryKey()
	if len(pkCols) == 0 {
		return nil, pgql.NewNoPrimaryKeyError(t.Name)
	}
	keyValues := make([]any, len(pkCols))
	for i, col := range pkCols {
		v, present := input[col]
		if !present {
			return nil, pgql.NewInputRequiredError(t.Name)
		}
		ft, _ := t.Column(col)
		bound, err := binder.Bind(t.Name, col, ft.Type, v)
		if err != nil {
			return nil, err
		}
		keyValues[i] = bound
	}

	rest := make(map[string]any, len(input))
	for k, v := range input {
		if !containsString(pkCols, k) {
			rest[k] = v
		}
	}
	assigns, err := bindAssignments(t, filterNulls(rest))
	if err != nil {
		return nil, err
	}
	if len(assigns) == 0 {
		return nil, pgql.NewInputRequiredError(t.Name)
	}

	upd := sqlbuilder.Update{
		Table:      t.Name,
		Set:        toSQLAssignments(assigns),
		KeyColumns: pkCols,
		KeyValues:  keyValues,
		Returning:  columnNames(t),
	}
	built, err := sqlbuilder.BuildUpdate(upd, columnTyper(t))
	if err != nil {
		return nil, err
	}

	raw, ok, err := c.queryOneRaw(ctx, c.Driver.Conn, built)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgql.NewNotFoundError(t.Name)
	}

	snap, err := c.Reflector.Snapshot(ctx, c.Schema)
	if err != nil {
		return nil, err
	}
	return decodeRow(raw, t, snap), nil
}

// Delete compiles and executes a primary-key-scoped delete mutation,
// reporting whether a row was actually removed.
func (c *Compiler) Delete(ctx context.Context, tableName string, id any) (bool, error) {
	t, err := c.table(ctx, tableName)
	if err != nil {
		return false, err
	}
	pkCols := t.PrimaryKey()
	if len(pkCols) != 1 {
		return false, pgql.NewNoPrimaryKeyError(t.Name)
	}
	ft, _ := t.Column(pkCols[0])
	bound, err := binder.Bind(t.Name, pkCols[0], ft.Type, id)
	if err != nil {
		return false, err
	}

	del := sqlbuilder.Delete{Table: t.Name, KeyColumns: pkCols, KeyValues: []any{bound}, Returning: pkCols}
	built, err := sqlbuilder.BuildDelete(del, columnTyper(t))
	if err != nil {
		return false, err
	}
	_, ok, err := c.queryOneRaw(ctx, c.Driver.Conn, built)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// CreateWithRelationships runs the nested create/connect mutation of
// spec.md §4.6/§4.7 in a single transaction: outgoing "<name>_connect" /
// "<name>_create" fields are resolved before the row itself is inserted,
// and incoming "<relName>_createMany" fields insert their child rows
// against the newly created primary key afterward. Any failure rolls the
// whole transaction back (spec.md §4.7's "full rollback on any failure").
func (c *Compiler) CreateWithRelationships(ctx context.Context, tableName string, input map[string]any) (map[string]any, error) {
	if input == nil {
		return nil, pgql.NewInputRequiredError(tableName)
	}
	snap, err := c.Reflector.Snapshot(ctx, c.Schema)
	if err != nil {
		return nil, err
	}
	t, ok := snap.Tables[tableName]
	if !ok {
		return nil, tableNotFound(tableName)
	}

	tx, err := c.Driver.Tx(ctx)
	if err != nil {
		return nil, pgql.NewTransactionFailedError(t.Name, err)
	}

	result, err := c.createWithRelationshipsTx(ctx, tx.Conn, snap, t, input)
	if err != nil {
		_ = tx.Tx.Rollback()
		return nil, pgql.NewTransactionFailedError(t.Name, err)
	}
	if err := tx.Tx.Commit(); err != nil {
		return nil, pgql.NewTransactionFailedError(t.Name, err)
	}
	return result, nil
}

func (c *Compiler) createWithRelationshipsTx(ctx context.Context, conn pgqlsql.Conn, snap *catalog.Snapshot, t *catalog.Table, input map[string]any) (map[string]any, error) {
	plain := make(map[string]any, len(input))
	for k, v := range input {
		plain[k] = v
	}

	for _, fk := range t.ForeignKeys {
		ref, ok := snap.Tables[fk.ReferencedTable]
		if !ok {
			continue
		}
		name := singularName(fk.ReferencedTable)
		if connectID, ok := plain[name+"_connect"]; ok && connectID != nil {
			delete(plain, name+"_connect")
			delete(plain, name+"_create")
			if len(fk.LocalColumns) == 1 {
				plain[fk.LocalColumns[0]] = connectID
			}
			continue
		}
		if createInput, ok := plain[name+"_create"]; ok && createInput != nil {
			delete(plain, name+"_connect")
			delete(plain, name+"_create")
			nested, ok := createInput.(map[string]any)
			if !ok {
				return nil, pgql.NewInputRequiredError(ref.Name)
			}
			refRow, err := c.insertRow(ctx, conn, snap, ref, nested)
			if err != nil {
				return nil, err
			}
			if len(fk.ReferencedColumns) == 1 && len(fk.LocalColumns) == 1 {
				plain[fk.LocalColumns[0]] = refRow[fk.ReferencedColumns[0]]
			}
		}
	}

	var childBatches []struct {
		child *catalog.Table
		fk    catalog.ForeignKey
		rows  []map[string]any
	}
	for _, otherName := range snap.TableNames() {
		other := snap.Tables[otherName]
		for _, fk := range other.ForeignKeys {
			if fk.ReferencedTable != t.Name {
				continue
			}
			key := schemagen.FieldName(other.Name) + "_createMany"
			raw, ok := plain[key]
			if !ok || raw == nil {
				continue
			}
			delete(plain, key)
			items, ok := raw.([]any)
			if !ok {
				return nil, pgql.NewInputRequiredError(other.Name)
			}
			var rows []map[string]any
			for _, item := range items {
				row, ok := item.(map[string]any)
				if !ok {
					return nil, pgql.NewInputRequiredError(other.Name)
				}
				rows = append(rows, row)
			}
			childBatches = append(childBatches, struct {
				child *catalog.Table
				fk    catalog.ForeignKey
				rows  []map[string]any
			}{child: other, fk: fk, rows: rows})
		}
	}

	parent, err := c.insertRow(ctx, conn, snap, t, plain)
	if err != nil {
		return nil, err
	}

	for _, batch := range childBatches {
		for _, row := range batch.rows {
			childInput := make(map[string]any, len(row))
			for k, v := range row {
				childInput[k] = v
			}
			if len(batch.fk.LocalColumns) == 1 && len(batch.fk.ReferencedColumns) == 1 {
				childInput[batch.fk.LocalColumns[0]] = parent[batch.fk.ReferencedColumns[0]]
			}
			if _, err := c.insertRow(ctx, conn, snap, batch.child, childInput); err != nil {
				return nil, err
			}
		}
	}

	return decodeRow(parent, t, snap), nil
}

// insertRow binds and inserts one row through a transaction-scoped
// connection, returning the raw (undecoded) RETURNING row so its
// primary-key value can be threaded into a dependent insert.
func (c *Compiler) insertRow(ctx context.Context, conn pgqlsql.Conn, snap *catalog.Snapshot, t *catalog.Table, input map[string]any) (map[string]any, error) {
	filtered := filterNulls(input)
	autoFillTimestamps(t, filtered)
	assigns, err := bindAssignments(t, filtered)
	if err != nil {
		return nil, err
	}
	ins := sqlbuilder.Insert{Table: t.Name, Values: toSQLAssignments(assigns), Returning: columnNames(t)}
	built, err := sqlbuilder.BuildInsert(ins, columnTyper(t))
	if err != nil {
		return nil, err
	}
	raw, ok, err := c.queryOneRaw(ctx, conn, built)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgql.NewTransactionFailedError(t.Name, nil)
	}
	return raw, nil
}

func filterNulls(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// autoFillTimestamps stamps any non-nullable date/timestamp column the
// input omitted with the current time, regardless of its name — the rule
// is driven by the column's catalog type, not by naming convention
// (spec.md §4.7).
func autoFillTimestamps(t *catalog.Table, input map[string]any) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, col := range t.Columns {
		if col.Nullable || !isAutoFillTemporal(col.Type.Kind) {
			continue
		}
		if _, present := input[col.Name]; !present {
			input[col.Name] = now
		}
	}
}

func isAutoFillTemporal(k typemap.Kind) bool {
	switch k {
	case typemap.Date, typemap.Timestamp, typemap.TimestampTz:
		return true
	default:
		return false
	}
}

func unionColumns(t *catalog.Table, inputs []map[string]any) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, col := range t.Columns {
		for _, input := range inputs {
			if _, ok := input[col.Name]; ok {
				if !seen[col.Name] {
					seen[col.Name] = true
					cols = append(cols, col.Name)
				}
				break
			}
		}
	}
	return cols
}

func containsString(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

func toSQLAssignments(assigns []assignment) []sqlbuilder.Assignment {
	out := make([]sqlbuilder.Assignment, len(assigns))
	for i, a := range assigns {
		out[i] = sqlbuilder.Assignment{Column: a.Column, Value: a.Value}
	}
	return out
}
