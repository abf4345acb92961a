package compiler

import (
	"context"
	"encoding/hex"
	"encoding/json"

	pgqlsql "github.com/arcflow/pgql/dialect/sql"
	"github.com/arcflow/pgql/relate"
)

// relationExecutor adapts a dialect/sql.Conn into a relate.Executor.
// Nested relationship batches decode generically by the scanned value's
// runtime Go type rather than the catalog FieldType CompileQuery's own
// top-level path uses in postprocess.go: relate.Relationship carries only
// column names, not a *catalog.Table, so the executor has no FieldType to
// key a precise decode on.
type relationExecutor struct {
	conn pgqlsql.Conn
}

func newRelationExecutor(conn pgqlsql.Conn) relate.Executor {
	return relationExecutor{conn: conn}
}

func (e relationExecutor) Query(ctx context.Context, query string, args []any) ([]relate.Row, error) {
	rows, err := e.conn.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []relate.Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(relate.Row, len(cols))
		for i, c := range cols {
			row[c] = decodeGeneric(raw[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// decodeGeneric best-effort-decodes a raw scanned value with no column
// type context: []byte that parses as JSON becomes a decoded tree (covers
// jsonb columns), any other []byte becomes a hex string (covers bytea),
// and everything else is returned as the driver scanned it (lib/pq already
// hands back time.Time for timestamps and native Go scalars for
// int/float/bool/text).
func decodeGeneric(v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	var probe any
	if json.Unmarshal(b, &probe) == nil {
		return probe
	}
	return hex.EncodeToString(b)
}

// scanRows reads every row of a *sql.Rows-shaped result into column-keyed
// maps of raw, undecoded driver values, for the top-level query/mutation
// paths that apply a precise, catalog-FieldType-driven decode afterward.
func scanRows(rows *pgqlsql.Rows) ([]map[string]any, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = raw[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
