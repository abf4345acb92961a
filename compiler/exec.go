package compiler

import (
	"context"

	"github.com/arcflow/pgql"
	pgqlsql "github.com/arcflow/pgql/dialect/sql"
	"github.com/arcflow/pgql/sqlbuilder"
)

// queryRaw executes a built SELECT/COUNT statement through conn and scans
// every result row into an undecoded, column-keyed map.
func (c *Compiler) queryRaw(ctx context.Context, conn pgqlsql.Conn, built sqlbuilder.Built) ([]map[string]any, error) {
	rows, err := conn.Query(ctx, built.SQL, built.Args)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

// queryOneRaw runs a RETURNING statement (insert/update/delete) through
// conn and scans its single result row, or reports ok=false when it
// returned none.
func (c *Compiler) queryOneRaw(ctx context.Context, conn pgqlsql.Conn, built sqlbuilder.Built) (map[string]any, bool, error) {
	rows, err := c.queryRaw(ctx, conn, built)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func tableNotFound(table string) error {
	return pgql.NewTableNotFoundError(table)
}
