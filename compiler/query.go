package compiler

import (
	"context"
	"encoding/json"

	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/cursor"
	"github.com/arcflow/pgql/relate"
	"github.com/arcflow/pgql/sqlbuilder"
)

// QueryResult is one compiled connection field's result: the page of rows
// (already relationship-resolved), its PageInfo fields, and totalCount
// (spec.md §4.6's Connection type).
type QueryResult struct {
	Rows        []map[string]any
	Relations   map[string]relate.Resolved
	HasNext     bool
	HasPrev     bool
	StartCursor string
	EndCursor   string
	TotalCount  int
}

// CompileQuery resolves a connection field's GraphQL arguments against
// table, executes the built SELECT, resolves every requested relationship
// selection, and decorates the result with pagination metadata (spec.md
// §4.7's query-compilation operation).
func (c *Compiler) CompileQuery(ctx context.Context, tableName string, args map[string]any, relationNames []string) (QueryResult, error) {
	snap, err := c.Reflector.Snapshot(ctx, c.Schema)
	if err != nil {
		return QueryResult{}, err
	}
	t, ok := snap.Tables[tableName]
	if !ok {
		return QueryResult{}, tableNotFound(tableName)
	}

	where, err := ParseWhere(t, args)
	if err != nil {
		return QueryResult{}, err
	}
	order, err := ParseOrderBy(t, args)
	if err != nil {
		return QueryResult{}, err
	}
	page, err := ParsePage(t.Name, args)
	if err != nil {
		return QueryResult{}, err
	}

	fetchPage, requested := withLookaheadRow(page)

	sel := sqlbuilder.Select{
		Table:   t.Name,
		Columns: columnNames(t),
		Where:   where,
		OrderBy: order,
		Page:    fetchPage,
	}
	built, err := sqlbuilder.Build(sel, columnTyper(t))
	if err != nil {
		return QueryResult{}, err
	}

	rawRows, err := c.queryRaw(ctx, c.Driver.Conn, built)
	if err != nil {
		return QueryResult{}, err
	}

	backward := page.Before != nil || page.Last != nil
	hasExtra := requested > 0 && len(rawRows) > requested
	if hasExtra {
		if backward {
			rawRows = rawRows[:requested]
		} else {
			rawRows = rawRows[:requested]
		}
	}
	if backward {
		reverseMaps(rawRows)
	}

	rows := make([]map[string]any, len(rawRows))
	for i, r := range rawRows {
		rows[i] = decodeRow(r, t, snap)
	}

	relResults, err := c.resolveRelations(ctx, snap, t, rows, relationNames)
	if err != nil {
		return QueryResult{}, err
	}

	total, err := c.count(ctx, t, where)
	if err != nil {
		return QueryResult{}, err
	}

	result := QueryResult{Rows: rows, Relations: relResults, TotalCount: total}
	if backward {
		result.HasPrev = hasExtra
	} else {
		result.HasNext = hasExtra
	}
	if page.Offset > 0 {
		result.HasPrev = true
	}
	if len(order) > 0 && len(rows) > 0 {
		start, end, err := edgeCursors(rows, order)
		if err != nil {
			return QueryResult{}, err
		}
		result.StartCursor, result.EndCursor = start, end
	}
	return result, nil
}

// withLookaheadRow increments a cursor-paginated request's row count by
// one so CompileQuery can detect whether another page remains without a
// second round-trip (the standard Relay "fetch N+1, trim the extra row"
// idiom); it returns the adjusted Page plus the originally requested
// count (0 when the page has no first/last/limit bound, meaning no
// look-ahead is applied).
func withLookaheadRow(p sqlbuilder.Page) (sqlbuilder.Page, int) {
	switch {
	case p.First != nil:
		n := *p.First
		look := n + 1
		p.First = &look
		return p, n
	case p.Last != nil:
		n := *p.Last
		look := n + 1
		p.Last = &look
		return p, n
	case p.Limit > 0:
		n := p.Limit
		p.Limit = n + 1
		return p, n
	default:
		return p, 0
	}
}

func reverseMaps(rows []map[string]any) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// edgeCursors builds the opaque start/end cursors for a page of already
// decoded rows, tagged with the requested orderBy's column names (spec.md
// §3's Cursor entity).
func edgeCursors(rows []map[string]any, order []sqlbuilder.OrderTerm) (string, string, error) {
	cols := make([]string, len(order))
	for i, t := range order {
		cols[i] = t.Column
	}
	start, err := rowCursor(rows[0], cols)
	if err != nil {
		return "", "", err
	}
	end, err := rowCursor(rows[len(rows)-1], cols)
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}

func rowCursor(row map[string]any, cols []string) (string, error) {
	values := make([]json.RawMessage, len(cols))
	for i, c := range cols {
		raw, err := json.Marshal(row[c])
		if err != nil {
			return "", err
		}
		values[i] = raw
	}
	return cursor.Encode(cursor.New(cols, values))
}

// count executes a COUNT(*) scoped by the same WhereTree as the page
// query, for the Connection type's totalCount field.
func (c *Compiler) count(ctx context.Context, t *catalog.Table, where *sqlbuilder.WhereTree) (int, error) {
	built, err := sqlbuilder.BuildCount(sqlbuilder.Count{Table: t.Name, Where: where}, columnTyper(t))
	if err != nil {
		return 0, err
	}
	rows, err := c.Driver.Conn.Query(ctx, built.SQL, built.Args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// resolveRelations runs the Relationship Resolver for every requested
// nested selection in relationNames, bounded by RelationPoolSize.
func (c *Compiler) resolveRelations(ctx context.Context, snap *catalog.Snapshot, t *catalog.Table, rows []map[string]any, relationNames []string) (map[string]relate.Resolved, error) {
	if len(relationNames) == 0 || len(rows) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(relationNames))
	for _, n := range relationNames {
		wanted[n] = true
	}
	var rels []relate.Relationship
	for _, r := range relationshipsFor(snap, t) {
		if wanted[r.Name] {
			rels = append(rels, r)
		}
	}
	if len(rels) == 0 {
		return nil, nil
	}

	parents := make([]relate.Row, len(rows))
	for i, r := range rows {
		parents[i] = relate.Row(r)
	}

	exec := newRelationExecutor(c.Driver.Conn)
	return relate.ResolveAll(ctx, exec, parents, rels, c.RelationPoolSize)
}
