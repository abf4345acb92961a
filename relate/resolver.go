package relate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/arcflow/pgql/dialect/sql"
	"golang.org/x/sync/errgroup"
)

// Row is one scanned database row, keyed by column name.
type Row map[string]any

// Direction distinguishes which side of a foreign key the relationship
// field traverses: BelongsTo follows the parent's own FK columns to a
// single referenced row; HasMany follows a child table's FK columns back
// to the parent (spec.md §4.5).
type Direction string

const (
	BelongsTo Direction = "belongs_to"
	HasMany   Direction = "has_many"
)

// Relationship describes one FK-backed traversal to batch.
type Relationship struct {
	Name      string
	Direction Direction

	// LocalColumns are the join-key columns read off each parent row.
	LocalColumns []string

	ForeignTable   string
	ForeignColumns []string

	// Columns to select from ForeignTable.
	SelectColumns []string
}

// Executor runs a parameterized query and returns the decoded rows. The
// Query Compiler's driver wrapper satisfies this.
type Executor interface {
	Query(ctx context.Context, sql string, args []any) ([]Row, error)
}

// Resolved holds one relationship's batched results, keyed by the parent
// row's index in the slice passed to Resolve. A BelongsTo field resolves
// to at most one Row per parent; a HasMany field resolves to zero or more.
type Resolved struct {
	Single []Row   // index i holds parent i's related row, or nil
	Many   [][]Row // index i holds parent i's related rows, or nil
}

// Resolve batches the traversal of rel across every row in parents into a
// single SQL query (or zero queries if no parent carries a non-null join
// key), per spec.md §4.5's "at most one query per relationship per batch"
// guarantee. A parent whose LocalColumns are absent from the selection (not
// merely null-valued) resolves to nil, distinguishing "not requested" data
// from "no related row".
func Resolve(ctx context.Context, exec Executor, parents []Row, rel Relationship) (Resolved, error) {
	keys, present := collectKeys(parents, rel.LocalColumns)
	if !present {
		return Resolved{}, nil
	}

	unique := UniqueKeys(keys, func(k string) bool { return k == "" })
	if len(unique) == 0 {
		return emptyResolved(rel.Direction, len(parents)), nil
	}

	query, args := buildBatchQuery(rel, unique)
	rows, err := exec.Query(ctx, query, args)
	if err != nil {
		return Resolved{}, fmt.Errorf("relate: resolve %q: %w", rel.Name, err)
	}

	keyOf := func(r Row) string { return compositeKey(r, rel.ForeignColumns) }

	switch rel.Direction {
	case BelongsTo:
		ordered := OrderByKeys(keys, rows, keyOf)
		single := make([]Row, len(parents))
		for i, r := range ordered {
			if r != nil {
				single[i] = r
			}
		}
		return Resolved{Single: single}, nil
	default:
		groups := GroupByKey(rows, keyOf)
		many := OrderGroupsByKeys(keys, groups)
		return Resolved{Many: many}, nil
	}
}

// ResolveAll runs Resolve for every relationship concurrently, bounded by
// poolSize, using golang.org/x/sync/errgroup for the fan-out and
// first-error cancellation described in spec.md §5. Results are returned
// keyed by relationship name.
func ResolveAll(ctx context.Context, exec Executor, parents []Row, rels []Relationship, poolSize int) (map[string]Resolved, error) {
	results := make(map[string]Resolved, len(rels))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if poolSize > 0 {
		g.SetLimit(poolSize)
	}

	for _, rel := range rels {
		rel := rel
		g.Go(func() error {
			resolved, err := Resolve(gctx, exec, parents, rel)
			if err != nil {
				return err
			}
			mu.Lock()
			results[rel.Name] = resolved
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func collectKeys(parents []Row, localCols []string) ([]string, bool) {
	keys := make([]string, len(parents))
	anyPresent := false
	for i, p := range parents {
		if !columnsPresent(p, localCols) {
			continue
		}
		anyPresent = true
		keys[i] = compositeKey(p, localCols)
	}
	return keys, anyPresent
}

func columnsPresent(r Row, cols []string) bool {
	for _, c := range cols {
		if _, ok := r[c]; !ok {
			return false
		}
	}
	return true
}

// compositeKey joins a row's values for cols into one deterministic string
// key, used both to group batch results and to key the parents slice.
func compositeKey(r Row, cols []string) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v, ok := r[c]
		if !ok || v == nil {
			return ""
		}
		fmt.Fprintf(&b, "%v", v)
	}
	return b.String()
}

func emptyResolved(dir Direction, n int) Resolved {
	if dir == BelongsTo {
		return Resolved{Single: make([]Row, n)}
	}
	return Resolved{Many: make([][]Row, n)}
}

// buildBatchQuery renders the one batched SELECT for rel against the
// distinct, non-empty composite keys gathered from the parent rows. For a
// single-column key it uses "= ANY($1)"; for a composite key it uses a
// row-value IN list, since Postgres has no array-of-tuples equivalent of
// ANY() for composite comparisons.
func buildBatchQuery(rel Relationship, keys []string) (string, []any) {
	var buf strings.Builder
	buf.WriteString("SELECT ")
	for i, c := range rel.SelectColumns {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(sql.QuoteIdent(c))
	}
	buf.WriteString(" FROM ")
	buf.WriteString(sql.QuoteIdent(rel.ForeignTable))
	buf.WriteString(" WHERE ")

	if len(rel.ForeignColumns) == 1 {
		fmt.Fprintf(&buf, "%s = ANY($1)", sql.QuoteIdent(rel.ForeignColumns[0]))
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = k
		}
		return buf.String(), []any{pq.Array(values)}
	}

	var cols []string
	for _, c := range rel.ForeignColumns {
		cols = append(cols, sql.QuoteIdent(c))
	}
	fmt.Fprintf(&buf, "(%s) IN (", strings.Join(cols, ", "))

	var args []any
	argN := 0
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		parts := strings.Split(k, "\x1f")
		buf.WriteByte('(')
		for j, p := range parts {
			if j > 0 {
				buf.WriteString(", ")
			}
			argN++
			args = append(args, p)
			fmt.Fprintf(&buf, "$%d", argN)
		}
		buf.WriteByte(')')
	}
	buf.WriteByte(')')

	return buf.String(), args
}
