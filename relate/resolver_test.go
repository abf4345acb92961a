package relate

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	calls int
	rows  []Row
}

func (f *fakeExecutor) Query(ctx context.Context, sql string, args []any) ([]Row, error) {
	f.calls++
	return f.rows, nil
}

func TestResolveBelongsToSingleQuery(t *testing.T) {
	exec := &fakeExecutor{rows: []Row{
		{"id": "1", "name": "Acme"},
		{"id": "2", "name": "Globex"},
	}}
	parents := []Row{
		{"id": "100", "customer_id": "1"},
		{"id": "101", "customer_id": "2"},
		{"id": "102", "customer_id": "1"},
	}
	rel := Relationship{
		Name:           "customer",
		Direction:      BelongsTo,
		LocalColumns:   []string{"customer_id"},
		ForeignTable:   "customers",
		ForeignColumns: []string{"id"},
		SelectColumns:  []string{"id", "name"},
	}

	resolved, err := Resolve(context.Background(), exec, parents, rel)
	require.NoError(t, err)
	require.Equal(t, 1, exec.calls)
	require.Equal(t, "Acme", resolved.Single[0]["name"])
	require.Equal(t, "Globex", resolved.Single[1]["name"])
	require.Equal(t, "Acme", resolved.Single[2]["name"])
}

func TestResolveHasManyGroups(t *testing.T) {
	exec := &fakeExecutor{rows: []Row{
		{"id": "10", "customer_id": "1"},
		{"id": "11", "customer_id": "1"},
		{"id": "12", "customer_id": "2"},
	}}
	parents := []Row{
		{"id": "1"},
		{"id": "2"},
	}
	rel := Relationship{
		Name:           "orders",
		Direction:      HasMany,
		LocalColumns:   []string{"id"},
		ForeignTable:   "orders",
		ForeignColumns: []string{"customer_id"},
		SelectColumns:  []string{"id", "customer_id"},
	}

	resolved, err := Resolve(context.Background(), exec, parents, rel)
	require.NoError(t, err)
	require.Len(t, resolved.Many[0], 2)
	require.Len(t, resolved.Many[1], 1)
}

func TestResolveSkipsQueryWhenNoKeysPresent(t *testing.T) {
	exec := &fakeExecutor{}
	parents := []Row{{"id": "1"}}
	rel := Relationship{
		Name:         "customer",
		Direction:    BelongsTo,
		LocalColumns: []string{"customer_id"},
	}

	resolved, err := Resolve(context.Background(), exec, parents, rel)
	require.NoError(t, err)
	require.Equal(t, 0, exec.calls)
	require.Nil(t, resolved.Single)
}

func TestResolveSkipsQueryWhenAllKeysNull(t *testing.T) {
	exec := &fakeExecutor{}
	parents := []Row{
		{"id": "1", "customer_id": nil},
		{"id": "2", "customer_id": nil},
	}
	rel := Relationship{
		Name:           "customer",
		Direction:      BelongsTo,
		LocalColumns:   []string{"customer_id"},
		ForeignTable:   "customers",
		ForeignColumns: []string{"id"},
	}

	resolved, err := Resolve(context.Background(), exec, parents, rel)
	require.NoError(t, err)
	require.Equal(t, 0, exec.calls)
	require.Len(t, resolved.Single, 2)
}

func TestResolveAllFansOutConcurrently(t *testing.T) {
	exec := &fakeExecutor{rows: []Row{{"id": "1"}}}
	parents := []Row{{"id": "100", "customer_id": "1", "product_id": "1"}}
	rels := []Relationship{
		{Name: "customer", Direction: BelongsTo, LocalColumns: []string{"customer_id"}, ForeignTable: "customers", ForeignColumns: []string{"id"}},
		{Name: "product", Direction: BelongsTo, LocalColumns: []string{"product_id"}, ForeignTable: "products", ForeignColumns: []string{"id"}},
	}

	results, err := ResolveAll(context.Background(), exec, parents, rels, 4)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Contains(t, results, "customer")
	require.Contains(t, results, "product")
}

func TestCompositeForeignKeyUsesRowValueIn(t *testing.T) {
	exec := &fakeExecutor{rows: []Row{
		{"tenant_id": "t1", "id": "a1", "name": "x"},
	}}
	parents := []Row{
		{"tenant_id": "t1", "ref_id": "a1"},
	}
	rel := Relationship{
		Name:           "ref",
		Direction:      BelongsTo,
		LocalColumns:   []string{"tenant_id", "ref_id"},
		ForeignTable:   "refs",
		ForeignColumns: []string{"tenant_id", "id"},
		SelectColumns:  []string{"tenant_id", "id", "name"},
	}

	resolved, err := Resolve(context.Background(), exec, parents, rel)
	require.NoError(t, err)
	require.Equal(t, "x", resolved.Single[0]["name"])
}

// TestBuildBatchQuerySingleColumnBindsDriverValuer confirms the single-FK
// case binds a database/sql-valid parameter: a raw []interface{} isn't
// driver.Value-convertible and isn't a driver.Valuer, so it would fail at
// the driver layer for every BelongsTo/HasMany resolution.
func TestBuildBatchQuerySingleColumnBindsDriverValuer(t *testing.T) {
	rel := Relationship{
		Name:           "customer",
		Direction:      BelongsTo,
		LocalColumns:   []string{"customer_id"},
		ForeignTable:   "customers",
		ForeignColumns: []string{"id"},
		SelectColumns:  []string{"id", "name"},
	}

	sql, args := buildBatchQuery(rel, []string{"1", "2", "3"})
	require.Contains(t, sql, "= ANY($1)")
	require.Len(t, args, 1)

	_, ok := args[0].(driver.Valuer)
	require.True(t, ok, "single-column batch arg must be a driver.Valuer (e.g. pq.Array), not a bare slice")
}
