package sqlbuilder

import (
	"encoding/json"
	"testing"

	"github.com/arcflow/pgql/cursor"
	"github.com/arcflow/pgql/typemap"
	"github.com/stretchr/testify/require"
)

func customersTypes() ColumnTyper {
	return TableColumnTyper(func(name string) (typemap.FieldType, bool) {
		switch name {
		case "id":
			return typemap.Map("integer"), true
		case "email":
			return typemap.Map("text"), true
		case "status":
			return typemap.Map("text"), true
		case "tags":
			return typemap.Map("text[]"), true
		case "created_at":
			return typemap.Map("timestamp with time zone"), true
		case "order_date":
			return typemap.Map("date"), true
		case "host":
			return typemap.Map("inet"), true
		default:
			return typemap.FieldType{}, false
		}
	})
}

func TestBuildSimpleEquality(t *testing.T) {
	sel := Select{
		Table:   "customers",
		Columns: []string{"id", "email"},
		Where: &WhereTree{Cond: &Condition{
			Column: "email", Op: OpEQ, Value: "a@example.com",
		}},
		Page: Page{Limit: 10},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, `"email" = $1`)
	require.Contains(t, built.SQL, "LIMIT 10")
	require.Equal(t, []any{"a@example.com"}, built.Args)
}

func TestBuildAndOr(t *testing.T) {
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		Where: &WhereTree{Or: []*WhereTree{
			{Cond: &Condition{Column: "status", Op: OpEQ, Value: "vip"}},
			{And: []*WhereTree{
				{Cond: &Condition{Column: "status", Op: OpEQ, Value: "active"}},
				{Cond: &Condition{Column: "id", Op: OpGT, Value: 100}},
			}},
		}},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, "OR")
	require.Contains(t, built.SQL, "AND")
	require.Len(t, built.Args, 3)
}

func TestBuildRejectsUnknownColumn(t *testing.T) {
	sel := Select{
		Table: "customers",
		Where: &WhereTree{Cond: &Condition{Column: "nope", Op: OpEQ, Value: 1}},
	}
	_, err := Build(sel, customersTypes())
	require.Error(t, err)
}

func TestBuildCastsArrayAndTimestamp(t *testing.T) {
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		Where: &WhereTree{And: []*WhereTree{
			{Cond: &Condition{Column: "tags", Op: OpEQ, Value: []string{"vip"}}},
			{Cond: &Condition{Column: "created_at", Op: OpGTE, Value: "2026-01-01T00:00:00Z"}},
		}},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, "::text[]")
	require.Contains(t, built.SQL, "::timestamptz")
}

func TestKeysetPaginationRequiresOrderBy(t *testing.T) {
	first := 10
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		Page:    Page{First: &first},
	}
	_, err := Build(sel, customersTypes())
	require.Error(t, err)
}

func TestKeysetWindowSingleColumnAscending(t *testing.T) {
	first := 10
	c := cursor.New([]string{"id"}, []json.RawMessage{[]byte(`42`)})
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		OrderBy: []OrderTerm{{Column: "id", Direction: Asc}},
		Page:    Page{First: &first, After: &c},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, `("id") > ($1)`)
	require.Contains(t, built.SQL, "ORDER BY")
	require.Contains(t, built.SQL, "LIMIT 10")
}

func TestKeysetWindowMixedDirections(t *testing.T) {
	last := 5
	c := cursor.New([]string{"status", "id"}, []json.RawMessage{[]byte(`"vip"`), []byte(`7`)})
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		OrderBy: []OrderTerm{
			{Column: "status", Direction: Asc},
			{Column: "id", Direction: Desc},
		},
		Page: Page{Last: &last, Before: &c},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	// Before/Last reverses orderBy directions for the fetch window.
	require.Contains(t, built.SQL, `"status" DESC`)
	require.Contains(t, built.SQL, `"id" ASC`)
}

func TestBuildInOperatorCastsToArrayType(t *testing.T) {
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		Where: &WhereTree{Cond: &Condition{
			Column: "order_date", Op: OpIn, Value: `{"2026-01-01","2026-01-02"}`,
		}},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, "= ANY($1::date[])")
	require.NotContains(t, built.SQL, "ANY($1::date)")
}

func TestBuildNotInOperatorCastsToArrayType(t *testing.T) {
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		Where: &WhereTree{Cond: &Condition{
			Column: "order_date", Op: OpNotIn, Value: `{"2026-01-01"}`,
		}},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, "!= ALL($1::date[])")
}

func TestBuildContainsDefaultsToCaseSensitiveLike(t *testing.T) {
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		Where: &WhereTree{Cond: &Condition{
			Column: "email", Op: OpContains, Value: "acme",
		}},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, `"email" LIKE $1`)
	require.NotContains(t, built.SQL, "ILIKE")
}

func TestBuildContainsUsesILikeForNetworkTypes(t *testing.T) {
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		Where: &WhereTree{Cond: &Condition{
			Column: "host", Op: OpStartsWith, Value: "10.0",
		}},
	}
	built, err := Build(sel, customersTypes())
	require.NoError(t, err)
	require.Contains(t, built.SQL, `"host" ILIKE $1`)
}

func TestKeysetCursorColumnMismatchRejected(t *testing.T) {
	first := 10
	c := cursor.New([]string{"email"}, []json.RawMessage{[]byte(`"x@example.com"`)})
	sel := Select{
		Table:   "customers",
		Columns: []string{"id"},
		OrderBy: []OrderTerm{{Column: "id", Direction: Asc}},
		Page:    Page{First: &first, After: &c},
	}
	_, err := Build(sel, customersTypes())
	require.Error(t, err)
}
