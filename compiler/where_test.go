package compiler

import (
	"testing"

	"github.com/arcflow/pgql/sqlbuilder"
	"github.com/stretchr/testify/require"
)

func TestParseWhereStructuredObject(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"where": map[string]any{
			"status_eq": "active",
			"email_ilike": "%@example.com",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, tree)
	require.Len(t, tree.And, 2)
}

func TestParseWhereLegacyFlatSyntax(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"status_eq": "active",
	})
	require.NoError(t, err)
	require.NotNil(t, tree)
	require.Equal(t, "status", tree.Cond.Column)
	require.Equal(t, sqlbuilder.OpEQ, tree.Cond.Op)
	require.Equal(t, "active", tree.Cond.Value)
}

func TestParseWhereCombinesStructuredAndFlat(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"where":       map[string]any{"status_eq": "active"},
		"email_neq": "blocked@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, tree)
	require.Len(t, tree.And, 2)
}

func TestParseWhereOrList(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"where": map[string]any{"status_eq": "active"},
		"or": []any{
			map[string]any{"status_eq": "pending"},
			map[string]any{"status_eq": "gold"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, tree)

	// A top-level "where" AND-combines with the top-level "or" alternatives
	// ORed together, not flattened into one Or list (spec.md §4.3/§8).
	require.Len(t, tree.And, 2)
	require.Equal(t, sqlbuilder.OpEQ, tree.And[0].Cond.Op)
	require.Equal(t, "active", tree.And[0].Cond.Value)
	require.Len(t, tree.And[1].Or, 2)
	require.Equal(t, "pending", tree.And[1].Or[0].Cond.Value)
	require.Equal(t, "gold", tree.And[1].Or[1].Cond.Value)
}

func TestParseWhereOrListSingleAltCollapses(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"where": map[string]any{"status_eq": "active"},
		"or": []any{
			map[string]any{"status_eq": "pending"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, tree)
	require.Len(t, tree.And, 2)
	require.Equal(t, "active", tree.And[0].Cond.Value)
	require.Equal(t, "pending", tree.And[1].Cond.Value)
}

func TestParseWhereGreedySuffixMatch(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"status_neq": "closed",
	})
	require.NoError(t, err)
	require.Equal(t, sqlbuilder.OpNEQ, tree.Cond.Op)
	require.Equal(t, "status", tree.Cond.Column)
}

func TestParseWhereIsNullHasNoValue(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"status_isNull": true,
	})
	require.NoError(t, err)
	require.Equal(t, sqlbuilder.OpIsNull, tree.Cond.Op)
	require.Nil(t, tree.Cond.Value)
}

func TestParseWhereInOperatorBindsArrayLiteral(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"where": map[string]any{
			"status_in": []any{"active", "pending"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, sqlbuilder.OpIn, tree.Cond.Op)
	require.Equal(t, `{"active","pending"}`, tree.Cond.Value)
}

func TestParseWhereMalformedWhereShape(t *testing.T) {
	tbl := customersTable()
	_, err := ParseWhere(tbl, map[string]any{
		"where": "not-an-object",
	})
	require.Error(t, err)
}

func TestParseWhereUnknownColumnIgnored(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{
		"nonexistent_eq": "x",
	})
	require.NoError(t, err)
	require.Nil(t, tree)
}

func TestParseWhereNoArgsReturnsNilTree(t *testing.T) {
	tbl := customersTable()
	tree, err := ParseWhere(tbl, map[string]any{})
	require.NoError(t, err)
	require.Nil(t, tree)
}
