package cdc

import (
	"testing"

	"github.com/arcflow/pgql/catalog"
	"github.com/stretchr/testify/require"
)

func widgetsTable() *catalog.Table {
	return &catalog.Table{
		Name: "widgets",
		Columns: []catalog.Column{
			{Name: "id", IsPrimaryKey: true},
			{Name: "name"},
			{Name: "price"},
		},
	}
}

func TestRemapPositionalRewritesColNLabels(t *testing.T) {
	raw := map[string]any{"col_0": int64(1), "col_1": "widget", "col_2": "9.99"}
	out := remapPositional(raw, widgetsTable())
	require.Equal(t, map[string]any{"id": int64(1), "name": "widget", "price": "9.99"}, out)
}

func TestRemapPositionalLeavesNamedColumnsUntouched(t *testing.T) {
	raw := map[string]any{"id": int64(1), "name": "widget"}
	out := remapPositional(raw, widgetsTable())
	require.Equal(t, raw, out)
}

func TestRemapPositionalOutOfRangeIndexPassesThrough(t *testing.T) {
	raw := map[string]any{"col_99": "mystery"}
	out := remapPositional(raw, widgetsTable())
	require.Equal(t, "mystery", out["col_99"])
}

func TestRemapPositionalNilTablePassesThrough(t *testing.T) {
	raw := map[string]any{"col_0": "x"}
	out := remapPositional(raw, nil)
	require.Equal(t, raw, out)
}
