package cdc

import (
	"regexp"
	"strconv"

	"github.com/arcflow/pgql/catalog"
)

// positionalColumn matches the col_0, col_1, ... labels spec.md §4.8
// requires remapping to real column names before emission.
var positionalColumn = regexp.MustCompile(`^col_(\d+)$`)

// remapPositional rewrites any positional column label in raw to the
// matching column name from tbl's declared column order; a nil tbl returns
// raw unchanged. Non-positional keys and labels with no
// corresponding column (index out of range, or table unknown) pass
// through unchanged rather than being dropped, since a stale snapshot
// mid-DDL is an open question the source leaves unresolved (spec.md §9).
func remapPositional(raw map[string]any, tbl *catalog.Table) map[string]any {
	if tbl == nil || len(raw) == 0 {
		return raw
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		m := positionalColumn.FindStringSubmatch(k)
		if m == nil {
			out[k] = v
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= len(tbl.Columns) {
			out[k] = v
			continue
		}
		out[tbl.Columns[idx].Name] = v
	}
	return out
}
