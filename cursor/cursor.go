// Package cursor implements the opaque keyset-pagination cursor described
// in spec.md §3 ("Cursor entity") and §4.3 (keyset windows): a tuple of the
// values of the orderBy columns for a given row, tagged with the column
// names so a cursor produced for one orderBy can never silently be applied
// to a different one.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor is the decoded form of an opaque pagination cursor.
type Cursor struct {
	// Columns are the orderBy column names, in orderBy order.
	Columns []string `json:"c"`
	// Values are the corresponding column values of the row the cursor
	// points at, JSON-encoded so any scalar (including timestamps as
	// strings, numerics, uuids) round-trips exactly.
	Values []json.RawMessage `json:"v"`
}

// Encode renders a Cursor as the opaque string handed back to the client
// as Edge.cursor / pageInfo.startCursor/endCursor.
func Encode(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("cursor: encode: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// MustEncode is Encode but panics on error; only safe when the caller
// constructed c itself from known-good JSON values (e.g. marshaling scan
// results the engine already validated).
func MustEncode(c Cursor) string {
	s, err := Encode(c)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses an opaque cursor string back into a Cursor. It does not
// validate the Columns against the current orderBy — callers must call
// Validate for that (spec.md's "tagged with column names to reject
// cursor/orderBy mismatch").
func Decode(opaque string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return Cursor{}, fmt.Errorf("cursor: malformed encoding: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("cursor: malformed payload: %w", err)
	}
	if len(c.Columns) == 0 || len(c.Columns) != len(c.Values) {
		return Cursor{}, fmt.Errorf("cursor: column/value count mismatch")
	}
	return c, nil
}

// Validate reports whether the cursor's tagged column names exactly match
// orderByColumns, in order. A mismatch means the cursor was produced for a
// different orderBy and must be rejected (spec.md's InvalidCursor kind).
func (c Cursor) Validate(orderByColumns []string) error {
	if len(c.Columns) != len(orderByColumns) {
		return fmt.Errorf("cursor: expected %d ordering column(s), got %d", len(orderByColumns), len(c.Columns))
	}
	for i, col := range orderByColumns {
		if c.Columns[i] != col {
			return fmt.Errorf("cursor: column %d is %q, orderBy expects %q", i, c.Columns[i], col)
		}
	}
	return nil
}

// Value returns the decoded JSON value at position i as a generic any
// (string/float64/bool/nil/map/slice per encoding/json's default decoding).
func (c Cursor) Value(i int) (any, error) {
	var v any
	if err := json.Unmarshal(c.Values[i], &v); err != nil {
		return nil, fmt.Errorf("cursor: decode value %d: %w", i, err)
	}
	return v, nil
}

// RawValue returns the raw JSON bytes of the value at position i, useful
// when the caller wants to bind it straight through to a parameter without
// a round-trip through `any`.
func (c Cursor) RawValue(i int) json.RawMessage { return c.Values[i] }

// New builds a Cursor from parallel column-name/JSON-value slices, as
// produced by the SQL Builder after scanning a row's orderBy columns.
func New(columns []string, values []json.RawMessage) Cursor {
	return Cursor{Columns: columns, Values: values}
}
