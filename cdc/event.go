// Package cdc implements the CDC Fan-out (spec.md §4.8): it consumes a
// logical-replication stream, translates each change into an Event, and
// distributes Events to subscribers through a per-table broadcast buffer
// with lazy create/teardown and bounded-queue backpressure.
package cdc

import "github.com/arcflow/pgql"

// Kind identifies the replication message an Event was derived from, per
// spec.md §3's CDC entity definition.
type Kind string

const (
	KindBegin  Kind = "BEGIN"
	KindCommit Kind = "COMMIT"
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"

	// KindHealth marks a heartbeat event published on the "health"
	// pseudo-table subscription (spec.md §4.6).
	KindHealth Kind = "HEALTH"

	// KindError marks a malformed-payload or terminal-overflow marker
	// event rather than crashing the stream (spec.md §4.8).
	KindError Kind = "ERROR"
)

// Event is one row-level change (or control message) delivered to CDC
// subscribers, per spec.md §3: "Event{kind, schema, table, lsn, payload}".
type Event struct {
	Kind   Kind
	Schema string
	Table  string
	LSN    uint64

	// New holds the post-change column values for Insert/Update, decoded
	// and name-mapped against the current catalog snapshot. Old holds the
	// pre-change values, populated only for Update (and Delete, when the
	// replica identity includes them).
	New map[string]any
	Old map[string]any

	// Err is set on KindError events: a malformed payload that couldn't be
	// decoded, or the terminal marker delivered to a subscriber dropped
	// for overflow (spec.md §7 OverflowError).
	Err error
}

// errorEvent builds a KindError marker event, used both for malformed
// payloads encountered mid-stream and for the terminal overflow notice a
// dropped subscriber receives before its channel is closed.
func errorEvent(schema, table string, err error) Event {
	return Event{Kind: KindError, Schema: schema, Table: table, Err: err}
}

// overflowEvent is the terminal event a subscriber receives when it is
// dropped from a table's broadcast buffer for falling behind.
func overflowEvent(schema, table string) Event {
	return errorEvent(schema, table, pgql.NewOverflowError(schema, table))
}
