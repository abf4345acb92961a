// Package pgql is the root package of the query translation engine: it
// introspects a Postgres schema, projects it into a GraphQL schema, and
// compiles GraphQL operations into parameterized SQL. See the subpackages
// catalog, typemap, sqlbuilder, binder, relate, schemagen, compiler and cdc
// for the individual components; this file holds the shared error taxonomy
// every component raises into.
package pgql

import (
	"errors"
	"fmt"
)

// Sentinel errors for cancellation and deadline handling (§5).
var (
	// ErrCancelled is returned when an operation's cancellation token trips.
	ErrCancelled = errors.New("pgql: operation cancelled")

	// ErrTimeout is returned when a per-statement or per-operation deadline
	// expires. The core never retries on timeout.
	ErrTimeout = errors.New("pgql: operation timed out")
)

// Kind identifies one of the error kinds in spec.md §7. It is carried on
// every typed error so collaborators can map it to a GraphQL machine code
// without type-switching on the Go error type.
type Kind string

// Error kinds, see spec.md §7 for the full taxonomy table.
const (
	KindTableNotFound          Kind = "TABLE_NOT_FOUND"
	KindColumnNotFound         Kind = "COLUMN_NOT_FOUND"
	KindInvalidCursor          Kind = "INVALID_CURSOR"
	KindCursorRequiresOrderBy  Kind = "CURSOR_REQUIRES_ORDER_BY"
	KindInputRequired          Kind = "INPUT_REQUIRED"
	KindNoPrimaryKey           Kind = "NO_PRIMARY_KEY"
	KindNotFound               Kind = "NOT_FOUND"
	KindTypeMismatch           Kind = "TYPE_MISMATCH"
	KindInvalidJSON            Kind = "INVALID_JSON"
	KindInvalidUUID            Kind = "INVALID_UUID"
	KindInvalidDate            Kind = "INVALID_DATE_FORMAT"
	KindInvalidNetwork         Kind = "INVALID_NETWORK"
	KindIntrospectionError     Kind = "INTROSPECTION_ERROR"
	KindTransactionFailed      Kind = "TRANSACTION_FAILED"
	KindTimeout                Kind = "TIMEOUT"
	KindCancelled              Kind = "CANCELLED"
	KindOverflow               Kind = "OVERFLOW_ERROR"
)

// Error is the typed error every component raises. It wraps an optional
// underlying cause and carries enough context (table/column) for the
// collaborator execution layer to format a useful GraphQL error.
type Error struct {
	Kind    Kind
	Table   string
	Column  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("pgql: %s: %s.%s: %s", e.Kind, e.Table, e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("pgql: %s: %s: %s", e.Kind, e.Table, e.Message)
	default:
		return fmt.Sprintf("pgql: %s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Code returns the GraphQL machine error code for this error, suitable for
// the collaborator execution layer's errors[].extensions.code field.
func (e *Error) Code() string { return string(e.Kind) }

// Is reports whether target is the same Kind, so callers can write
// errors.Is(err, pgql.ErrCancelled) style checks via the sentinel below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	switch e.Kind {
	case KindCancelled:
		return target == ErrCancelled
	case KindTimeout:
		return target == ErrTimeout
	}
	return false
}

func newErr(kind Kind, table, column, msg string, cause error) *Error {
	return &Error{Kind: kind, Table: table, Column: column, Message: msg, Err: cause}
}

// NewTableNotFoundError reports an operation naming an unknown table/view.
func NewTableNotFoundError(table string) *Error {
	return newErr(KindTableNotFound, table, "", "table or view not found in catalog", nil)
}

// NewColumnNotFoundError reports a filter/order referencing an unknown column.
func NewColumnNotFoundError(table, column string) *Error {
	return newErr(KindColumnNotFound, table, column, "column not found in catalog", nil)
}

// NewInvalidCursorError reports a cursor that failed to decode or whose
// tagged column names don't match the operation's orderBy.
func NewInvalidCursorError(table, reason string) *Error {
	return newErr(KindInvalidCursor, table, "", reason, nil)
}

// NewCursorRequiresOrderByError reports a keyset pagination argument
// (first/after/last/before) supplied without an orderBy.
func NewCursorRequiresOrderByError(table string) *Error {
	return newErr(KindCursorRequiresOrderBy, table, "", "keyset pagination requires orderBy", nil)
}

// NewInputRequiredError reports a mutation invoked without input/inputs.
func NewInputRequiredError(table string) *Error {
	return newErr(KindInputRequired, table, "", "mutation requires input", nil)
}

// NewNoPrimaryKeyError reports update/delete against a table lacking a
// primary key.
func NewNoPrimaryKeyError(table string) *Error {
	return newErr(KindNoPrimaryKey, table, "", "table has no primary key", nil)
}

// NewNotFoundError reports an update that matched zero rows.
func NewNotFoundError(table string) *Error {
	return newErr(KindNotFound, table, "", "no row matched the primary key", nil)
}

// NewTypeMismatchError reports a value that cannot be coerced to the
// column's declared type.
func NewTypeMismatchError(table, column, reason string) *Error {
	return newErr(KindTypeMismatch, table, column, reason, nil)
}

// NewInvalidJSONError reports a JSON parameter that failed to parse.
func NewInvalidJSONError(table, column string, cause error) *Error {
	return newErr(KindInvalidJSON, table, column, "value is not valid JSON", cause)
}

// NewInvalidUUIDError reports a UUID parameter that failed to parse.
func NewInvalidUUIDError(table, column string, cause error) *Error {
	return newErr(KindInvalidUUID, table, column, "value is not a valid UUID", cause)
}

// NewInvalidDateError reports a timestamp/date parameter that failed to
// normalize (§4.4 binds as text and lets the database cast instead of
// failing outright, so the Parameter Binder does not raise this kind;
// malformed cursors raise KindInvalidCursor instead).
func NewInvalidDateError(table, column string, cause error) *Error {
	return newErr(KindInvalidDate, table, column, "value is not a valid date/time", cause)
}

// NewInvalidNetworkError reports an inet/cidr/macaddr parameter that failed
// to parse.
func NewInvalidNetworkError(table, column string, cause error) *Error {
	return newErr(KindInvalidNetwork, table, column, "value is not a valid network address", cause)
}

// NewIntrospectionError reports a failed catalog refresh. The caller keeps
// serving the previous snapshot, if any (§4.1).
func NewIntrospectionError(schema string, cause error) *Error {
	return newErr(KindIntrospectionError, "", "", fmt.Sprintf("introspection of schema %q failed", schema), cause)
}

// NewTransactionFailedError reports a transactional mutation that was
// rolled back.
func NewTransactionFailedError(table string, cause error) *Error {
	return newErr(KindTransactionFailed, table, "", "transaction rolled back", cause)
}

// NewTimeoutError reports a per-statement or per-operation deadline expiry.
func NewTimeoutError(table string) *Error {
	return newErr(KindTimeout, table, "", "deadline exceeded", ErrTimeout)
}

// NewCancelledError reports a tripped cancellation token.
func NewCancelledError(table string) *Error {
	return newErr(KindCancelled, table, "", "operation cancelled", ErrCancelled)
}

// NewOverflowError reports a CDC subscriber dropped for falling behind.
// It terminates only that subscription, not the table's broadcast buffer.
func NewOverflowError(schema, table string) *Error {
	return newErr(KindOverflow, table, "", fmt.Sprintf("subscriber on %s.%s dropped: overflow", schema, table), nil)
}

// Is reports whether err is a pgql.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
