// Package sql provides the low-level database/sql plumbing shared by the
// SQL Builder, Relationship Resolver and Query Compiler: a Driver/Conn/Tx
// wrapper around database/sql plus session-variable propagation (WithVar/
// WithIntVar, e.g. for a per-statement "statement_timeout").
//
// The engine targets a single dialect (Postgres), so unlike the teacher's
// original multi-dialect version this package does not switch behavior on
// a dialect string; the one remaining dialect-shaped knob is the driver
// name passed to database/sql.Open ("postgres" via lib/pq, or any
// database/sql-registered driver that speaks the Postgres wire protocol).
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// Driver wraps a database/sql.DB (or a compatible Conn) for the engine.
type Driver struct {
	Conn
}

// NewDriver creates a new Driver around the given Conn.
func NewDriver(c Conn) *Driver {
	return &Driver{Conn: c}
}

// Open wraps database/sql.Open for the named driver (typically "postgres").
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(Conn{db}), nil
}

// OpenDB wraps an already-open database/sql.DB.
func OpenDB(db *sql.DB) *Driver {
	return NewDriver(Conn{db})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Tx starts and returns a transaction (used by createWithRelationships,
// spec.md §4.7, the only core operation that opens a transaction).
func (d *Driver) Tx(ctx context.Context) (*Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Conn: Conn{tx}, Tx: tx}, nil
}

// Close closes the underlying connection pool.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx wraps a database/sql.Tx with the engine's Conn helpers.
type Tx struct {
	Conn
	*sql.Tx
}

// ctxVarsKey is the context key for attached session variables.
type ctxVarsKey struct{}

// sessionVars holds session/transaction variables to SET before a statement.
type sessionVars struct {
	vars []struct{ k, v string }
}

// WithVar returns a context carrying a session variable (e.g.
// "statement_timeout") to be set before the next statement executed through
// this Conn.
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	sv.vars = append(sv.vars, struct{ k, v string }{k: name, v: value})
	return context.WithValue(ctx, ctxVarsKey{}, sv)
}

// VarFromContext returns a session variable previously attached via WithVar.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for _, s := range sv.vars {
		if s.k == name {
			return s.v, true
		}
	}
	return "", false
}

// WithIntVar is WithVar for integer-valued variables, e.g. statement_timeout
// in milliseconds.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// ExecQuerier wraps the database/sql Exec/Query methods the engine needs.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn adapts an ExecQuerier (*sql.DB or *sql.Tx) with session-variable
// propagation.
type Conn struct {
	ExecQuerier
}

// Exec runs a statement, optionally applying pending session variables
// from the context first.
func (c Conn) Exec(ctx context.Context, query string, args []any) (res sql.Result, rerr error) {
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	res, err = ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return res, nil
}

// Query runs a query, optionally applying pending session variables from
// the context first. The returned Rows must be closed by the caller; if a
// dedicated connection was leased to apply session variables, closing the
// rows also returns that connection to the pool.
func (c Conn) Query(ctx context.Context, query string, args []any) (*Rows, error) {
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	if cf != nil {
		return &Rows{Rows: rows, closer: cf}, nil
	}
	return &Rows{Rows: rows}, nil
}

// Rows wraps *sql.Rows so a connection leased to apply session variables is
// released when the result set is closed.
type Rows struct {
	*sql.Rows
	closer func() error
}

// Close closes the result set and releases any leased connection.
func (r *Rows) Close() error {
	err := r.Rows.Close()
	if r.closer != nil {
		err = errors.Join(err, r.closer())
	}
	return err
}

// maySetVars sets the session variables before executing a query. If the
// underlying ExecQuerier is a *sql.DB, a dedicated *sql.Conn is leased so
// SET takes effect for the statement that follows on the same connection;
// the returned close function resets the variables and releases it.
func (c Conn) maySetVars(ctx context.Context) (ExecQuerier, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c, nil, nil
	}
	var (
		ex    ExecQuerier
		cf    func() error
		reset []string
		seen  = make(map[string]struct{}, len(sv.vars))
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, cf = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	for _, s := range sv.vars {
		if !isValidIdentifier(s.k) {
			if cf != nil {
				_ = cf()
			}
			return nil, nil, fmt.Errorf("invalid session variable name: %q", s.k)
		}
		if _, ok := seen[s.k]; !ok {
			reset = append(reset, fmt.Sprintf("RESET %s", s.k))
			seen[s.k] = struct{}{}
		}
		stmt := fmt.Sprintf("SET %s = %s", s.k, pq.QuoteLiteral(s.v))
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}
	if cls := cf; cf != nil && len(reset) > 0 {
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanupCtx, q); err != nil {
					return errors.Join(err, cls())
				}
			}
			return cls()
		}
	}
	return ex, cf, nil
}
