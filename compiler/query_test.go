package compiler

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/arcflow/pgql/catalog"
	pgqlsql "github.com/arcflow/pgql/dialect/sql"
	"github.com/stretchr/testify/require"
)

// expectCustomersIntrospection wires up the seven bulk-introspection queries
// the Catalog Reflector issues, mirroring catalog/reflector_test.go's
// fixture, for a schema holding just the customers table.
func expectCustomersIntrospection(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT c.relname AS table_name").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers"))
	mock.ExpectQuery("c.relkind IN").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "relkind"}))
	mock.ExpectQuery("FROM pg_catalog.pg_attribute a").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "column_name", "ordinal", "nullable", "declared_type", "domain_base_type", "is_array_oid",
		}).
			AddRow("customers", "id", 1, false, "bigint", "", false).
			AddRow("customers", "email", 2, false, "text", "", false).
			AddRow("customers", "status", 3, false, "text", "", false).
			AddRow("customers", "created_at", 4, false, "timestamptz", "", false).
			AddRow("customers", "tags", 5, true, "text[]", "", true))
	mock.ExpectQuery("pg_catalog.pg_constraint con").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).AddRow("customers", "id"))
	mock.ExpectQuery("con.confrelid").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "constraint_name", "local_column", "referenced_table", "referenced_column", "local_ordinal",
		}))
	mock.ExpectQuery("pg_catalog.pg_enum e").
		WillReturnRows(sqlmock.NewRows([]string{"enum_name", "value"}))
	mock.ExpectQuery("t.typtype = 'c'").
		WillReturnRows(sqlmock.NewRows([]string{
			"composite_name", "attr_name", "attr_type", "nullable", "ordinal",
		}))
}

func newTestCompiler(t *testing.T) (*Compiler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	expectCustomersIntrospection(mock)

	reflector := catalog.New(catalog.DBAdapter{DB: db}, catalog.Options{TTL: time.Hour})
	driver := pgqlsql.OpenDB(db)
	c := New(reflector, driver, "public", 0, nil)
	return c, mock, func() { db.Close() }
}

func TestCompileQueryReturnsDecodedRowsAndTotalCount(t *testing.T) {
	c, mock, closeDB := newTestCompiler(t)
	defer closeDB()

	mock.ExpectQuery(`FROM "customers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "created_at", "tags"}).
			AddRow(int64(1), "a@example.com", "active", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "{red,blue}"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "customers"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	result, err := c.CompileQuery(context.Background(), "customers", map[string]any{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, int64(1), result.Rows[0]["id"])
	require.Equal(t, []any{"red", "blue"}, result.Rows[0]["tags"])
	require.Equal(t, 1, result.TotalCount)
	require.False(t, result.HasNext)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompileQueryUnknownTableReportsTableNotFound(t *testing.T) {
	c, mock, closeDB := newTestCompiler(t)
	defer closeDB()

	_, err := c.CompileQuery(context.Background(), "does_not_exist", map[string]any{}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompileQueryLookaheadTrimsExtraRowAndSetsHasNext(t *testing.T) {
	c, mock, closeDB := newTestCompiler(t)
	defer closeDB()

	mock.ExpectQuery(`FROM "customers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "created_at", "tags"}).
			AddRow(int64(1), "a@example.com", "active", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil).
			AddRow(int64(2), "b@example.com", "active", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), nil))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "customers"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	result, err := c.CompileQuery(context.Background(), "customers", map[string]any{"limit": float64(1)}, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.True(t, result.HasNext)

	require.NoError(t, mock.ExpectationsWereMet())
}
