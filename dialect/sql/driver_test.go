package sql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestConnExecQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)

	mock.ExpectExec(`INSERT INTO "customer"`).WithArgs("jane@example.com").WillReturnResult(sqlmock.NewResult(1, 1))
	res, err := drv.Conn.Exec(context.Background(), `INSERT INTO "customer" ("email") VALUES ($1)`, []any{"jane@example.com"})
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows, err := drv.Conn.Query(context.Background(), `SELECT "id" FROM "customer"`, nil)
	require.NoError(t, err)
	require.True(t, rows.Next())
	require.NoError(t, rows.Close())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarSetsSessionVariable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(db)

	mock.ExpectExec(`SET statement_timeout = '5000'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	ctx := WithIntVar(context.Background(), "statement_timeout", 5000)
	_, err = drv.Conn.Query(ctx, "SELECT 1", nil)
	require.NoError(t, err)
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, `"customer"`, QuoteIdent("customer"))
	require.Equal(t, `"weird""name"`, QuoteIdent(`weird"name`))
	require.Equal(t, `"public"."customer"`, QualifyIdent("public", "customer"))
}

func TestIsValidIdentifier(t *testing.T) {
	require.True(t, isValidIdentifier("statement_timeout"))
	require.True(t, isValidIdentifier("app.current_user"))
	require.False(t, isValidIdentifier("bad; drop table x"))
	require.False(t, isValidIdentifier(""))
}
