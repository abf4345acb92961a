package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflectorBulkIntrospection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT c.relname AS table_name").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("customers").
			AddRow("orders"))

	mock.ExpectQuery("c.relkind IN \\('v', 'm'\\)").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "relkind"}).
			AddRow("active_customers", "v"))

	mock.ExpectQuery("FROM pg_catalog.pg_attribute a").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "column_name", "ordinal", "nullable", "declared_type", "domain_base_type", "is_array_oid",
		}).
			AddRow("customers", "id", 1, false, "integer", "", false).
			AddRow("customers", "email", 2, false, "character varying(255)", "", false).
			AddRow("customers", "tags", 3, true, "text[]", "", true).
			AddRow("orders", "id", 1, false, "integer", "", false).
			AddRow("orders", "customer_id", 2, false, "integer", "", false))

	mock.ExpectQuery("pg_catalog.pg_constraint con").
		WithArgs("public", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).
			AddRow("customers", "id").
			AddRow("orders", "id"))

	mock.ExpectQuery("con.confrelid").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "constraint_name", "local_column", "referenced_table", "referenced_column", "local_ordinal",
		}).
			AddRow("orders", "orders_customer_id_fkey", "customer_id", "customers", "id", 1))

	mock.ExpectQuery("pg_catalog.pg_enum e").
		WillReturnRows(sqlmock.NewRows([]string{"enum_name", "value"}).
			AddRow("order_status", "pending").
			AddRow("order_status", "shipped"))

	mock.ExpectQuery("t.typtype = 'c'").
		WillReturnRows(sqlmock.NewRows([]string{
			"composite_name", "attr_name", "attr_type", "nullable", "ordinal",
		}))

	r := New(DBAdapter{DB: db}, Options{TTL: time.Minute})
	snap, err := r.Snapshot(context.Background(), "public")
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"customers", "orders", "active_customers"}, snap.TableNames())

	customers := snap.Tables["customers"]
	require.Equal(t, KindBaseTable, customers.Kind)
	require.Equal(t, []string{"id"}, customers.PrimaryKey())
	tags, ok := customers.Column("tags")
	require.True(t, ok)
	require.True(t, tags.IsArray)
	require.NotNil(t, tags.BaseType)

	active := snap.Tables["active_customers"]
	require.Equal(t, KindView, active.Kind)

	orders := snap.Tables["orders"]
	fk, ok := orders.ForeignKeyOn([]string{"customer_id"})
	require.True(t, ok)
	require.Equal(t, "customers", fk.ReferencedTable)
	require.Equal(t, []string{"id"}, fk.ReferencedColumns)

	require.Equal(t, []string{"pending", "shipped"}, snap.Enums["order_status"].Values)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReflectorCachesWithinTTL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT c.relname AS table_name").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectQuery("c.relkind IN").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "relkind"}))

	r := New(DBAdapter{DB: db}, Options{TTL: time.Hour})
	ctx := context.Background()

	_, err = r.Snapshot(ctx, "public")
	require.NoError(t, err)

	// Second call within the TTL must not re-query.
	_, err = r.Snapshot(ctx, "public")
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReflectorInvalidateForcesRefresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT c.relname AS table_name").
			WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
		mock.ExpectQuery("c.relkind IN").
			WillReturnRows(sqlmock.NewRows([]string{"table_name", "relkind"}))
	}

	r := New(DBAdapter{DB: db}, Options{TTL: time.Hour})
	ctx := context.Background()

	_, err = r.Snapshot(ctx, "public")
	require.NoError(t, err)

	r.Invalidate("public")

	_, err = r.Snapshot(ctx, "public")
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReflectorRetainsStaleSnapshotOnRefreshFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT c.relname AS table_name").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers"))
	mock.ExpectQuery("c.relkind IN").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "relkind"}))
	mock.ExpectQuery("FROM pg_catalog.pg_attribute a").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "column_name", "ordinal", "nullable", "declared_type", "domain_base_type", "is_array_oid",
		}).AddRow("customers", "id", 1, false, "integer", "", false))
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

	r := New(DBAdapter{DB: db}, Options{TTL: time.Nanosecond})
	ctx := context.Background()

	snap1, err := r.Snapshot(ctx, "public")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	mock.ExpectQuery("SELECT c.relname AS table_name").
		WillReturnError(assert.AnError)

	snap2, err := r.Snapshot(ctx, "public")
	require.NoError(t, err)
	require.Same(t, snap1, snap2)
}
