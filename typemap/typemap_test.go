package typemap

import (
	"testing"

	"ariga.io/atlas/sql/postgres"
	"github.com/stretchr/testify/require"
)

func TestMapScalars(t *testing.T) {
	cases := []struct {
		declared string
		want     Kind
	}{
		{"integer", Int32},
		{"INTEGER", Int32},
		{"character varying(255)", Text},
		{"VARCHAR(255)", Text},
		{"numeric(10,2)", Numeric},
		{"timestamp with time zone", TimestampTz},
		{"timestamp(3) with time zone", TimestampTz},
		{"uuid", UUID},
		{"jsonb", JSON},
		{"bit varying", Text},
		{"varbit", Text},
		{"inet", Inet},
		{"totally_unknown_domain_alias", Text},
	}
	for _, c := range cases {
		got := Map(c.declared)
		require.Equalf(t, c.want, got.Kind, "declared=%q", c.declared)
	}
}

func TestMapArray(t *testing.T) {
	ft := Map("integer[]")
	require.Equal(t, ArrayKind, ft.Kind)
	require.NotNil(t, ft.Elem)
	require.Equal(t, Int32, ft.Elem.Kind)
}

func TestMapPreservesDeclaredStringForUnknownType(t *testing.T) {
	ft := Map("some_domain_alias")
	require.Equal(t, Text, ft.Kind)
	require.Equal(t, "some_domain_alias", ft.Declared)
}

func TestIsCastRequired(t *testing.T) {
	require.False(t, Map("integer").IsCastRequired())
	require.False(t, Map("text").IsCastRequired())
	require.False(t, Map("boolean").IsCastRequired())
	require.False(t, Map("uuid").IsCastRequired())
	require.True(t, Map("jsonb").IsCastRequired())
	require.True(t, Map("interval").IsCastRequired())
	require.True(t, Map("inet").IsCastRequired())
	require.True(t, Map("integer[]").IsCastRequired())
	require.True(t, Map("timestamp with time zone").IsCastRequired())
}

func TestCastType(t *testing.T) {
	require.Equal(t, "integer[]", Map("integer[]").CastType())
	require.Equal(t, "jsonb", Map("json").CastType())
	require.Equal(t, "timestamptz", Map("timestamp with time zone").CastType())
}

func TestMapEnumAndComposite(t *testing.T) {
	e := MapEnum(&postgres.EnumType{T: "order_status"})
	require.Equal(t, EnumKind, e.Kind)
	require.Equal(t, "order_status", e.Name)

	c := MapComposite("address")
	require.Equal(t, CompositeKind, c.Kind)
	require.Equal(t, "address", c.Name)
}
