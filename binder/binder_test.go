package binder

import (
	"testing"

	"github.com/arcflow/pgql/typemap"
	"github.com/stretchr/testify/require"
)

func TestBindArrayLiteral(t *testing.T) {
	v, err := Bind("customers", "tags", typemap.Map("text[]"), []any{"vip", "new"})
	require.NoError(t, err)
	require.Equal(t, `{"vip","new"}`, v)
}

func TestBindEmptyArrayIsNull(t *testing.T) {
	v, err := Bind("customers", "tags", typemap.Map("text[]"), []any{})
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestBindArrayRejectsNonList(t *testing.T) {
	_, err := Bind("customers", "tags", typemap.Map("text[]"), "not-a-list")
	require.Error(t, err)
}

func TestBindJSONAcceptsRawString(t *testing.T) {
	v, err := Bind("customers", "metadata", typemap.Map("jsonb"), `{"a":1}`)
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, v)
}

func TestBindJSONRejectsMalformed(t *testing.T) {
	_, err := Bind("customers", "metadata", typemap.Map("jsonb"), `{not json`)
	require.Error(t, err)
}

func TestBindJSONEncodesGoValue(t *testing.T) {
	v, err := Bind("customers", "metadata", typemap.Map("jsonb"), map[string]any{"a": float64(1)})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, v.(string))
}

func TestBindUUID(t *testing.T) {
	v, err := Bind("customers", "id", typemap.Map("uuid"), "550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	require.Equal(t, "550e8400-e29b-41d4-a716-446655440000", v)
}

func TestBindUUIDRejectsMalformed(t *testing.T) {
	_, err := Bind("customers", "id", typemap.Map("uuid"), "not-a-uuid")
	require.Error(t, err)
}

func TestBindTemporalNormalizesSpaceSeparator(t *testing.T) {
	v, err := Bind("orders", "placed_at", typemap.Map("timestamp with time zone"), "2026-01-02 15:04:05Z")
	require.NoError(t, err)
	require.Equal(t, "2026-01-02T15:04:05Z", v)
}

func TestBindTemporalPassesThroughUnparseable(t *testing.T) {
	v, err := Bind("orders", "placed_at", typemap.Map("timestamp with time zone"), "not-a-date")
	require.NoError(t, err)
	require.Equal(t, "not-a-date", v)
}

func TestBindInterval(t *testing.T) {
	v, err := Bind("subscriptions", "period", typemap.Map("interval"), "3 days")
	require.NoError(t, err)
	require.Equal(t, "3 days", v)
}

func TestBindComposite(t *testing.T) {
	v, err := Bind("orders", "shipping_address", typemap.MapComposite("address"), []any{"221B Baker St", "London", nil})
	require.NoError(t, err)
	require.Equal(t, `("221B Baker St",London,)`, v)
}

func TestBindCompositeEscapesSpecialChars(t *testing.T) {
	v, err := Bind("orders", "shipping_address", typemap.MapComposite("address"), []any{`Say "hi", please`})
	require.NoError(t, err)
	require.Equal(t, `("Say \"hi\", please")`, v)
}

func TestBindNilIsNil(t *testing.T) {
	v, err := Bind("customers", "email", typemap.Map("text"), nil)
	require.NoError(t, err)
	require.Nil(t, v)
}
