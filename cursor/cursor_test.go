package cursor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New([]string{"customer_id"}, []json.RawMessage{[]byte(`42`)})
	opaque, err := Encode(c)
	require.NoError(t, err)
	require.NotEmpty(t, opaque)

	got, err := Decode(opaque)
	require.NoError(t, err)
	require.Equal(t, c.Columns, got.Columns)

	v, err := got.Value(0)
	require.NoError(t, err)
	require.Equal(t, float64(42), v)
}

func TestValidateRejectsMismatch(t *testing.T) {
	c := New([]string{"customer_id"}, []json.RawMessage{[]byte(`1`)})
	require.NoError(t, c.Validate([]string{"customer_id"}))
	require.Error(t, c.Validate([]string{"email"}))
	require.Error(t, c.Validate([]string{"customer_id", "email"}))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode("not-valid-base64!!!")
	require.Error(t, err)

	_, err = Decode(MustEncode(New(nil, nil)))
	require.Error(t, err)
}

func TestMultiColumnCursor(t *testing.T) {
	c := New(
		[]string{"status", "customer_id"},
		[]json.RawMessage{[]byte(`"vip"`), []byte(`7`)},
	)
	opaque := MustEncode(c)
	got, err := Decode(opaque)
	require.NoError(t, err)
	require.NoError(t, got.Validate([]string{"status", "customer_id"}))
}
