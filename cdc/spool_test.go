package cdc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpoolPushPeekPopFIFOOrder(t *testing.T) {
	s := newSpool(2)
	require.True(t, s.push([]byte("a")))
	require.True(t, s.push([]byte("b")))
	require.False(t, s.push([]byte("c")), "third push should fail: spool at capacity")

	v, ok := s.peek()
	require.True(t, ok)
	require.Equal(t, []byte("a"), v)

	s.pop()
	require.Equal(t, 1, s.len())

	v, ok = s.peek()
	require.True(t, ok)
	require.Equal(t, []byte("b"), v)
}

func TestSpoolPeekEmptyReturnsFalse(t *testing.T) {
	s := newSpool(4)
	_, ok := s.peek()
	require.False(t, ok)
}

func TestSpoolPopEmptyIsNoop(t *testing.T) {
	s := newSpool(4)
	s.pop()
	require.Equal(t, 0, s.len())
}
