package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_PutGetDelete(t *testing.T) {
	kv := NewMemoryKV()

	require.NoError(t, kv.Put("a", []byte("1")))
	got, err := kv.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, kv.Delete("a"))
	_, err = kv.Get("a")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestMemoryKV_ScanPrefixOrdered(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Put("pending:b", []byte("2")))
	require.NoError(t, kv.Put("pending:a", []byte("1")))
	require.NoError(t, kv.Put("audit:x", []byte("3")))

	var keys []string
	err := kv.Scan("pending:", func(key string, value []byte) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pending:a", "pending:b"}, keys)
}

func TestBadgerKV_InMemoryRoundTrip(t *testing.T) {
	kv, err := OpenBadger("")
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Put("k", []byte("v")))
	got, err := kv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = kv.Get("missing")
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	var seen int
	require.NoError(t, kv.Scan("k", func(key string, value []byte) error {
		seen++
		return nil
	}))
	assert.Equal(t, 1, seen)
}
