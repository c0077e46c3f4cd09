package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_ExpiresKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	now := time.Now()
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, kv.Set(ctx, "b", []byte("2"), 0))

	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	now = now.Add(time.Second)

	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	got, err = kv.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", string(got), "keys without ttl never expire")
}

func TestMemoryKV_SetNX(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	ok, err := kv.SetNX(ctx, "lock", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.SetNX(ctx, "lock", []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Del(ctx, "lock"))
	ok, err = kv.SetNX(ctx, "lock", []byte("3"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryKV_GetDelAndPrefix(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "notif:u1:b", []byte("b"), 0))
	require.NoError(t, kv.Set(ctx, "notif:u1:a", []byte("a"), 0))
	require.NoError(t, kv.Set(ctx, "notif:u2:a", []byte("x"), 0))

	keys, err := kv.KeysWithPrefix(ctx, "notif:u1:")
	require.NoError(t, err)
	assert.Equal(t, []string{"notif:u1:a", "notif:u1:b"}, keys)

	v, err := kv.GetDel(ctx, "notif:u1:a")
	require.NoError(t, err)
	assert.Equal(t, "a", string(v))

	_, err = kv.GetDel(ctx, "notif:u1:a")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
