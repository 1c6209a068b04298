package cassandra

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *cassandraStore {
	store, err := NewCassandraStore(Config{
		Addrs:    []string{"localhost:9042"},
		KeySpace: "pollster_test",
	})
	if err != nil {
		t.Skipf("cassandra not reachable: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestCassandraStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "flow/p/" + uuid.NewString() + "/lastFetch"

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Put(ctx, key, []byte(`{"time":5}`)))
	value, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"time":5}`, string(value))

	require.NoError(t, store.Delete(ctx, key))
	_, found, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)
}

func TestCassandraLease(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "lease/" + uuid.NewString()

	ok, err := store.Acquire(ctx, key, "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Acquire(ctx, key, "b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Release(ctx, key, "a"))
	ok, err = store.Acquire(ctx, key, "b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}
