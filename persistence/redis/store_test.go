package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/pollster/metadata"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/util"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *redisStore {
	conf := Config{
		Addrs:     []string{"localhost:6379"},
		Namespace: "test-" + uuid.NewString(),
	}
	store := NewRedisStore(conf)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, store *redisStore,
	){
		"put get delete":     testPutGetDelete,
		"lease is exclusive": testLease,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newTestStore(t))
		})
	}
}

func testPutGetDelete(t *testing.T, store *redisStore) {
	ctx := context.Background()
	_, found, err := store.Get(ctx, "flow/p/f/lastFetch")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Put(ctx, "flow/p/f/lastFetch", []byte(`{"time":1}`)))
	value, found, err := store.Get(ctx, "flow/p/f/lastFetch")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"time":1}`, string(value))

	require.NoError(t, store.Delete(ctx, "flow/p/f/lastFetch"))
	_, found, err = store.Get(ctx, "flow/p/f/lastFetch")
	require.NoError(t, err)
	require.False(t, found)
}

func testLease(t *testing.T, store *redisStore) {
	ctx := context.Background()
	ok, err := store.Acquire(ctx, "poll", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Acquire(ctx, "poll", "b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Release(ctx, "poll", "b"))
	require.NoError(t, store.Release(ctx, "poll", "a"))

	ok, err = store.Acquire(ctx, "poll", "b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisQueue(t *testing.T) {
	store := newTestStore(t)
	queue := &redisQueue{baseDao: store.baseDao}
	ctx := context.Background()

	require.NoError(t, queue.Push(ctx, "orders", []byte("1")))
	require.NoError(t, queue.Push(ctx, "orders", []byte("2")))
	require.NoError(t, queue.Push(ctx, "orders", []byte("3")))

	got, err := queue.Pop(ctx, "orders", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, got)

	got, err = queue.Pop(ctx, "orders", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"3"}, got)

	got, err = queue.Pop(ctx, "orders", 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisMetadataStorage(t *testing.T) {
	store := newTestStore(t)
	storage := &redisMetadataStorage{baseDao: store.baseDao, codec: util.NewJsonCodec[model.TriggerDefinition]()}
	ctx := context.Background()

	_, err := storage.GetTriggerDefinition(ctx, "orders")
	require.ErrorIs(t, err, metadata.ErrTriggerNotFound)

	def := model.TriggerDefinition{Name: "orders", ProjectId: "p", FlowId: "f", Strategy: model.STRATEGY_COUNT}
	require.NoError(t, storage.SaveTriggerDefinition(ctx, def))
	got, err := storage.GetTriggerDefinition(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, model.STRATEGY_COUNT, got.Strategy)

	all, err := storage.ListTriggerDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, storage.DeleteTriggerDefinition(ctx, "orders"))
	_, err = storage.GetTriggerDefinition(ctx, "orders")
	require.ErrorIs(t, err, metadata.ErrTriggerNotFound)
}
