package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mohitkumar/pollster/persistence"
	c "github.com/patrickmn/go-cache"
)

const LEASE_PREFIX = "lease:"

var _ persistence.BackendLocker = new(memoryStore)

// memoryStore keeps entries in a process local cache. It satisfies the store
// contract for a single process and is used for tests and single node setups.
type memoryStore struct {
	cache *c.Cache
	mu    sync.Mutex
}

func NewMemoryStore() *memoryStore {
	return &memoryStore{
		cache: c.New(c.NoExpiration, 10*time.Minute),
	}
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, persistence.StorageLayerError{Message: err.Error()}
	}
	value, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data := value.([]byte)
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (m *memoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	data := make([]byte, len(value))
	copy(data, value)
	m.cache.Set(key, data, c.NoExpiration)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	m.cache.Delete(key)
	return nil
}

func (m *memoryStore) Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cache.Add(LEASE_PREFIX+key, owner, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *memoryStore) Release(ctx context.Context, key string, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, found := m.cache.Get(LEASE_PREFIX + key)
	if found && current.(string) == owner {
		m.cache.Delete(LEASE_PREFIX + key)
	}
	return nil
}
