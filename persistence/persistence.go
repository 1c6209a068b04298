package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

var ErrInvalidKey = errors.New("invalid store key")
var ErrInvalidScope = errors.New("invalid scope")

const MAX_KEY_LENGTH = 128

// Backend is the physical key/value layer a ScopedStore is built on. Keys
// arriving here already encode their scope.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Locker grants short advisory leases. Release only succeeds for the owner
// that acquired the lease.
type Locker interface {
	Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string, owner string) error
}

// BackendLocker is implemented by backends that can also serve leases.
type BackendLocker interface {
	Backend
	Locker
}

func IsStorageError(err error) bool {
	var se StorageLayerError
	return errors.As(err, &se)
}

// Queue hands events to whatever executes the flow.
type Queue interface {
	Push(ctx context.Context, queueName string, message []byte) error
	Pop(ctx context.Context, queueName string, batchSize int) ([]string, error)
}
