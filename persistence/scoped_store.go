package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/util"
)

// ScopedStore is the only durable memory the engine has between
// invocations. Single key operations are atomic; there are no cross key
// transactions.
type ScopedStore interface {
	Get(ctx context.Context, scope model.Scope, key string) ([]byte, bool, error)
	Put(ctx context.Context, scope model.Scope, key string, value []byte) error
	Delete(ctx context.Context, scope model.Scope, key string) error
}

var _ ScopedStore = new(scopedStore)

type scopedStore struct {
	backend Backend
}

func NewScopedStore(backend Backend) *scopedStore {
	return &scopedStore{backend: backend}
}

func (s *scopedStore) Get(ctx context.Context, scope model.Scope, key string) ([]byte, bool, error) {
	physical, err := PhysicalKey(scope, key)
	if err != nil {
		return nil, false, err
	}
	return s.backend.Get(ctx, physical)
}

func (s *scopedStore) Put(ctx context.Context, scope model.Scope, key string, value []byte) error {
	physical, err := PhysicalKey(scope, key)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, physical, value)
}

func (s *scopedStore) Delete(ctx context.Context, scope model.Scope, key string) error {
	physical, err := PhysicalKey(scope, key)
	if err != nil {
		return err
	}
	return s.backend.Delete(ctx, physical)
}

// PhysicalKey maps a logical (scope, key) pair to the backend key. RUN scope
// is stored in its flow's space with the key prefixed by the run id.
func PhysicalKey(scope model.Scope, key string) (string, error) {
	if len(key) == 0 || len(key) > MAX_KEY_LENGTH {
		return "", fmt.Errorf("%w: length %d outside 1..%d", ErrInvalidKey, len(key), MAX_KEY_LENGTH)
	}
	if err := scope.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}
	switch scope.Kind {
	case model.SCOPE_PROJECT:
		return join("project", scope.ProjectId, key), nil
	case model.SCOPE_RUN:
		return join("flow", scope.ProjectId, scope.FlowId, "run", scope.RunId, key), nil
	default:
		return join("flow", scope.ProjectId, scope.FlowId, key), nil
	}
}

func join(parts ...string) string {
	return strings.Join(parts, "/")
}

func GetJSON[T any](ctx context.Context, store ScopedStore, scope model.Scope, key string) (*T, error) {
	data, found, err := store.Get(ctx, scope, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	value, err := util.NewJsonCodec[T]().Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s at %s: %w", key, scope, err)
	}
	return value, nil
}

func PutJSON[T any](ctx context.Context, store ScopedStore, scope model.Scope, key string, value T) error {
	data, err := util.NewJsonCodec[T]().Encode(value)
	if err != nil {
		return fmt.Errorf("encode %s at %s: %w", key, scope, err)
	}
	return store.Put(ctx, scope, key, data)
}
