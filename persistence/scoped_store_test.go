package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohitkumar/pollster/model"
	"github.com/stretchr/testify/require"
)

type mapBackend map[string][]byte

func (m mapBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapBackend) Put(ctx context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func (m mapBackend) Delete(ctx context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestPhysicalKey(t *testing.T) {
	key, err := PhysicalKey(model.ProjectScope("p"), "token")
	require.NoError(t, err)
	require.Equal(t, "project/p/token", key)

	key, err = PhysicalKey(model.FlowScope("p", "f"), "lastFetch")
	require.NoError(t, err)
	require.Equal(t, "flow/p/f/lastFetch", key)

	key, err = PhysicalKey(model.RunScope("p", "f", "r"), "lastFetch")
	require.NoError(t, err)
	require.Equal(t, "flow/p/f/run/r/lastFetch", key)
}

func TestPhysicalKeyValidation(t *testing.T) {
	_, err := PhysicalKey(model.FlowScope("p", "f"), "")
	require.True(t, errors.Is(err, ErrInvalidKey))

	_, err = PhysicalKey(model.FlowScope("p", "f"), strings.Repeat("k", MAX_KEY_LENGTH+1))
	require.True(t, errors.Is(err, ErrInvalidKey))

	_, err = PhysicalKey(model.FlowScope("p", "f"), strings.Repeat("k", MAX_KEY_LENGTH))
	require.NoError(t, err)

	_, err = PhysicalKey(model.FlowScope("p", ""), "k")
	require.True(t, errors.Is(err, ErrInvalidScope))

	_, err = PhysicalKey(model.Scope{Kind: "GLOBAL", ProjectId: "p"}, "k")
	require.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	type cursor struct {
		Time int64 `json:"time"`
	}
	ctx := context.Background()
	store := NewScopedStore(mapBackend{})
	scope := model.FlowScope("p", "f")

	got, err := GetJSON[cursor](ctx, store, scope, "lastFetch")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, PutJSON(ctx, store, scope, "lastFetch", cursor{Time: 42}))
	got, err = GetJSON[cursor](ctx, store, scope, "lastFetch")
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Time)

	require.NoError(t, store.Put(ctx, scope, "broken", []byte("{")))
	_, err = GetJSON[cursor](ctx, store, scope, "broken")
	require.Error(t, err)
}
