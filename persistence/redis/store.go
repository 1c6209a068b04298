package redis

import (
	"context"
	"errors"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/persistence"
	"go.uber.org/zap"
)

const STORE_KEY string = "STORE"
const LEASE_KEY string = "LEASE"

var _ persistence.BackendLocker = new(redisStore)

var releaseScript = rd.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStore struct {
	*baseDao
}

func NewRedisStore(conf Config) *redisStore {
	return &redisStore{
		baseDao: newBaseDao(conf),
	}
}

func (r *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.redisClient.Get(ctx, r.getNamespaceKey(STORE_KEY, key)).Bytes()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, false, nil
		}
		logger.Error("error reading store key", zap.String("key", key), zap.Error(err))
		return nil, false, persistence.StorageLayerError{Message: err.Error()}
	}
	return value, true, nil
}

func (r *redisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := r.redisClient.Set(ctx, r.getNamespaceKey(STORE_KEY, key), value, 0).Err(); err != nil {
		logger.Error("error writing store key", zap.String("key", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisStore) Delete(ctx context.Context, key string) error {
	if err := r.redisClient.Del(ctx, r.getNamespaceKey(STORE_KEY, key)).Err(); err != nil {
		logger.Error("error deleting store key", zap.String("key", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisStore) Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.redisClient.SetNX(ctx, r.getNamespaceKey(LEASE_KEY, key), owner, ttl).Result()
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	return ok, nil
}

func (r *redisStore) Release(ctx context.Context, key string, owner string) error {
	err := releaseScript.Run(ctx, r.redisClient, []string{r.getNamespaceKey(LEASE_KEY, key)}, owner).Err()
	if err != nil && !errors.Is(err, rd.Nil) {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
