package cassandra

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/persistence"
	"go.uber.org/zap"
)

var _ persistence.BackendLocker = new(cassandraStore)

var schema = []string{
	"CREATE TABLE IF NOT EXISTS trigger_state(key text PRIMARY KEY, value blob)",
	"CREATE TABLE IF NOT EXISTS trigger_lease(key text PRIMARY KEY, owner text)",
}

type cassandraStore struct {
	*baseDao
}

func NewCassandraStore(conf Config) (*cassandraStore, error) {
	dao, err := newBaseDao(conf)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schema {
		if err := dao.Session.Query(stmt).Exec(); err != nil {
			dao.Close()
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
	}
	return &cassandraStore{baseDao: dao}, nil
}

func (c *cassandraStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.Session.Query("SELECT value FROM trigger_state WHERE key = ?", key).WithContext(ctx).Scan(&value)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, false, nil
		}
		logger.Error("error reading store key", zap.String("key", key), zap.Error(err))
		return nil, false, persistence.StorageLayerError{Message: err.Error()}
	}
	return value, true, nil
}

func (c *cassandraStore) Put(ctx context.Context, key string, value []byte) error {
	if err := c.Session.Query("INSERT INTO trigger_state(key, value) VALUES(?, ?)", key, value).WithContext(ctx).Exec(); err != nil {
		logger.Error("error writing store key", zap.String("key", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (c *cassandraStore) Delete(ctx context.Context, key string) error {
	if err := c.Session.Query("DELETE FROM trigger_state WHERE key = ?", key).WithContext(ctx).Exec(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

// Acquire uses a lightweight transaction so only one owner can insert the
// lease row until its TTL expires.
func (c *cassandraStore) Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	existing := map[string]interface{}{}
	applied, err := c.Session.Query("INSERT INTO trigger_lease(key, owner) VALUES(?, ?) IF NOT EXISTS USING TTL ?", key, owner, seconds).
		WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	return applied, nil
}

func (c *cassandraStore) Release(ctx context.Context, key string, owner string) error {
	existing := map[string]interface{}{}
	_, err := c.Session.Query("DELETE FROM trigger_lease WHERE key = ? IF owner = ?", key, owner).
		WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
