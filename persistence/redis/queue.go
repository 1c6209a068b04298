package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/persistence"
	"go.uber.org/zap"
)

const QUEUE_KEY string = "QUEUE"

var _ persistence.Queue = new(redisQueue)

type redisQueue struct {
	*baseDao
}

func NewRedisQueue(conf Config) *redisQueue {
	return &redisQueue{
		baseDao: newBaseDao(conf),
	}
}

func (rq *redisQueue) Push(ctx context.Context, queueName string, message []byte) error {
	queueName = rq.getNamespaceKey(QUEUE_KEY, queueName)
	if err := rq.redisClient.LPush(ctx, queueName, message).Err(); err != nil {
		logger.Error("error while push to redis list", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

// Pop returns up to batchSize messages, oldest first.
func (rq *redisQueue) Pop(ctx context.Context, queueName string, batchSize int) ([]string, error) {
	queueName = rq.getNamespaceKey(QUEUE_KEY, queueName)
	res, err := rq.redisClient.RPopCount(ctx, queueName, batchSize).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		logger.Error("error while pop from redis list", zap.String("queue", queueName), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return res, nil
}
