package redis

import (
	"context"
	"errors"
	"sort"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/metadata"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/persistence"
	"github.com/mohitkumar/pollster/util"
	"go.uber.org/zap"
)

const TRIGGER_DEF string = "TRIGGER"

var _ metadata.MetadataStorage = new(redisMetadataStorage)

type redisMetadataStorage struct {
	*baseDao
	codec util.JsonCodec[model.TriggerDefinition]
}

func NewRedisMetadataStorage(conf Config) *redisMetadataStorage {
	return &redisMetadataStorage{
		baseDao: newBaseDao(conf),
		codec:   util.NewJsonCodec[model.TriggerDefinition](),
	}
}

func (td *redisMetadataStorage) SaveTriggerDefinition(ctx context.Context, def model.TriggerDefinition) error {
	data, err := td.codec.Encode(def)
	if err != nil {
		return err
	}
	key := td.getNamespaceKey(TRIGGER_DEF)
	if err := td.redisClient.HSet(ctx, key, []string{def.Name, string(data)}).Err(); err != nil {
		logger.Error("error in saving trigger definition", zap.String("trigger", def.Name), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (td *redisMetadataStorage) DeleteTriggerDefinition(ctx context.Context, name string) error {
	key := td.getNamespaceKey(TRIGGER_DEF)
	if err := td.redisClient.HDel(ctx, key, name).Err(); err != nil {
		logger.Error("error in deleting trigger definition", zap.String("trigger", name), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (td *redisMetadataStorage) GetTriggerDefinition(ctx context.Context, name string) (*model.TriggerDefinition, error) {
	key := td.getNamespaceKey(TRIGGER_DEF)
	val, err := td.redisClient.HGet(ctx, key, name).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, metadata.ErrTriggerNotFound
		}
		logger.Error("error in reading trigger definition", zap.String("trigger", name), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return td.codec.Decode([]byte(val))
}

func (td *redisMetadataStorage) ListTriggerDefinitions(ctx context.Context) ([]model.TriggerDefinition, error) {
	key := td.getNamespaceKey(TRIGGER_DEF)
	all, err := td.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defs, failed := td.codec.DecodeAll(all)
	for name, err := range failed {
		logger.Error("skipping undecodable trigger definition", zap.String("trigger", name), zap.Error(err))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}
