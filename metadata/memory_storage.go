package metadata

import (
	"context"
	"sort"

	"github.com/mohitkumar/pollster/model"
	c "github.com/patrickmn/go-cache"
)

var _ MetadataStorage = new(memoryMetadataStorage)

// memoryMetadataStorage keeps definitions for a single process.
type memoryMetadataStorage struct {
	cache *c.Cache
}

func NewMemoryMetadataStorage() *memoryMetadataStorage {
	return &memoryMetadataStorage{
		cache: c.New(c.NoExpiration, 0),
	}
}

func (m *memoryMetadataStorage) SaveTriggerDefinition(ctx context.Context, def model.TriggerDefinition) error {
	m.cache.Set(def.Name, def, c.NoExpiration)
	return nil
}

func (m *memoryMetadataStorage) DeleteTriggerDefinition(ctx context.Context, name string) error {
	m.cache.Delete(name)
	return nil
}

func (m *memoryMetadataStorage) GetTriggerDefinition(ctx context.Context, name string) (*model.TriggerDefinition, error) {
	value, ok := m.cache.Get(name)
	if !ok {
		return nil, ErrTriggerNotFound
	}
	def := value.(model.TriggerDefinition)
	return &def, nil
}

func (m *memoryMetadataStorage) ListTriggerDefinitions(ctx context.Context) ([]model.TriggerDefinition, error) {
	items := m.cache.Items()
	defs := make([]model.TriggerDefinition, 0, len(items))
	for _, item := range items {
		defs = append(defs, item.Object.(model.TriggerDefinition))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}
