package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/mohitkumar/pollster/connector"
	"github.com/mohitkumar/pollster/dedup"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/webhook"
	c "github.com/patrickmn/go-cache"
)

const DEFAULT_INTERVAL_SECONDS = 60
const DEFAULT_TIMEOUT_SECONDS = 30

type MetadataService interface {
	GetTrigger(ctx context.Context, name string) (*model.TriggerDefinition, error)
	SaveTrigger(ctx context.Context, def model.TriggerDefinition) error
	DeleteTrigger(ctx context.Context, name string) error
	ListTriggers(ctx context.Context) ([]model.TriggerDefinition, error)
	ValidateTrigger(def model.TriggerDefinition) error
	GetMetadataStorage() MetadataStorage
}

type MetadataServiceImpl struct {
	storage    MetadataStorage
	connectors *connector.Registry
	cache      *c.Cache
}

func NewMetadataService(storage MetadataStorage, connectors *connector.Registry, cacheTTL time.Duration) MetadataService {
	return &MetadataServiceImpl{
		storage:    storage,
		connectors: connectors,
		cache:      c.New(cacheTTL, 2*cacheTTL),
	}
}

func (s *MetadataServiceImpl) GetTrigger(ctx context.Context, name string) (*model.TriggerDefinition, error) {
	if cached, ok := s.cache.Get(name); ok {
		def := cached.(model.TriggerDefinition)
		return &def, nil
	}
	def, err := s.storage.GetTriggerDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(name, *def)
	return def, nil
}

func (s *MetadataServiceImpl) SaveTrigger(ctx context.Context, def model.TriggerDefinition) error {
	def = WithDefaults(def)
	if err := s.ValidateTrigger(def); err != nil {
		return err
	}
	if err := s.storage.SaveTriggerDefinition(ctx, def); err != nil {
		return err
	}
	s.cache.Delete(def.Name)
	return nil
}

func (s *MetadataServiceImpl) DeleteTrigger(ctx context.Context, name string) error {
	if err := s.storage.DeleteTriggerDefinition(ctx, name); err != nil {
		return err
	}
	s.cache.Delete(name)
	return nil
}

func (s *MetadataServiceImpl) ListTriggers(ctx context.Context) ([]model.TriggerDefinition, error) {
	return s.storage.ListTriggerDefinitions(ctx)
}

// WithDefaults fills the fields a definition may leave out.
func WithDefaults(def model.TriggerDefinition) model.TriggerDefinition {
	if def.Type == "" {
		def.Type = model.TRIGGER_TYPE_POLLING
	}
	if def.Strategy == "" {
		def.Strategy = model.STRATEGY_TIME
	}
	if def.Bootstrap == "" {
		def.Bootstrap = model.BOOTSTRAP_FROM_NOW
	}
	if def.IntervalSeconds == 0 {
		def.IntervalSeconds = DEFAULT_INTERVAL_SECONDS
	}
	if def.TimeoutSeconds == 0 {
		def.TimeoutSeconds = DEFAULT_TIMEOUT_SECONDS
	}
	return def
}

func (s *MetadataServiceImpl) ValidateTrigger(def model.TriggerDefinition) error {
	if len(def.Name) == 0 {
		return fmt.Errorf("trigger name can not be empty")
	}
	if err := def.Scope().Validate(); err != nil {
		return fmt.Errorf("trigger %s: %w", def.Name, err)
	}
	switch def.Type {
	case model.TRIGGER_TYPE_POLLING:
		if _, err := dedup.NewStrategy(def.Strategy, def.Bootstrap); err != nil {
			return fmt.Errorf("trigger %s: %w", def.Name, err)
		}
		if def.IntervalSeconds < 0 || def.TimeoutSeconds < 0 {
			return fmt.Errorf("trigger %s: interval and timeout must be positive", def.Name)
		}
		if _, err := s.connectors.Build(def); err != nil {
			return fmt.Errorf("trigger %s: %w", def.Name, err)
		}
	case model.TRIGGER_TYPE_WEBHOOK:
		if _, err := webhook.NewNegotiator(def.Handshake); err != nil {
			return fmt.Errorf("trigger %s: %w", def.Name, err)
		}
		if def.Redelivery != nil && def.Redelivery.TimestampPath == "" {
			return fmt.Errorf("trigger %s: redelivery needs a timestampPath", def.Name)
		}
	default:
		return fmt.Errorf("trigger %s: invalid trigger type %q", def.Name, def.Type)
	}
	return nil
}

func (s *MetadataServiceImpl) GetMetadataStorage() MetadataStorage {
	return s.storage
}
