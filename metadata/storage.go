package metadata

import (
	"context"
	"errors"

	"github.com/mohitkumar/pollster/model"
)

var ErrTriggerNotFound = errors.New("trigger definition not found")

type MetadataStorage interface {
	SaveTriggerDefinition(ctx context.Context, def model.TriggerDefinition) error
	DeleteTriggerDefinition(ctx context.Context, name string) error
	GetTriggerDefinition(ctx context.Context, name string) (*model.TriggerDefinition, error)
	ListTriggerDefinitions(ctx context.Context) ([]model.TriggerDefinition, error)
}
