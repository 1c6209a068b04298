package metadata

import (
	"context"
	"fmt"
	"os"

	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type triggerFile struct {
	Triggers []model.TriggerDefinition `yaml:"triggers"`
}

// LoadTriggerFile reads trigger definitions from a YAML document with a
// top level "triggers" list.
func LoadTriggerFile(path string) ([]model.TriggerDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file triggerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Triggers, nil
}

// Seed saves every definition from path through the service.
func Seed(ctx context.Context, service MetadataService, path string) error {
	defs, err := LoadTriggerFile(path)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if err := service.SaveTrigger(ctx, def); err != nil {
			return err
		}
		logger.Info("loaded trigger definition", zap.String("trigger", def.Name), zap.String("file", path))
	}
	return nil
}
