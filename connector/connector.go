package connector

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/mohitkumar/pollster/invocation"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/polling"
)

// Connector is the narrow contract between the engine and one external
// system. Items must respect the ordering its trigger's strategy expects.
type Connector interface {
	Name() string
	Items(ctx context.Context, req invocation.FetchRequest) iter.Seq2[model.CandidateItem, error]
}

type Factory func(def model.TriggerDefinition) (Connector, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

func (r *Registry) Build(def model.TriggerDefinition) (Connector, error) {
	r.mu.RLock()
	factory, ok := r.factories[def.Connector]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connector %q not registered", def.Connector)
	}
	return factory(def)
}

// Lifecycle returns the connector's enable/disable hooks, or nil when it has
// none.
func Lifecycle(c Connector) polling.Lifecycle {
	if lc, ok := c.(polling.Lifecycle); ok {
		return lc
	}
	return nil
}

// Fetch adapts a connector to the invocation fetch function.
func Fetch(c Connector) invocation.FetchFunc {
	return c.Items
}
