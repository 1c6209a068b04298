package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/mohitkumar/pollster/invocation"
	"github.com/mohitkumar/pollster/model"
)

const STATIC_CONNECTOR = "static"

// staticConnector serves the items listed in its trigger's props. It is
// meant for demos and wiring tests.
type staticConnector struct {
	items []model.CandidateItem
}

type staticItem struct {
	Id      string          `json:"id"`
	SortKey *int64          `json:"sortKey"`
	Payload json.RawMessage `json:"payload"`
}

func NewStaticConnector(def model.TriggerDefinition) (Connector, error) {
	raw, err := json.Marshal(def.Props["items"])
	if err != nil {
		return nil, fmt.Errorf("static connector %s: %w", def.Name, err)
	}
	var listed []staticItem
	if def.Props["items"] != nil {
		if err := json.Unmarshal(raw, &listed); err != nil {
			return nil, fmt.Errorf("static connector %s: items: %w", def.Name, err)
		}
	}
	items := make([]model.CandidateItem, 0, len(listed))
	for _, it := range listed {
		items = append(items, model.CandidateItem{Payload: it.Payload, SortKey: it.SortKey, ID: it.Id})
	}
	return &staticConnector{items: items}, nil
}

func (s *staticConnector) Name() string {
	return STATIC_CONNECTOR
}

func (s *staticConnector) Items(ctx context.Context, req invocation.FetchRequest) iter.Seq2[model.CandidateItem, error] {
	return invocation.FromSlice(s.items)(ctx, req)
}
