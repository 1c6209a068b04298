package model

import "encoding/json"

// CandidateItem is one unit returned by a connector fetch, not yet filtered
// for novelty. Payload is carried through untouched.
type CandidateItem struct {
	Payload json.RawMessage `json:"payload"`
	SortKey *int64          `json:"sortKey,omitempty"`
	ID      string          `json:"id,omitempty"`
}

func NewTimedItem(payload json.RawMessage, epochMilli int64) CandidateItem {
	return CandidateItem{Payload: payload, SortKey: &epochMilli}
}

func NewIdentifiedItem(id string, payload json.RawMessage) CandidateItem {
	return CandidateItem{Payload: payload, ID: id}
}

func (c CandidateItem) HasSortKey() bool {
	return c.SortKey != nil
}

func Payloads(items []CandidateItem) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, item.Payload)
	}
	return out
}
