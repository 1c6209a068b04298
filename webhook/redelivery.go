package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/persistence"
	"github.com/oliveagle/jsonpath"
	"github.com/spaolacci/murmur3"
	"golang.org/x/exp/slices"
)

const REDELIVERY_KEY = "lastWebhookEvent"

// redeliveryMark is the newest accepted event timestamp and the identities
// of every event accepted at exactly that timestamp.
type redeliveryMark struct {
	Time int64    `json:"time"`
	Ids  []string `json:"ids,omitempty"`
}

// RedeliveryFilter drops webhook events already accepted once. An event is
// fresh when its timestamp is newer than the mark, or equal to it with an
// identity not seen yet. Events without a readable timestamp pass through.
type RedeliveryFilter struct {
	store         persistence.ScopedStore
	timestampPath string
	idPath        string
}

func NewRedeliveryFilter(store persistence.ScopedStore, conf model.RedeliveryConfig) (*RedeliveryFilter, error) {
	if conf.TimestampPath == "" {
		return nil, fmt.Errorf("redelivery filter needs a timestampPath")
	}
	return &RedeliveryFilter{store: store, timestampPath: conf.TimestampPath, idPath: conf.IdPath}, nil
}

// Accept reports whether body is a first delivery and, if so, records it.
func (f *RedeliveryFilter) Accept(ctx context.Context, scope model.Scope, body []byte, now time.Time) (bool, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return true, nil
	}
	ts, ok := f.timestamp(doc)
	if !ok {
		return true, nil
	}
	id := f.identity(doc, body)
	prev, err := persistence.GetJSON[redeliveryMark](ctx, f.store, scope, REDELIVERY_KEY)
	if err != nil {
		return false, err
	}
	var next redeliveryMark
	switch {
	case prev == nil || ts > prev.Time:
		next = redeliveryMark{Time: ts, Ids: []string{id}}
	case ts == prev.Time && !slices.Contains(prev.Ids, id):
		next = redeliveryMark{Time: ts, Ids: append(slices.Clone(prev.Ids), id)}
	default:
		return false, nil
	}
	if err := persistence.PutJSON(ctx, f.store, scope, REDELIVERY_KEY, next); err != nil {
		return false, err
	}
	return true, nil
}

func (f *RedeliveryFilter) timestamp(doc any) (int64, bool) {
	raw, err := jsonpath.JsonPathLookup(doc, f.timestampPath)
	if err != nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts.UnixMilli(), true
		}
	}
	return 0, false
}

func (f *RedeliveryFilter) identity(doc any, body []byte) string {
	if f.idPath != "" {
		if raw, err := jsonpath.JsonPathLookup(doc, f.idPath); err == nil {
			switch v := raw.(type) {
			case string:
				return v
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return strconv.FormatUint(murmur3.Sum64(body), 16)
}
