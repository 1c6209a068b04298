package dedup

import (
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/util"
)

const LAST_ITEM_KEY = "lastItem"

// lastItemStrategy expects candidates newest first and emits the prefix that
// precedes the last id seen.
type lastItemStrategy struct {
	bootstrap model.BootstrapPolicy
}

func (s *lastItemStrategy) Type() model.StrategyType {
	return model.STRATEGY_LAST_ITEM
}

func (s *lastItemStrategy) Bootstrap() model.BootstrapPolicy {
	return s.bootstrap
}

func (s *lastItemStrategy) Key() string {
	return LAST_ITEM_KEY
}

func (s *lastItemStrategy) Decide(prev *Watermark, candidates []model.CandidateItem, opts DecideOptions) (Decision, error) {
	for i, item := range candidates {
		if item.ID == "" {
			return Decision{}, MalformedItemError{Index: i, Reason: "missing item id"}
		}
	}

	var fresh []model.CandidateItem
	switch {
	case prev == nil:
		if s.bootstrap == model.BOOTSTRAP_EMIT_ALL {
			fresh = candidates
		}
	default:
		fresh = candidates
		for i, item := range candidates {
			if item.ID == prev.LastID {
				fresh = candidates[:i]
				break
			}
		}
	}

	decision := Decision{}
	switch {
	case len(candidates) > 0 && (prev == nil || len(fresh) > 0):
		decision.Next = Watermark{LastID: candidates[0].ID}
	case prev != nil:
		decision.Next = *prev
	}

	if opts.Mode == MODE_TEST {
		decision.NewItems = util.FirstN(candidates, opts.sampleSize())
		return decision, nil
	}
	decision.NewItems = fresh
	return decision, nil
}
