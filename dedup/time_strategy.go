package dedup

import (
	"sort"

	"github.com/mohitkumar/pollster/model"
)

const TIME_KEY = "lastFetch"

type timeStrategy struct {
	bootstrap model.BootstrapPolicy
}

func (s *timeStrategy) Type() model.StrategyType {
	return model.STRATEGY_TIME
}

func (s *timeStrategy) Bootstrap() model.BootstrapPolicy {
	return s.bootstrap
}

func (s *timeStrategy) Key() string {
	return TIME_KEY
}

func (s *timeStrategy) Decide(prev *Watermark, candidates []model.CandidateItem, opts DecideOptions) (Decision, error) {
	maxKey, hasMax := int64(0), false
	for i, item := range candidates {
		if !item.HasSortKey() {
			return Decision{}, MalformedItemError{Index: i, Reason: "missing sort key"}
		}
		if !hasMax || *item.SortKey > maxKey {
			maxKey, hasMax = *item.SortKey, true
		}
	}

	var boundary int64
	var next int64
	emitAll := false
	if prev != nil {
		boundary = prev.Time
		next = prev.Time
		if hasMax && maxKey > next {
			next = maxKey
		}
	} else {
		switch s.bootstrap {
		case model.BOOTSTRAP_FROM_LATEST:
			next = opts.Now
			if hasMax {
				next = maxKey
			}
			boundary = next
		case model.BOOTSTRAP_EMIT_ALL:
			emitAll = true
			next = max(opts.Now, maxKey)
		default:
			boundary = opts.Now
			next = max(opts.Now, maxKey)
		}
	}

	decision := Decision{Next: Watermark{Time: next}}
	if opts.Mode == MODE_TEST {
		decision.NewItems = newestByTime(candidates, opts.sampleSize())
		return decision, nil
	}
	for _, item := range candidates {
		if emitAll || *item.SortKey > boundary {
			decision.NewItems = append(decision.NewItems, item)
		}
	}
	return decision, nil
}

func newestByTime(candidates []model.CandidateItem, n int) []model.CandidateItem {
	sorted := make([]model.CandidateItem, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return *sorted[i].SortKey > *sorted[j].SortKey
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
