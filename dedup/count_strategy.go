package dedup

import (
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/util"
)

const COUNT_KEY = "lastItemCount"

// countStrategy treats the candidate list as an append-only collection in
// oldest first order and emits whatever lies past the last observed length.
type countStrategy struct {
	bootstrap model.BootstrapPolicy
}

func (s *countStrategy) Type() model.StrategyType {
	return model.STRATEGY_COUNT
}

func (s *countStrategy) Bootstrap() model.BootstrapPolicy {
	return s.bootstrap
}

func (s *countStrategy) Key() string {
	return COUNT_KEY
}

func (s *countStrategy) Decide(prev *Watermark, candidates []model.CandidateItem, opts DecideOptions) (Decision, error) {
	total := int64(len(candidates))
	decision := Decision{Next: Watermark{Count: total}}

	if opts.Mode == MODE_TEST {
		decision.NewItems = util.LastN(candidates, opts.sampleSize())
		return decision, nil
	}
	switch {
	case prev == nil:
		if s.bootstrap == model.BOOTSTRAP_EMIT_ALL {
			decision.NewItems = candidates
		}
	case total < prev.Count:
		decision.Rebaselined = true
	default:
		decision.NewItems = candidates[prev.Count:]
	}
	return decision, nil
}
