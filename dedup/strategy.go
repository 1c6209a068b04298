package dedup

import (
	"fmt"

	"github.com/mohitkumar/pollster/model"
)

type Mode string

const MODE_RUN Mode = "RUN"
const MODE_TEST Mode = "TEST"

const DEFAULT_SAMPLE_SIZE = 5

// Watermark is the persisted high-water mark of a trigger. Only the field
// that belongs to the strategy in use is set.
type Watermark struct {
	Time   int64  `json:"time,omitempty"`
	Count  int64  `json:"count,omitempty"`
	LastID string `json:"lastId,omitempty"`
}

type DecideOptions struct {
	FirstRun   bool
	Mode       Mode
	Now        int64
	SampleSize int
}

func (o DecideOptions) sampleSize() int {
	if o.SampleSize <= 0 {
		return DEFAULT_SAMPLE_SIZE
	}
	return o.SampleSize
}

type Decision struct {
	NewItems    []model.CandidateItem
	Next        Watermark
	Rebaselined bool
}

// Strategy filters a candidate batch against the previous watermark. It does
// no I/O and returns the same decision for the same inputs.
type Strategy interface {
	Type() model.StrategyType
	Bootstrap() model.BootstrapPolicy
	Key() string
	Decide(prev *Watermark, candidates []model.CandidateItem, opts DecideOptions) (Decision, error)
}

type MalformedItemError struct {
	Index  int
	Reason string
}

func (e MalformedItemError) Error() string {
	return fmt.Sprintf("malformed item at index %d: %s", e.Index, e.Reason)
}

func NewStrategy(strategyType model.StrategyType, bootstrap model.BootstrapPolicy) (Strategy, error) {
	if bootstrap == "" {
		bootstrap = model.BOOTSTRAP_FROM_NOW
	}
	switch bootstrap {
	case model.BOOTSTRAP_FROM_NOW, model.BOOTSTRAP_FROM_LATEST, model.BOOTSTRAP_EMIT_ALL:
	default:
		return nil, fmt.Errorf("invalid bootstrap policy %q", bootstrap)
	}
	switch strategyType {
	case model.STRATEGY_TIME, "":
		return &timeStrategy{bootstrap: bootstrap}, nil
	case model.STRATEGY_COUNT:
		return &countStrategy{bootstrap: bootstrap}, nil
	case model.STRATEGY_LAST_ITEM:
		return &lastItemStrategy{bootstrap: bootstrap}, nil
	}
	return nil, fmt.Errorf("invalid strategy %q", strategyType)
}
