package polling

import (
	"time"

	"github.com/mohitkumar/pollster/dedup"
)

type Outcome struct {
	Trigger     string
	Mode        dedup.Mode
	FirstRun    bool
	Items       int
	Rebaselined bool
	Duration    time.Duration
	Err         error
}

type Observer interface {
	ObservePoll(outcome Outcome)
}

type multiObserver []Observer

func (m multiObserver) ObservePoll(outcome Outcome) {
	for _, o := range m {
		o.ObservePoll(outcome)
	}
}
