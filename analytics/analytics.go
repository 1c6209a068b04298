package analytics

import (
	"github.com/mohitkumar/pollster/polling"
	"github.com/mohitkumar/pollster/webhook"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP"

// TriggerDataCollector keeps a record of every poll and handshake outcome.
type TriggerDataCollector interface {
	polling.Observer
	webhook.Recorder
}

func NewDataCollector(config DataCollectorConfig) (TriggerDataCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return noopCollector{}, nil
}

type noopCollector struct{}

func (noopCollector) ObservePoll(outcome polling.Outcome) {}

func (noopCollector) RecordHandshake(trigger string, status int) {}
