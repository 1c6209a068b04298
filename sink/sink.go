package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/persistence"
	"go.uber.org/zap"
)

type Source string

const SOURCE_POLL Source = "POLL"
const SOURCE_WEBHOOK Source = "WEBHOOK"

// Event is one new item handed to flow execution. Payload is exactly what
// the connector or webhook caller produced; bodies that are not JSON travel
// in RawBody instead.
type Event struct {
	Trigger     string          `json:"trigger"`
	Scope       model.Scope     `json:"scope"`
	Source      Source          `json:"source"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RawBody     []byte          `json:"rawBody,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	ReceivedAt  int64           `json:"receivedAt"`
}

type Sink interface {
	Deliver(ctx context.Context, events ...Event) error
}

var _ Sink = new(queueSink)

type queueSink struct {
	queue         persistence.Queue
	retryInterval time.Duration
	maxRetries    uint64
}

// NewQueueSink pushes every event onto the queue named after its trigger.
func NewQueueSink(queue persistence.Queue, retryInterval time.Duration, maxRetries uint64) *queueSink {
	return &queueSink{
		queue:         queue,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
	}
}

func QueueName(trigger string) string {
	return "EVENTS:" + trigger
}

func (s *queueSink) Deliver(ctx context.Context, events ...Event) error {
	for _, event := range events {
		msg, err := json.Marshal(event)
		if err != nil {
			return err
		}
		b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryInterval), s.maxRetries), ctx)
		err = backoff.Retry(func() error {
			return s.queue.Push(ctx, QueueName(event.Trigger), msg)
		}, b)
		if err != nil {
			logger.Error("error delivering event", zap.String("trigger", event.Trigger), zap.Error(err))
			return err
		}
	}
	return nil
}

// Events converts polled items into sink events.
func Events(def model.TriggerDefinition, scope model.Scope, items []model.CandidateItem, now time.Time) []Event {
	events := make([]Event, 0, len(items))
	for _, item := range items {
		events = append(events, Event{
			Trigger:    def.Name,
			Scope:      scope,
			Source:     SOURCE_POLL,
			Payload:    item.Payload,
			ReceivedAt: now.UnixMilli(),
		})
	}
	return events
}
