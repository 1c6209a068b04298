package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohitkumar/pollster/connector"
	"github.com/mohitkumar/pollster/dedup"
	"github.com/mohitkumar/pollster/invocation"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/metadata"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/persistence"
	"github.com/mohitkumar/pollster/polling"
	"github.com/mohitkumar/pollster/sink"
	"github.com/mohitkumar/pollster/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrWrongTriggerType = errors.New("operation not supported by trigger type")

type TriggerServiceConfig struct {
	SampleSize int
	UseLease   bool
	LeaseTTL   time.Duration
}

// TriggerService runs trigger operations by name. Every call is a cold
// invocation: definitions, connectors and drivers are rebuilt each time and
// all memory between calls lives in the scoped store.
type TriggerService struct {
	metadataService metadata.MetadataService
	connectors      *connector.Registry
	store           persistence.ScopedStore
	locker          persistence.Locker
	sink            sink.Sink
	observers       []polling.Observer
	recorder        webhook.Recorder
	tracerProvider  trace.TracerProvider
	conf            TriggerServiceConfig
}

func NewTriggerService(metadataService metadata.MetadataService, connectors *connector.Registry, store persistence.ScopedStore,
	locker persistence.Locker, s sink.Sink, recorder webhook.Recorder, conf TriggerServiceConfig, observers ...polling.Observer) *TriggerService {
	if conf.SampleSize <= 0 {
		conf.SampleSize = dedup.DEFAULT_SAMPLE_SIZE
	}
	return &TriggerService{
		metadataService: metadataService,
		connectors:      connectors,
		store:           store,
		locker:          locker,
		sink:            s,
		observers:       observers,
		recorder:        recorder,
		tracerProvider:  otel.GetTracerProvider(),
		conf:            conf,
	}
}

func (ts *TriggerService) WithTracerProvider(tp trace.TracerProvider) *TriggerService {
	ts.tracerProvider = tp
	return ts
}

func (ts *TriggerService) GetMetadataService() metadata.MetadataService {
	return ts.metadataService
}

// Poll runs one RUN invocation and hands the new items to the sink.
func (ts *TriggerService) Poll(ctx context.Context, name string, runId string) ([]model.CandidateItem, error) {
	def, conn, driver, err := ts.polling(ctx, name)
	if err != nil {
		return nil, err
	}
	inv, err := ts.invocation(def, runId, dedup.MODE_RUN, conn)
	if err != nil {
		return nil, err
	}
	items, err := driver.Poll(ctx, inv)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}
	if err := ts.sink.Deliver(ctx, sink.Events(*def, inv.Scope(), items, time.Now())...); err != nil {
		return nil, err
	}
	logger.Info("delivered new items", zap.String("trigger", name), zap.Int("items", len(items)))
	return items, nil
}

// Test returns sample items for the builder; nothing is stored or delivered.
func (ts *TriggerService) Test(ctx context.Context, name string, runId string) ([]model.CandidateItem, error) {
	def, conn, driver, err := ts.polling(ctx, name)
	if err != nil {
		return nil, err
	}
	inv, err := ts.invocation(def, runId, dedup.MODE_TEST, conn)
	if err != nil {
		return nil, err
	}
	return driver.Test(ctx, inv)
}

func (ts *TriggerService) Enable(ctx context.Context, name string) error {
	def, conn, driver, err := ts.polling(ctx, name)
	if err != nil {
		return err
	}
	inv, err := ts.invocation(def, "", dedup.MODE_RUN, conn)
	if err != nil {
		return err
	}
	return driver.Enable(ctx, inv, connector.Lifecycle(conn))
}

func (ts *TriggerService) Disable(ctx context.Context, name string) error {
	def, conn, driver, err := ts.polling(ctx, name)
	if err != nil {
		return err
	}
	inv, err := ts.invocation(def, "", dedup.MODE_RUN, conn)
	if err != nil {
		return err
	}
	return driver.Disable(ctx, inv, connector.Lifecycle(conn))
}

func (ts *TriggerService) HandleWebhook(ctx context.Context, name string, req webhook.Request) (webhook.Response, error) {
	def, err := ts.metadataService.GetTrigger(ctx, name)
	if err != nil {
		return webhook.Response{}, err
	}
	if def.Type != model.TRIGGER_TYPE_WEBHOOK {
		return webhook.Response{}, fmt.Errorf("trigger %s: %w", name, ErrWrongTriggerType)
	}
	negotiator, err := webhook.NewNegotiator(def.Handshake)
	if err != nil {
		return webhook.Response{}, err
	}
	var filter *webhook.RedeliveryFilter
	if def.Redelivery != nil {
		filter, err = webhook.NewRedeliveryFilter(ts.store, *def.Redelivery)
		if err != nil {
			return webhook.Response{}, err
		}
	}
	return webhook.NewHandler(*def, negotiator, filter, ts.sink, ts.recorder).Handle(ctx, req)
}

func (ts *TriggerService) polling(ctx context.Context, name string) (*model.TriggerDefinition, connector.Connector, *polling.Driver, error) {
	def, err := ts.metadataService.GetTrigger(ctx, name)
	if err != nil {
		return nil, nil, nil, err
	}
	if def.Type != model.TRIGGER_TYPE_POLLING {
		return nil, nil, nil, fmt.Errorf("trigger %s: %w", name, ErrWrongTriggerType)
	}
	conn, err := ts.connectors.Build(*def)
	if err != nil {
		return nil, nil, nil, err
	}
	strategy, err := dedup.NewStrategy(def.Strategy, def.Bootstrap)
	if err != nil {
		return nil, nil, nil, err
	}
	opts := []polling.Option{
		polling.WithTracerProvider(ts.tracerProvider),
		polling.WithObservers(ts.observers...),
	}
	if ts.conf.UseLease && ts.locker != nil {
		opts = append(opts, polling.WithLease(ts.locker, ts.conf.LeaseTTL))
	}
	return def, conn, polling.NewDriver(def.Name, strategy, ts.store, opts...), nil
}

func (ts *TriggerService) invocation(def *model.TriggerDefinition, runId string, mode dedup.Mode, conn connector.Connector) (invocation.Invocation, error) {
	scope := def.Scope()
	if runId != "" {
		scope = model.RunScope(def.ProjectId, def.FlowId, runId)
	}
	opts := []invocation.Option{invocation.WithSampleSize(ts.conf.SampleSize)}
	if def.TimeoutSeconds > 0 {
		opts = append(opts, invocation.WithDeadline(time.Now().Add(time.Duration(def.TimeoutSeconds)*time.Second)))
	}
	return invocation.New(scope, mode, connector.Fetch(conn), opts...)
}
