package polling

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/pollster/dedup"
	"github.com/mohitkumar/pollster/invocation"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const TRACER_NAME = "github.com/mohitkumar/pollster/polling"

const DEFAULT_LEASE_TTL = 30 * time.Second

// Driver runs one trigger's polls. It holds no state between calls; the
// watermark lives in the scoped store.
type Driver struct {
	trigger  string
	strategy dedup.Strategy
	store    persistence.ScopedStore
	locker   persistence.Locker
	leaseTTL time.Duration
	tracer   trace.Tracer
	observer Observer
}

type Option func(*Driver)

// WithLease serialises RUN polls of the same trigger across processes.
func WithLease(locker persistence.Locker, ttl time.Duration) Option {
	return func(d *Driver) {
		d.locker = locker
		d.leaseTTL = ttl
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Driver) {
		d.tracer = tp.Tracer(TRACER_NAME)
	}
}

func WithObservers(observers ...Observer) Option {
	return func(d *Driver) {
		d.observer = multiObserver(observers)
	}
}

func NewDriver(trigger string, strategy dedup.Strategy, store persistence.ScopedStore, opts ...Option) *Driver {
	d := &Driver{
		trigger:  trigger,
		strategy: strategy,
		store:    store,
		leaseTTL: DEFAULT_LEASE_TTL,
		tracer:   otel.Tracer(TRACER_NAME),
		observer: multiObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Strategy() dedup.Strategy {
	return d.strategy
}

// Poll fetches, filters and, on success, advances the watermark. Any failure
// leaves the stored watermark as it was.
func (d *Driver) Poll(ctx context.Context, inv invocation.Invocation) (items []model.CandidateItem, err error) {
	if inv.Mode() != dedup.MODE_RUN {
		return nil, ErrModeMismatch
	}
	start := time.Now()
	outcome := Outcome{Trigger: d.trigger, Mode: dedup.MODE_RUN}
	defer func() {
		outcome.Items = len(items)
		outcome.Duration = time.Since(start)
		outcome.Err = err
		d.observer.ObservePoll(outcome)
	}()

	ctx, cancel := inv.Context(ctx)
	defer cancel()
	ctx, span := d.startSpan(ctx, "polling.Poll", inv)
	defer func() { endSpan(span, len(items), err) }()

	scope := inv.Scope().Flow()
	if d.locker != nil {
		release, err := d.acquire(ctx, scope)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	prev, err := d.readWatermark(ctx, scope)
	if err != nil {
		return nil, err
	}
	outcome.FirstRun = prev == nil
	decision, err := d.fetchAndDecide(ctx, inv, prev, invocation.FetchRequest{
		Watermark:  prev,
		FirstRun:   prev == nil,
		Mode:       dedup.MODE_RUN,
		SampleSize: inv.SampleSize(),
	})
	if err != nil {
		return nil, err
	}
	if decision.Rebaselined {
		outcome.Rebaselined = true
		logger.Warn("item count shrank, rebaselining watermark",
			zap.String("trigger", d.trigger),
			zap.Int64("previous", prev.Count),
			zap.Int64("current", decision.Next.Count))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := persistence.PutJSON(ctx, d.store, scope, d.strategy.Key(), decision.Next); err != nil {
		return nil, err
	}
	logger.Debug("poll completed",
		zap.String("trigger", d.trigger),
		zap.String("scope", scope.String()),
		zap.Int("items", len(decision.NewItems)))
	return decision.NewItems, nil
}

// Test returns a bounded sample of the newest items and never writes.
func (d *Driver) Test(ctx context.Context, inv invocation.Invocation) (items []model.CandidateItem, err error) {
	if inv.Mode() != dedup.MODE_TEST {
		return nil, ErrModeMismatch
	}
	start := time.Now()
	outcome := Outcome{Trigger: d.trigger, Mode: dedup.MODE_TEST}
	defer func() {
		outcome.Items = len(items)
		outcome.Duration = time.Since(start)
		outcome.Err = err
		d.observer.ObservePoll(outcome)
	}()

	ctx, cancel := inv.Context(ctx)
	defer cancel()
	ctx, span := d.startSpan(ctx, "polling.Test", inv)
	defer func() { endSpan(span, len(items), err) }()

	prev, err := d.readWatermark(ctx, inv.Scope().Flow())
	if err != nil {
		return nil, err
	}
	outcome.FirstRun = prev == nil
	decision, err := d.fetchAndDecide(ctx, inv, prev, invocation.FetchRequest{
		FirstRun:   prev == nil,
		Mode:       dedup.MODE_TEST,
		SampleSize: inv.SampleSize(),
	})
	if err != nil {
		return nil, err
	}
	return decision.NewItems, nil
}

// Enable runs the connector's enable hook and seeds the watermark unless one
// already exists. Triggers bootstrapped with EMIT_ALL are left unseeded so
// their first poll still emits the connector's first run window.
func (d *Driver) Enable(ctx context.Context, inv invocation.Invocation, lifecycle Lifecycle) error {
	ctx, cancel := inv.Context(ctx)
	defer cancel()
	ctx, span := d.startSpan(ctx, "polling.Enable", inv)
	defer span.End()

	scope := inv.Scope().Flow()
	if lifecycle != nil {
		if err := lifecycle.OnEnable(ctx, Hooks{Store: d.store, Scope: scope}); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	prev, err := d.readWatermark(ctx, scope)
	if err != nil {
		return err
	}
	if prev != nil || d.strategy.Bootstrap() == model.BOOTSTRAP_EMIT_ALL {
		return nil
	}

	var candidates []model.CandidateItem
	if d.strategy.Type() != model.STRATEGY_TIME {
		candidates, err = drain(ctx, inv.Fetch(ctx, invocation.FetchRequest{
			FirstRun:   true,
			Mode:       dedup.MODE_RUN,
			SampleSize: inv.SampleSize(),
		}))
		if err != nil {
			return err
		}
	}
	decision, err := d.strategy.Decide(nil, candidates, dedup.DecideOptions{
		FirstRun: true,
		Mode:     dedup.MODE_RUN,
		Now:      inv.Now(),
	})
	if err != nil {
		return err
	}
	logger.Info("trigger enabled",
		zap.String("trigger", d.trigger),
		zap.String("scope", scope.String()))
	return persistence.PutJSON(ctx, d.store, scope, d.strategy.Key(), decision.Next)
}

// Disable runs the connector's disable hook, then forgets the watermark and
// any stored subscription. A failing hook keeps the state so the call can be
// retried.
func (d *Driver) Disable(ctx context.Context, inv invocation.Invocation, lifecycle Lifecycle) error {
	ctx, cancel := inv.Context(ctx)
	defer cancel()
	ctx, span := d.startSpan(ctx, "polling.Disable", inv)
	defer span.End()

	scope := inv.Scope().Flow()
	if lifecycle != nil {
		if err := lifecycle.OnDisable(ctx, Hooks{Store: d.store, Scope: scope}); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	if err := d.store.Delete(ctx, scope, d.strategy.Key()); err != nil {
		return err
	}
	if err := d.store.Delete(ctx, scope, SUBSCRIPTION_KEY); err != nil {
		return err
	}
	logger.Info("trigger disabled",
		zap.String("trigger", d.trigger),
		zap.String("scope", scope.String()))
	return nil
}

func (d *Driver) fetchAndDecide(ctx context.Context, inv invocation.Invocation, prev *dedup.Watermark, req invocation.FetchRequest) (dedup.Decision, error) {
	candidates, err := drain(ctx, inv.Fetch(ctx, req))
	if err != nil {
		return dedup.Decision{}, err
	}
	return d.strategy.Decide(prev, candidates, dedup.DecideOptions{
		FirstRun:   req.FirstRun,
		Mode:       req.Mode,
		Now:        inv.Now(),
		SampleSize: req.SampleSize,
	})
}

func (d *Driver) readWatermark(ctx context.Context, scope model.Scope) (*dedup.Watermark, error) {
	prev, err := persistence.GetJSON[dedup.Watermark](ctx, d.store, scope, d.strategy.Key())
	if err != nil && !persistence.IsStorageError(err) && !errors.Is(err, persistence.ErrInvalidKey) && !errors.Is(err, persistence.ErrInvalidScope) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return prev, err
}

func (d *Driver) acquire(ctx context.Context, scope model.Scope) (func(), error) {
	key, err := persistence.PhysicalKey(scope, "lease/"+d.strategy.Key())
	if err != nil {
		return nil, err
	}
	owner := uuid.NewString()
	ok, err := d.locker.Acquire(ctx, key, owner, d.leaseTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return func() {
		if err := d.locker.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			logger.Warn("error releasing lease", zap.String("trigger", d.trigger), zap.Error(err))
		}
	}, nil
}

func (d *Driver) startSpan(ctx context.Context, name string, inv invocation.Invocation) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("pollster.trigger", d.trigger),
		attribute.String("pollster.scope", inv.Scope().String()),
		attribute.String("pollster.mode", string(inv.Mode())),
		attribute.String("pollster.strategy", string(d.strategy.Type())),
	))
}

func endSpan(span trace.Span, items int, err error) {
	span.SetAttributes(attribute.Int("pollster.items", items))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// drain collects the connector's items, checking ctx between items so a
// deadline aborts a slow fetch.
func drain(ctx context.Context, seq iter.Seq2[model.CandidateItem, error]) ([]model.CandidateItem, error) {
	var items []model.CandidateItem
	var fetchErr error
	for item, err := range seq {
		if err != nil {
			fetchErr = FetchError{Err: err}
			break
		}
		if err := ctx.Err(); err != nil {
			fetchErr = err
			break
		}
		items = append(items, item)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
