package invocation

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/mohitkumar/pollster/dedup"
	"github.com/mohitkumar/pollster/model"
)

// FetchRequest is what the engine tells a connector about the poll it is
// serving. Watermark is nil on first runs and in TEST mode.
type FetchRequest struct {
	Watermark  *dedup.Watermark
	FirstRun   bool
	Mode       dedup.Mode
	SampleSize int
}

type FetchFunc func(ctx context.Context, req FetchRequest) iter.Seq2[model.CandidateItem, error]

// Invocation carries everything one cold invocation knows. It is built once
// and never mutated.
type Invocation struct {
	scope      model.Scope
	mode       dedup.Mode
	now        int64
	fetch      FetchFunc
	deadline   time.Time
	sampleSize int
}

type Option func(*Invocation)

func WithNow(now time.Time) Option {
	return func(i *Invocation) {
		i.now = now.UnixMilli()
	}
}

func WithDeadline(deadline time.Time) Option {
	return func(i *Invocation) {
		i.deadline = deadline
	}
}

func WithSampleSize(n int) Option {
	return func(i *Invocation) {
		i.sampleSize = n
	}
}

func New(scope model.Scope, mode dedup.Mode, fetch FetchFunc, opts ...Option) (Invocation, error) {
	inv := Invocation{
		scope:      scope,
		mode:       mode,
		fetch:      fetch,
		now:        time.Now().UnixMilli(),
		sampleSize: dedup.DEFAULT_SAMPLE_SIZE,
	}
	for _, opt := range opts {
		opt(&inv)
	}
	if err := scope.Validate(); err != nil {
		return Invocation{}, err
	}
	if mode != dedup.MODE_RUN && mode != dedup.MODE_TEST {
		return Invocation{}, fmt.Errorf("invalid mode %q", mode)
	}
	if fetch == nil {
		return Invocation{}, fmt.Errorf("fetch function can not be nil")
	}
	if inv.sampleSize <= 0 {
		return Invocation{}, fmt.Errorf("sample size must be positive, got %d", inv.sampleSize)
	}
	return inv, nil
}

func (i Invocation) Scope() model.Scope {
	return i.scope
}

func (i Invocation) Mode() dedup.Mode {
	return i.mode
}

// Now is the invocation clock in epoch milliseconds.
func (i Invocation) Now() int64 {
	return i.now
}

func (i Invocation) Deadline() (time.Time, bool) {
	return i.deadline, !i.deadline.IsZero()
}

func (i Invocation) SampleSize() int {
	return i.sampleSize
}

func (i Invocation) Fetch(ctx context.Context, req FetchRequest) iter.Seq2[model.CandidateItem, error] {
	return i.fetch(ctx, req)
}

// Context applies the invocation deadline, if any, to ctx.
func (i Invocation) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := i.Deadline(); ok {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithCancel(ctx)
}

// FromSlice adapts a fixed item list into a FetchFunc.
func FromSlice(items []model.CandidateItem) FetchFunc {
	return func(ctx context.Context, req FetchRequest) iter.Seq2[model.CandidateItem, error] {
		return func(yield func(model.CandidateItem, error) bool) {
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// FromError is a FetchFunc that fails immediately.
func FromError(err error) FetchFunc {
	return func(ctx context.Context, req FetchRequest) iter.Seq2[model.CandidateItem, error] {
		return func(yield func(model.CandidateItem, error) bool) {
			yield(model.CandidateItem{}, err)
		}
	}
}
