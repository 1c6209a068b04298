package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/model"
	"github.com/mohitkumar/pollster/polling"
	"github.com/mohitkumar/pollster/util"
	"go.uber.org/zap"
)

// Owner decides whether this process schedules a trigger.
type Owner interface {
	Owns(key string) bool
}

type allOwner struct{}

func (allOwner) Owns(key string) bool {
	return true
}

// AllOwner is used by a node running without a cluster.
var AllOwner Owner = allOwner{}

type Poller interface {
	Poll(ctx context.Context, name string, runId string) ([]model.CandidateItem, error)
}

type TriggerLister interface {
	ListTriggers(ctx context.Context) ([]model.TriggerDefinition, error)
}

type Config struct {
	RefreshInterval time.Duration
	LeaseRetries    uint64
	LeaseRetryWait  time.Duration
}

// Scheduler is the in-process stand-in for an external cron: one tick
// worker per owned polling trigger, each tick a fresh invocation.
type Scheduler struct {
	conf    Config
	lister  TriggerLister
	poller  Poller
	owner   Owner
	workers map[string]*scheduled
	refresh *util.TickWorker
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

type scheduled struct {
	worker   *util.TickWorker
	interval time.Duration
}

func New(conf Config, lister TriggerLister, poller Poller, owner Owner) *Scheduler {
	if owner == nil {
		owner = AllOwner
	}
	if conf.RefreshInterval <= 0 {
		conf.RefreshInterval = 10 * time.Second
	}
	s := &Scheduler{
		conf:    conf,
		lister:  lister,
		poller:  poller,
		owner:   owner,
		workers: make(map[string]*scheduled),
	}
	s.refresh = util.NewTickWorker("trigger-refresh", conf.RefreshInterval, s.Refresh, &s.wg)
	return s
}

func (s *Scheduler) Start() {
	s.Refresh()
	s.refresh.Start()
}

// Stop halts every worker. A Refresh still listing triggers when Stop is
// called starts nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.refresh.Stop()
	s.mu.Lock()
	for name, w := range s.workers {
		w.worker.Stop()
		delete(s.workers, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Scheduled returns the names of triggers with a running worker.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.workers))
	for name := range s.workers {
		names = append(names, name)
	}
	return names
}

// Refresh reconciles running workers with the stored definitions and the
// current cluster ownership.
func (s *Scheduler) Refresh() {
	defs, err := s.lister.ListTriggers(context.Background())
	if err != nil {
		logger.Error("error listing triggers", zap.Error(err))
		return
	}
	wanted := make(map[string]model.TriggerDefinition)
	for _, def := range defs {
		if def.Type != model.TRIGGER_TYPE_POLLING || def.IntervalSeconds <= 0 {
			continue
		}
		if !s.owner.Owns(def.Name) {
			continue
		}
		wanted[def.Name] = def
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	for name, w := range s.workers {
		def, ok := wanted[name]
		if ok && w.interval == interval(def) {
			continue
		}
		w.worker.Stop()
		delete(s.workers, name)
	}
	for name, def := range wanted {
		if _, ok := s.workers[name]; ok {
			continue
		}
		def := def
		w := util.NewTickWorker("poll-"+name, interval(def), func() { s.tick(def) }, &s.wg)
		s.workers[name] = &scheduled{worker: w, interval: interval(def)}
		w.Start()
	}
}

func interval(def model.TriggerDefinition) time.Duration {
	return time.Duration(def.IntervalSeconds) * time.Second
}

// tick polls at FLOW scope; the invocation id only correlates log lines.
func (s *Scheduler) tick(def model.TriggerDefinition) {
	invocationId := uuid.NewString()
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(s.conf.LeaseRetryWait), s.conf.LeaseRetries)
	err := backoff.Retry(func() error {
		items, err := s.poller.Poll(context.Background(), def.Name, "")
		if err == nil && len(items) > 0 {
			logger.Debug("scheduled poll emitted items", zap.String("trigger", def.Name), zap.String("invocation", invocationId), zap.Int("items", len(items)))
		}
		if err != nil && !errors.Is(err, polling.ErrLeaseHeld) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		logger.Error("scheduled poll failed", zap.String("trigger", def.Name), zap.String("invocation", invocationId), zap.Error(err))
	}
}
