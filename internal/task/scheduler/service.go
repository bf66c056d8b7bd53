package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"taskbot/internal/eventbus"
	"taskbot/internal/runtime/supervisor"
	logx "taskbot/pkg/logx"
)

const (
	EventJobFired    = "scheduler.job_fired"
	EventJobReplaced = "scheduler.job_replaced"
)

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	bus    eventbus.Bus
	onFire FireFunc

	parser cron.Parser
	c      *cron.Cron
	sup    *supervisor.Supervisor
	state  runState

	seq       uint64
	once      map[string]*onceEntry
	recurring map[string]*recurringDef

	fired  atomic.Uint64
	failed atomic.Uint64
}

// New creates a scheduler. onFire receives every fired one-shot job. bus may be nil.
func New(cfg Config, onFire FireFunc, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if cfg.OnceTimeout <= 0 {
		cfg.OnceTimeout = DefaultOnceTimeout
	}
	if cfg.RecurringTimeout <= 0 {
		cfg.RecurringTimeout = DefaultRecurringTimeout
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		loc:    loc,
		bus:    bus,
		onFire: onFire,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:    cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		once:      map[string]*onceEntry{},
		recurring: map[string]*recurringDef{},
	}
}

// Location returns the zone used for cron specs.
func (s *Service) Location() *time.Location { return s.loc }

// Start arms every registered job. Past-due one-shot jobs fire immediately.
// Calling Start more than once, or after Stop, is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		return
	}
	s.state = stateRunning
	s.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(s.log))
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))

	for _, d := range s.recurring {
		if err := s.addCronLocked(d); err != nil {
			s.log.Error("recurring register failed", logx.String("id", d.id), logx.String("spec", d.spec), logx.Err(err))
		}
	}
	s.c.Start()
	for _, e := range s.once {
		s.armLocked(e)
	}
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("once", len(s.once)), logx.Int("recurring", len(s.recurring)))
}

// Stop prevents new firings and waits, bounded by ctx, for callbacks already
// running. Running callbacks are never cancelled by Stop. Idempotent.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()

	s.mu.Lock()
	if s.state != stateRunning {
		s.state = stateStopped
		s.mu.Unlock()
		return nil
	}
	s.state = stateStopped
	for id, e := range s.once {
		if e.timer != nil {
			_ = e.timer.Stop()
		}
		delete(s.once, id)
	}
	c, sup := s.c, s.sup
	s.c = nil
	s.mu.Unlock()

	s.log.Info("stop requested")
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	err := sup.Wait(ctx)
	sup.Cancel()
	if err != nil && ctx.Err() != nil {
		s.log.Warn("stop timed out with callbacks in flight", logx.Int64("in_flight", sup.Counters().Active))
		return err
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
	return nil
}

func (s *Service) armLocked(e *onceEntry) {
	delay := time.Until(e.at)
	if delay < 0 {
		delay = 0
	}
	id, ver := e.id, e.ver
	e.timer = time.AfterFunc(delay, func() { s.fire(id, ver) })
}

// fire runs on the timer goroutine. A replaced or cancelled job finds a
// different version (or nothing) in the table and does nothing.
func (s *Service) fire(id string, ver uint64) {
	s.mu.Lock()
	e, ok := s.once[id]
	if !ok || e.ver != ver || s.state != stateRunning {
		s.mu.Unlock()
		return
	}
	delete(s.once, id)
	p := e.payload
	s.dispatchLocked(id, s.cfg.OnceTimeout, func(ctx context.Context) error {
		if s.onFire == nil {
			return nil
		}
		return s.onFire(ctx, p)
	})
	s.mu.Unlock()

	s.publish(EventJobFired, map[string]any{"id": id, "kind": string(KindOnce), "task_id": p.TaskID})
}

// dispatchLocked runs fn on a supervised goroutine. Errors and panics are
// logged and dropped; nothing is retried.
func (s *Service) dispatchLocked(id string, timeout time.Duration, fn func(ctx context.Context) error) {
	s.sup.Go0("job "+id, func(ctx context.Context) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		start := time.Now()
		s.fired.Add(1)
		defer func() {
			if r := recover(); r != nil {
				s.failed.Add(1)
				s.log.Error("job panicked", logx.String("id", id), logx.Any("panic", r))
			}
		}()
		if err := fn(cctx); err != nil {
			s.failed.Add(1)
			s.log.Warn("job failed", logx.String("id", id), logx.Duration("took", time.Since(start)), logx.Err(err))
			return
		}
		s.log.Debug("job done", logx.String("id", id), logx.Duration("took", time.Since(start)))
	})
}

func (s *Service) publish(typ string, data map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
