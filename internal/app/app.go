package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskbot/internal/ai"
	"taskbot/internal/bot"
	"taskbot/internal/config"
	"taskbot/internal/eventbus"
	"taskbot/internal/extract"
	"taskbot/internal/reminder"
	"taskbot/internal/runtime/supervisor"
	"taskbot/internal/storage"
	"taskbot/internal/task"
	"taskbot/internal/task/scheduler"
	kit "taskbot/internal/transport"
	"taskbot/internal/transport/telegram/adapter"
	logx "taskbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store   storage.Store
	adapter kit.Adapter
	sched   *scheduler.Service
	digest  *reminder.Digest
	disp    *bot.Dispatcher

	updates chan kit.Update
}

// New loads the config and builds every component. Nothing runs until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	loc, err := config.ParseLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}

	adCfg, err := mapAdapterConfig(cfg)
	if err != nil {
		return nil, err
	}
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	ad, err := adapter.New(adCfg, bootLog)
	if err != nil {
		return nil, err
	}

	// The Telegram log sink sends through the adapter.
	logSvc, log := logx.New(mapLoggingConfig(cfg), ad)
	appLog := log.With(logx.String("comp", "app"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	closeOnErr := func(err error) (*App, error) {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	ccfg, err := mapCompletionConfig(cfg)
	if err != nil {
		return closeOnErr(err)
	}
	completion, err := ai.NewCompletionClient(ccfg, log.With(logx.String("comp", "ai.completion")))
	if err != nil {
		return closeOnErr(err)
	}

	var transcriber bot.Transcriber
	tcfg, err := mapTranscriptionConfig(cfg)
	if err != nil {
		return closeOnErr(err)
	}
	tc, err := ai.NewTranscriptionClient(tcfg, log.With(logx.String("comp", "ai.transcription")))
	switch {
	case err == nil:
		transcriber = tc
	case errors.Is(err, ai.ErrMissingAPIKey):
		appLog.Warn("transcription api key not set; voice messages disabled", logx.String("env", config.EnvOpenAIKey))
	default:
		return closeOnErr(err)
	}

	bus := eventbus.New()

	extractor := extract.NewService(completion, loc, log.With(logx.String("comp", "extract")))
	deliverer := reminder.NewDeliverer(ad, store, log.With(logx.String("comp", "reminder")))
	sched := scheduler.New(scheduler.Config{Location: loc}, deliverer.Deliver, log.With(logx.String("comp", "scheduler")), bus)
	digest := reminder.NewDigest(ad, store, loc, log.With(logx.String("comp", "digest")))

	disp, err := bot.NewDispatcher(bot.Config{
		Chat:           ad,
		Extractor:      extractor,
		Transcriber:    transcriber,
		Store:          store,
		Scheduler:      sched,
		Location:       loc,
		AllowedUserIDs: cfg.Access.AllowedUserIDs,
		Language:       language(cfg),
	}, log.With(logx.String("comp", "bot")))
	if err != nil {
		return closeOnErr(err)
	}

	appLog.Info("app configured",
		logx.String("timezone", loc.String()),
		logx.String("storage", sc.Driver),
		logx.Bool("voice", transcriber != nil),
		logx.Bool("digest", cfg.Scheduler.DigestOn()),
		logx.Int("allowed_users", len(cfg.Access.AllowedUserIDs)),
	)

	return &App{
		cfgm:    cfgm,
		log:     appLog,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		adapter: ad,
		sched:   sched,
		digest:  digest,
		disp:    disp,
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start re-registers persisted reminders, starts the scheduler, then begins
// receiving updates.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	cfg := a.cfgm.Get()

	if _, err := reminder.Reconcile(ctx, a.store, a.sched, a.log); err != nil {
		return fmt.Errorf("reconcile reminders: %w", err)
	}

	if cfg.Scheduler.DigestOn() {
		if err := a.sched.RegisterRecurring(task.DigestJobID, digestSpec(cfg), a.digest.Job); err != nil {
			return err
		}
	}
	a.sched.Start(a.sup.Context())

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	a.sup.Go0("bot.commands", func(c context.Context) {
		cctx, cancel := context.WithTimeout(c, 10*time.Second)
		defer cancel()
		if err := a.adapter.SetCommands(cctx, bot.Commands()); err != nil {
			a.log.Warn("set bot commands failed", logx.Err(err))
		}
	})

	a.sup.Go("bot.dispatch", func(c context.Context) error {
		return a.disp.Run(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(64, scheduler.EventJobFired, scheduler.EventJobReplaced)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := cfg
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig applies the live sections of a reloaded config and warns about
// the rest.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if pending := config.RestartRequired(sections); len(pending) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect", logx.String("sections", strings.Join(pending, ",")))
	}

	a.logs.Apply(mapLoggingConfig(next))
	a.disp.SetAllowed(next.Access.AllowedUserIDs)

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// Deliveries in flight still need the adapter and the store.
	step("scheduler", 5*time.Second, a.sched.Stop)
	step("adapter", 2*time.Second, a.adapter.Stop)
	step("supervisor", 4*time.Second, a.sup.Wait)
	step("storage", 1*time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}
