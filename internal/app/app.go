// Package app wires the findemybot components together: config,
// logging, the Telegram adapter, the deferred-execution scheduler, the
// delivery pipeline, local storage, the FINDEMY API client, the
// reminder facade and the hooks listener.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"findemybot/internal/api"
	"findemybot/internal/config"
	"findemybot/internal/hooks"
	"findemybot/internal/notifier"
	"findemybot/internal/remind"
	"findemybot/internal/scheduler"
	"findemybot/internal/storage"
	kit "findemybot/internal/transport"
	telegram "findemybot/internal/transport/telegram"
	logx "findemybot/pkg/logx"

	"github.com/coreos/go-systemd/v22/daemon"
)

// resyncTag names the periodic resync entry in the scheduler.
const resyncTag = "resync:periodic"

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter kit.Adapter
	client  *api.Client

	sched  *scheduler.Service
	notif  *notifier.Service
	engine *remind.Engine
	facade *remind.Facade
	hooks  *hooks.Server

	updates chan kit.Update

	// run context for background goroutines; nil until Start
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// serializes resync runs
	rmu sync.Mutex

	// cached delivery target (lazy ensure)
	tmu    sync.Mutex
	target *kit.ChatTarget
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// Bootstrap logging with the Telegram sink off, set the target,
	// then Apply() the final config so enabling it never warns about a
	// missing target.
	baseLogCfg := mapLogConfig(cfg)
	baseLogCfg.Telegram.Enabled = false
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))
	if cfg.Telegram.ChatID != 0 {
		logSvc.SetTelegramTarget(cfg.Telegram.ChatID, cfg.Logging.Telegram.ThreadID)
	}
	logSvc.Apply(mapLogConfig(cfg))

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	apiTimeout, err := config.ParseDurationOrDefault("api.timeout", cfg.API.Timeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	client := api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: apiTimeout},
		log.With(logx.String("comp", "api")))

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	schedSvc := scheduler.New(schedCfg, log.With(logx.String("comp", "scheduler")))

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), store)

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		client:  client,
		sched:   schedSvc,
		notif:   notifSvc,
		updates: make(chan kit.Update, 256),
	}

	engCfg, err := mapEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.engine = remind.NewEngine(engCfg, registrar{s: schedSvc}, emitter{a: a},
		log.With(logx.String("comp", "remind")))
	a.facade = remind.NewFacade(a.engine, log.With(logx.String("comp", "remind")))

	hcfg := hooks.Config{}
	if cfg.Hooks != nil {
		hcfg = hooks.Config{Enabled: cfg.Hooks.Enabled, Addr: cfg.Hooks.Addr, Token: cfg.Hooks.Token}
	}
	a.hooks = hooks.New(hcfg, a.facade, a.resyncDetached, log.With(logx.String("comp", "hooks")))

	return a, nil
}

func (a *App) runCtx() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.ctx = runCtx
	a.cancel = cancel
	a.mu.Unlock()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(validateConfig)

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}
	if a.notif.Enabled() {
		a.notif.Start(runCtx)
	}
	if a.sched.Enabled() {
		a.sched.Start(runCtx)
	}
	if err := a.hooks.Start(runCtx); err != nil {
		cancel()
		return err
	}

	// Initial login + reminder build. Runs off Start so a slow or down
	// backend can't stall process startup; systemd readiness is gated
	// on wiring, not on the first successful sync.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.resync(runCtx); err != nil {
			a.log.Warn("initial resync failed", logx.Err(err))
		}
	}()

	if err := a.registerPeriodicResync(a.cfgm.Get()); err != nil {
		a.log.Warn("periodic resync not registered", logx.Err(err))
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.dispatchLoop(runCtx, a.updates)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reloadLoop(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Warn("config watch exited", logx.Err(err))
		}
	}()

	a.startWatchdog(runCtx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, c := context.WithTimeout(ctx, max)
		defer c()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
	}

	step("hooks", 2*time.Second, a.hooks.Stop)
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, a.adapter.Stop)
	if a.store != nil {
		step("storage", time.Second, func(context.Context) error { return a.store.Close() })
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("stop timed out waiting for background loops")
	}

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}

// registerPeriodicResync installs (or replaces) the interval entry that
// refreshes all reminders. An interval of 0 disables it.
func (a *App) registerPeriodicResync(cfg *config.Config) error {
	// Empty means the default; an explicit "0s" disables the entry.
	every := 6 * time.Hour
	if raw := strings.TrimSpace(cfg.Reminders.ResyncEvery); raw != "" {
		d, err := config.ParseDurationField("reminders.resync_every", raw)
		if err != nil {
			return err
		}
		every = d
	}
	a.sched.RemoveCron(resyncTag)
	if every <= 0 {
		a.log.Info("periodic resync disabled")
		return nil
	}
	return a.sched.AddInterval(resyncTag, every, 2*time.Minute, func(ctx context.Context) error {
		return a.resync(ctx)
	})
}

// reloadLoop applies config changes published by the watcher.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			a.applyConfig(ctx, newCfg)
		}
	}
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	if cfg.Telegram.ChatID != 0 {
		a.logs.SetTelegramTarget(cfg.Telegram.ChatID, cfg.Logging.Telegram.ThreadID)
	} else {
		a.logs.SetTelegramTarget(0, 0)
	}
	a.logs.Apply(mapLogConfig(cfg))
	a.clearTarget()

	if schedCfg, err := mapSchedulerConfig(cfg); err != nil {
		a.log.Warn("invalid reminders config; keeping previous", logx.Err(err))
	} else {
		prev := a.sched.Enabled()
		a.sched.Apply(schedCfg)
		if prev && !schedCfg.Enabled {
			a.log.Info("reminder scheduler disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.sched.Stop(stopCtx)
			cancel()
		} else if !prev && schedCfg.Enabled {
			a.log.Info("reminder scheduler enabled via config")
			a.sched.Start(ctx)
		}
	}

	if ncfg, err := mapNotifierConfig(cfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		prev := a.notif.Enabled()
		a.notif.Apply(ncfg)
		if prev && !ncfg.Enabled {
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		} else if !prev && ncfg.Enabled {
			a.notif.Start(ctx)
		}
	}

	if err := a.registerPeriodicResync(cfg); err != nil {
		a.log.Warn("periodic resync not updated", logx.Err(err))
	}

	a.log.Info("config reloaded")
}

// startWatchdog pings systemd's watchdog at half its interval, when one
// is configured for the unit.
func (a *App) startWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func validateConfig(_ context.Context, cfg *config.Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if _, err := config.ParseDurationField("api.timeout", cfg.API.Timeout); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if cfg.Reminders.Workers < 0 {
		return fmt.Errorf("reminders.workers must be >= 0")
	}
	if tz := strings.TrimSpace(cfg.Reminders.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("reminders.timezone: invalid %q: %w", tz, err)
		}
	}
	for _, f := range []struct{ key, raw string }{
		{"reminders.resync_every", cfg.Reminders.ResyncEvery},
		{"reminders.class_lead", cfg.Reminders.ClassLead},
		{"reminders.task_lead", cfg.Reminders.TaskLead},
		{"reminders.event_lead", cfg.Reminders.EventLead},
		{"reminders.default_timeout", cfg.Reminders.DefaultTimeout},
	} {
		if _, err := config.ParseDurationField(f.key, f.raw); err != nil {
			return err
		}
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	return nil
}
