package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"findemybot/internal/notifier"
	"findemybot/internal/scheduler"
	kit "findemybot/internal/transport"
)

// registrar exposes the scheduler service through the narrow interface
// the reminder engine schedules against.
type registrar struct {
	s *scheduler.Service
}

func (r registrar) ScheduleOnce(tag string, at time.Time, job func(ctx context.Context) error) error {
	return r.s.ScheduleOnce(tag, at, job)
}

func (r registrar) Cancel(tag string) bool { return r.s.Cancel(tag) }

func (r registrar) CancelPrefix(prefix string) int { return r.s.CancelPrefix(prefix) }

// emitter routes fired reminders into the delivery pipeline, resolving
// the target chat from config on first use and reusing it afterwards.
type emitter struct {
	a *App
}

func (e emitter) Emit(ctx context.Context, slot int, title, body string) error {
	target, err := e.a.ensureTarget()
	if err != nil {
		return err
	}
	return e.a.notif.Notify(ctx, notifier.Notification{
		Slot:   slot,
		Target: target,
		Text:   fmt.Sprintf("🔔 %s\n%s", title, body),
	})
}

// ensureTarget validates the delivery chat once and caches it. A config
// reload that changes the chat clears the cache (see the reload loop).
func (a *App) ensureTarget() (kit.ChatTarget, error) {
	a.tmu.Lock()
	defer a.tmu.Unlock()
	if a.target != nil {
		return *a.target, nil
	}
	cfg := a.cfgm.Get()
	if cfg == nil || cfg.Telegram.ChatID == 0 {
		return kit.ChatTarget{}, errors.New("telegram.chat_id is not configured")
	}
	t := kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
	a.target = &t
	return t, nil
}

func (a *App) clearTarget() {
	a.tmu.Lock()
	a.target = nil
	a.tmu.Unlock()
}
