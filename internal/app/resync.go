package app

import (
	"context"
	"errors"
	"time"

	"findemybot/internal/api"
	"findemybot/internal/storage"
	logx "findemybot/pkg/logx"
)

// ensureLogin makes sure the API client carries a usable token. A token
// restored from storage is tried first; a 401 falls through to a fresh
// login with the configured credentials.
func (a *App) ensureLogin(ctx context.Context) error {
	if a.client.Token() != "" {
		return nil
	}

	if a.store != nil {
		if sess, ok, err := a.store.LoadSession(ctx); err == nil && ok {
			a.client.SetToken(sess.Token)
			a.log.Debug("session restored from storage", logx.String("email", sess.Email))
			return nil
		}
	}
	return a.login(ctx)
}

func (a *App) login(ctx context.Context) error {
	cfg := a.cfgm.Get()
	res, err := a.client.Login(ctx, cfg.API.Email, cfg.API.Password)
	if err != nil {
		return err
	}
	a.log.Info("logged in", logx.String("user", res.User.Name))

	if a.store != nil {
		err := a.store.SaveSession(ctx, storage.Session{
			Token:   res.Token,
			Name:    res.User.Name,
			Email:   res.User.Email,
			SavedAt: time.Now(),
		})
		if err != nil {
			a.log.Warn("session not persisted", logx.Err(err))
		}
	}
	return nil
}

// resync fetches the current classes, tasks and events and rebuilds
// every reminder from scratch. Overlapping calls are serialized; the
// later one still runs so it observes the freshest data.
func (a *App) resync(ctx context.Context) error {
	a.rmu.Lock()
	defer a.rmu.Unlock()

	if err := a.ensureLogin(ctx); err != nil {
		return err
	}

	classes, err := a.client.Schedules(ctx)
	if err = a.retryUnauthorized(ctx, err, func() error {
		classes, err = a.client.Schedules(ctx)
		return err
	}); err != nil {
		return err
	}
	tasks, err := a.client.Tasks(ctx)
	if err != nil {
		return err
	}
	events, err := a.client.Events(ctx)
	if err != nil {
		return err
	}

	a.facade.ScheduleAll(classes, tasks, events)
	a.log.Info("resync complete",
		logx.Int("classes", len(classes)),
		logx.Int("tasks", len(tasks)),
		logx.Int("events", len(events)))
	return nil
}

// retryUnauthorized handles an expired stored token: re-login once and
// rerun the failed call.
func (a *App) retryUnauthorized(ctx context.Context, err error, again func() error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	a.log.Info("token expired, logging in again")
	a.client.SetToken("")
	if a.store != nil {
		_ = a.store.ClearSession(ctx)
	}
	if err := a.login(ctx); err != nil {
		return err
	}
	return again()
}

// resyncDetached runs one bounded resync against the app lifetime context
// instead of a request context. Hooks and the Telegram command call it in
// their own goroutine so the HTTP response / reply is not held up.
func (a *App) resyncDetached() {
	ctx := a.runCtx()
	if ctx == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := a.resync(rctx); err != nil {
		a.log.Warn("resync failed", logx.Err(err))
	}
}
