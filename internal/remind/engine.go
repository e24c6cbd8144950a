package remind

import (
	"context"
	"time"

	logx "findemybot/pkg/logx"
)

// Registrar is the slice of the deferred-execution facility the engine
// needs. *scheduler.Service satisfies it through a thin adapter in the
// app wiring; tests use a fake.
type Registrar interface {
	ScheduleOnce(tag string, at time.Time, job func(ctx context.Context) error) error
	Cancel(tag string) bool
	CancelPrefix(prefix string) int
}

// Emitter delivers the user-visible notification at fire time.
type Emitter interface {
	Emit(ctx context.Context, slot int, title, body string) error
}

// EngineConfig carries the lead offsets and the zone reminders are
// computed in. Zero values fall back to the FINDEMY defaults.
type EngineConfig struct {
	ClassLead time.Duration
	TaskLead  time.Duration
	EventLead time.Duration
	Location  *time.Location
}

// Engine arms tag-keyed one-shot jobs for reminder requests and re-arms
// weekly ones when they fire. It keeps no registry of live jobs: the
// registrar's tag table is the single source of truth, addressed only
// through the deterministic tags of JobTag.
type Engine struct {
	reg  Registrar
	emit Emitter
	log  logx.Logger

	classLead time.Duration
	taskLead  time.Duration
	eventLead time.Duration
	loc       *time.Location

	now func() time.Time // test hook
}

func NewEngine(cfg EngineConfig, reg Registrar, emit Emitter, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.ClassLead <= 0 {
		cfg.ClassLead = ClassLead
	}
	if cfg.TaskLead <= 0 {
		cfg.TaskLead = TaskLead
	}
	if cfg.EventLead <= 0 {
		cfg.EventLead = EventLead
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Engine{
		reg:       reg,
		emit:      emit,
		log:       log,
		classLead: cfg.ClassLead,
		taskLead:  cfg.TaskLead,
		eventLead: cfg.EventLead,
		loc:       cfg.Location,
		now:       time.Now,
	}
}

// Location returns the zone reminders are computed in.
func (e *Engine) Location() *time.Location { return e.loc }

// Schedule computes the fire instant for req and registers a one-shot
// job under its tag, replacing any pending job for the same entity.
// A request with no valid future fire instant is skipped silently, and
// registration failures are swallowed: callers' primary flows must not
// fail over a best-effort reminder.
func (e *Engine) Schedule(req Request) {
	now := e.now().In(e.loc)

	var (
		fire time.Time
		ok   bool
	)
	switch req.Kind {
	case KindClass:
		fire, ok = NextWeeklyOccurrence(req.Day, req.StartHHMM, e.classLead, now)
	case KindTask:
		fire, ok = OneShotBefore(req.At, e.taskLead, now)
	case KindEvent:
		fire, ok = OneShotBefore(req.At, e.eventLead, now)
	}
	if !ok {
		e.log.Debug("reminder skipped",
			logx.String("kind", req.Kind.String()), logx.Int("id", req.ID))
		return
	}

	tag := JobTag(req.Kind, req.ID)
	if err := e.reg.ScheduleOnce(tag, fire, func(ctx context.Context) error {
		e.fire(ctx, req)
		return nil
	}); err != nil {
		e.log.Warn("reminder registration failed",
			logx.String("tag", tag), logx.Err(err))
		return
	}
	e.log.Debug("reminder armed",
		logx.String("tag", tag), logx.Time("fire", fire))
}

// fire runs at the computed instant: deliver the notification, then for
// weekly classes re-arm the chain for next week under the same tag.
func (e *Engine) fire(ctx context.Context, req Request) {
	if err := e.emit.Emit(ctx, Slot(req.Kind, req.ID), req.Title, req.Body); err != nil {
		e.log.Warn("reminder delivery failed",
			logx.String("tag", JobTag(req.Kind, req.ID)), logx.Err(err))
	}
	if req.Kind == KindClass {
		e.Schedule(req)
	}
}

// Cancel removes the pending job for an entity, if any. Idempotent.
func (e *Engine) Cancel(kind Kind, id int) {
	e.reg.Cancel(JobTag(kind, id))
}

// CancelAll sweeps every pending reminder job.
func (e *Engine) CancelAll() {
	n := e.reg.CancelPrefix(TagPrefix)
	if n > 0 {
		e.log.Debug("reminders cleared", logx.Int("count", n))
	}
}
