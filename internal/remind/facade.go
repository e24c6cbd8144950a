package remind

import (
	"fmt"
	"time"

	"findemybot/internal/api"
	logx "findemybot/pkg/logx"
)

// Facade is the single entry point callers use: bulk schedule after
// login or resync, schedule-one after create/update, cancel-one after
// delete. Every operation is fire-and-forget; no failure detail reaches
// the caller.
type Facade struct {
	eng *Engine
	log logx.Logger
}

func NewFacade(eng *Engine, log logx.Logger) *Facade {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Facade{eng: eng, log: log}
}

// ScheduleAll clears every pending reminder, then schedules each entity
// whose reminder flag is set. Disabled entities are simply not
// re-registered; the sweep already removed their stale jobs.
func (f *Facade) ScheduleAll(classes []api.Jadwal, tasks []api.Tugas, events []api.Event) {
	f.eng.CancelAll()
	n := 0
	for _, j := range classes {
		if !j.PasangPengingat {
			continue
		}
		f.eng.Schedule(classRequest(j))
		n++
	}
	for _, t := range tasks {
		if !t.PasangPengingat {
			continue
		}
		req, ok := f.taskRequest(t)
		if !ok {
			continue
		}
		f.eng.Schedule(req)
		n++
	}
	for _, ev := range events {
		if !ev.PasangPengingat {
			continue
		}
		req, ok := f.eventRequest(ev)
		if !ok {
			continue
		}
		f.eng.Schedule(req)
		n++
	}
	f.log.Info("reminders rescheduled", logx.Int("requested", n))
}

// ScheduleClass replaces the reminder for one class. Cancel always runs
// first so an edit that turned the flag off leaves nothing behind.
func (f *Facade) ScheduleClass(j api.Jadwal) {
	f.eng.Cancel(KindClass, j.ID)
	if j.PasangPengingat {
		f.eng.Schedule(classRequest(j))
	}
}

// ScheduleTask replaces the reminder for one task.
func (f *Facade) ScheduleTask(t api.Tugas) {
	f.eng.Cancel(KindTask, t.ID)
	if !t.PasangPengingat {
		return
	}
	if req, ok := f.taskRequest(t); ok {
		f.eng.Schedule(req)
	}
}

// ScheduleEvent replaces the reminder for one event.
func (f *Facade) ScheduleEvent(ev api.Event) {
	f.eng.Cancel(KindEvent, ev.ID)
	if !ev.PasangPengingat {
		return
	}
	if req, ok := f.eventRequest(ev); ok {
		f.eng.Schedule(req)
	}
}

// CancelOne removes the pending reminder for an entity. Idempotent.
func (f *Facade) CancelOne(kind Kind, id int) {
	f.eng.Cancel(kind, id)
}

// CancelAll removes every pending reminder.
func (f *Facade) CancelAll() {
	f.eng.CancelAll()
}

func classRequest(j api.Jadwal) Request {
	return Request{
		Kind:      KindClass,
		ID:        j.ID,
		Title:     "Pengingat Jadwal",
		Body:      fmt.Sprintf("%s - %s di %s dalam 1 jam", j.MataKuliah, j.Dosen, j.Ruangan),
		Day:       j.Hari,
		StartHHMM: j.JamMulai,
		Course:    j.MataKuliah,
		Lecturer:  j.Dosen,
		Room:      j.Ruangan,
	}
}

func (f *Facade) taskRequest(t api.Tugas) (Request, bool) {
	at, err := time.ParseInLocation(api.DeadlineLayout, t.Deadline, f.eng.Location())
	if err != nil {
		f.log.Debug("task deadline unparsable, reminder skipped",
			logx.Int("id", t.ID), logx.String("deadline", t.Deadline))
		return Request{}, false
	}
	return Request{
		Kind:  KindTask,
		ID:    t.ID,
		Title: "Pengingat Tugas",
		Body:  fmt.Sprintf("%s - Deadline dalam 1 jam!", t.Judul),
		At:    at,
	}, true
}

func (f *Facade) eventRequest(ev api.Event) (Request, bool) {
	at, err := time.ParseInLocation(api.EventLayout, ev.TanggalMulai, f.eng.Location())
	if err != nil {
		f.log.Debug("event start unparsable, reminder skipped",
			logx.Int("id", ev.ID), logx.String("start", ev.TanggalMulai))
		return Request{}, false
	}
	return Request{
		Kind:  KindEvent,
		ID:    ev.ID,
		Title: "Pengingat Event",
		Body:  fmt.Sprintf("%s besok pukul %s", ev.Judul, at.Format("15:04")),
		At:    at,
	}, true
}
