package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "findemybot/pkg/logx"
)

// AddCron registers a repeating job, replacing any cron entry with the same
// tag. Accepts 5/6-field cron specs and descriptors ("@hourly", "@every 6h").
func (s *Service) AddCron(tag, spec string, timeout time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(tag) == "" {
		return errors.New("tag required")
	}
	if job == nil {
		return errors.New("job required")
	}
	// Upsert by tag: remove the previous entry so hot reloads and repeated
	// registrations don't stack duplicates.
	_ = s.removeCronLocked(tag)
	d := cronDef{
		tag:     tag,
		spec:    spec,
		timeout: s.resolveTimeout(timeout),
		job:     job,
		state:   &runState{},
	}
	s.defs = append(s.defs, d)
	if s.c == nil {
		// Not started yet: keep the definition and register it on Start().
		return nil
	}
	if err := s.addCronLocked(&s.defs[len(s.defs)-1]); err != nil {
		s.log.Error("cron register failed", logx.String("tag", tag), logx.String("spec", spec), logx.Err(err))
		return err
	}
	s.log.Debug("cron registered", logx.String("tag", tag), logx.String("spec", spec))
	return nil
}

// AddInterval registers a repeating job on a fixed interval.
func (s *Service) AddInterval(tag string, every time.Duration, timeout time.Duration, job Job) error {
	if every <= 0 {
		return errors.New("interval must be > 0")
	}
	return s.AddCron(tag, fmt.Sprintf("@every %s", every.String()), timeout, job)
}

// RemoveCron unschedules the cron entry with the given tag.
func (s *Service) RemoveCron(tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeCronLocked(tag)
}

// removeCronLocked removes all defs matching tag and unregisters them from
// cron if running. Call with s.mu held.
func (s *Service) removeCronLocked(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	removed := false
	if s.c != nil {
		for i := range s.defs {
			if s.defs[i].tag == tag && s.defs[i].entryID != 0 {
				s.c.Remove(s.defs[i].entryID)
				s.defs[i].entryID = 0
				removed = true
			}
		}
	}
	n := 0
	for _, d := range s.defs {
		if d.tag == tag {
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

// addCronLocked registers one definition with the running cron. Overlapping
// runs are skipped: a tick that arrives while the previous run is still
// executing does not enqueue. Call with s.mu held.
func (s *Service) addCronLocked(d *cronDef) error {
	eid, err := s.c.AddFunc(d.spec, func() {
		d.state.mu.Lock()
		running := d.state.running
		d.state.mu.Unlock()
		if running {
			s.log.Debug("cron tick skipped (previous run still running)", logx.String("tag", d.tag))
			return
		}
		s.enqueue(task{tag: d.tag, timeout: d.timeout, run: d.job, state: d.state})
	})
	if err == nil {
		d.entryID = eid
	}
	return err
}

func (s *Service) restartCronLocked() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	for i := range s.defs {
		_ = s.addCronLocked(&s.defs[i])
	}
	s.c.Start()
	s.log.Info("cron restarted", logx.String("tz", loc.String()), logx.Int("entries", len(s.defs)))
}
