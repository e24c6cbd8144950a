package scheduler

import (
	"errors"
	"strings"
	"time"

	logx "findemybot/pkg/logx"
)

// ScheduleOnce registers a one-shot job firing at the given instant,
// replacing any pending job under the same tag. The replace is what keeps
// at-most-one-live-job-per-tag without a registry: callers re-register
// freely and the previous timer is stopped here.
//
// An instant at or before now is clamped to "fire immediately"; callers that
// want past instants skipped must check before registering.
func (s *Service) ScheduleOnce(tag string, at time.Time, job Job) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errors.New("tag required")
	}
	if at.IsZero() {
		return errors.New("at required")
	}
	if job == nil {
		return errors.New("job required")
	}

	s.mu.Lock()
	timeout := s.resolveTimeout(0)
	s.mu.Unlock()

	s.tmu.Lock()
	// upsert: stop any pending timer with the same tag
	if t, ok := s.timers[tag]; ok {
		_ = t.Stop()
		delete(s.timers, tag)
	}
	// bump version to ignore stale callbacks from replaced timers
	ver := s.onceVer[tag] + 1
	s.onceVer[tag] = ver
	s.onceAt[tag] = at
	s.onceJob[tag] = job

	s.timers[tag] = s.newOnceTimer(tag, at, timeout, ver)
	s.tmu.Unlock()

	s.log.Debug("one-shot registered", logx.String("tag", tag), logx.Time("at", at))
	return nil
}

func (s *Service) newOnceTimer(tag string, at time.Time, timeout time.Duration, ver uint64) *time.Timer {
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	return time.AfterFunc(delay, func() {
		// If the registration was removed or replaced, ignore this callback.
		s.tmu.Lock()
		if s.onceVer[tag] != ver {
			s.tmu.Unlock()
			return
		}
		job := s.onceJob[tag]
		// cleanup the definition first (prevents double-exec on restart)
		delete(s.timers, tag)
		delete(s.onceAt, tag)
		delete(s.onceJob, tag)
		delete(s.onceVer, tag)
		s.tmu.Unlock()
		if job == nil {
			return
		}

		s.enqueue(task{tag: tag, timeout: timeout, run: job, state: &runState{}})
	})
}

// Cancel removes the pending one-shot under tag. Idempotent: cancelling a tag
// with nothing pending is a no-op and reports false.
func (s *Service) Cancel(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	s.tmu.Lock()
	defer s.tmu.Unlock()
	return s.cancelLocked(tag)
}

// CancelPrefix removes every pending one-shot whose tag starts with prefix
// and reports how many were removed.
func (s *Service) CancelPrefix(prefix string) int {
	if strings.TrimSpace(prefix) == "" {
		return 0
	}
	s.tmu.Lock()
	defer s.tmu.Unlock()
	var tags []string
	for tag := range s.onceVer {
		if strings.HasPrefix(tag, prefix) {
			tags = append(tags, tag)
		}
	}
	n := 0
	for _, tag := range tags {
		if s.cancelLocked(tag) {
			n++
		}
	}
	return n
}

// cancelLocked removes one tag. Call with s.tmu held.
func (s *Service) cancelLocked(tag string) bool {
	removed := false
	if t, ok := s.timers[tag]; ok {
		_ = t.Stop()
		delete(s.timers, tag)
		removed = true
	}
	if _, ok := s.onceVer[tag]; ok {
		delete(s.onceAt, tag)
		delete(s.onceJob, tag)
		delete(s.onceVer, tag)
		removed = true
	}
	if removed {
		s.log.Debug("one-shot cancelled", logx.String("tag", tag))
	}
	return removed
}

// PendingAt reports the fire instant of the pending one-shot under tag.
func (s *Service) PendingAt(tag string) (time.Time, bool) {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	at, ok := s.onceAt[tag]
	return at, ok
}

// rebuildOnceTimersLocked recreates runtime timers from the persisted
// definitions. Call with s.mu held.
func (s *Service) rebuildOnceTimersLocked() {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	// should already be empty after Stop(), but be safe
	for _, t := range s.timers {
		_ = t.Stop()
	}
	s.timers = map[string]*time.Timer{}

	timeout := s.resolveTimeout(0)
	for tag, at := range s.onceAt {
		job := s.onceJob[tag]
		if job == nil {
			delete(s.onceAt, tag)
			delete(s.onceJob, tag)
			delete(s.onceVer, tag)
			continue
		}
		ver := s.onceVer[tag]
		if ver == 0 {
			ver = 1
			s.onceVer[tag] = ver
		}
		s.timers[tag] = s.newOnceTimer(tag, at, timeout, ver)
	}
}
