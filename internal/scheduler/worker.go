package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	logx "findemybot/pkg/logx"
)

func (s *Service) enqueue(t task) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		s.log.Debug("scheduler not running; dropping job", logx.String("tag", t.tag))
		return
	}
	select {
	case q <- t:
	default:
		s.log.Warn("scheduler queue full; dropping job", logx.String("tag", t.tag), logx.Int("queue_cap", cap(q)))
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan task) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-queue:
			s.execOne(ctx, stopCh, t)
		}
	}
}

func (s *Service) execOne(ctx context.Context, stopCh <-chan struct{}, t task) {
	start := time.Now()

	// Mark running for overlap control (shared state between cron ticks).
	if t.state != nil {
		t.state.mu.Lock()
		t.state.running = true
		t.state.mu.Unlock()
		defer func() {
			t.state.mu.Lock()
			t.state.running = false
			t.state.mu.Unlock()
		}()
	}

	// Copy config to avoid data races with Apply().
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	retries := cfg.RetryMax
	if retries < 0 {
		retries = 0
	}

	var err error
	attempts := 0
	maxAttempts := 1 + retries
attemptLoop:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		// Per-attempt timeout so a timed-out first attempt doesn't poison retries.
		runCtx := ctx
		var cancel func()
		if t.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		}
		err = t.run(runCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil || attempt >= maxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			err = ctx.Err()
			break attemptLoop
		case <-stopCh:
			if !tmr.Stop() {
				<-tmr.C
			}
			err = errors.New("scheduler stopped")
			break attemptLoop
		case <-tmr.C:
		}
	}

	dur := time.Since(start)
	item := HistoryItem{Tag: t.tag, Started: start, Duration: dur}
	if err != nil {
		item.Error = err.Error()
		s.log.Warn("job failed", logx.String("tag", t.tag), logx.Err(err), logx.Duration("dur", dur), logx.Int("attempts", attempts))
	} else if dur >= 750*time.Millisecond {
		s.log.Info("job completed", logx.String("tag", t.tag), logx.Duration("dur", dur), logx.Int("attempts", attempts))
	} else {
		s.log.Debug("job completed", logx.String("tag", t.tag), logx.Duration("dur", dur), logx.Int("attempts", attempts))
	}

	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, item)
	historySize := cfg.HistorySize
	// A zero/negative history_size would mean unbounded growth; long-running
	// agents slowly retain memory that way, so cap it.
	if historySize <= 0 {
		historySize = 200
	}
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
}

func backoffDelay(cfg Config, retry int) time.Duration {
	base := cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxD := cfg.RetryMaxDelay
	if maxD <= 0 {
		maxD = 15 * time.Second
	}
	d := base
	for i := 1; i < retry; i++ {
		d *= 2
		if d > maxD {
			d = maxD
			break
		}
	}
	// jitter [0.8, 1.2]
	d = time.Duration(float64(d) * (0.8 + 0.4*randFloat64()))
	if d > maxD {
		d = maxD
	}
	return d
}

var rngMu sync.Mutex
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

func randFloat64() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}
