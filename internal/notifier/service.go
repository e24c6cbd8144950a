package notifier

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"findemybot/internal/storage"
	kit "findemybot/internal/transport"
	logx "findemybot/pkg/logx"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

type slotKey struct {
	chatID int64
	slot   int
}

// Service implements an async delivery pipeline:
// queue + worker pool + rate limit + retry + slot replacement.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log     logx.Logger
	adapter kit.Adapter
	store   storage.Store

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup
	workerWG  sync.WaitGroup

	queue    chan Notification
	stopDone chan struct{} // non-nil while stopping

	// Last delivered message per slot, so re-delivery edits in place.
	smu   sync.Mutex
	slots map[slotKey]kit.MessageRef

	// In-memory history (for /status)
	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		adapter: adapter,
		log:     log,
		store:   store,
		slots:   map[slotKey]kit.MessageRef{},
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	// Defaults
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}

	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Start is idempotent.
	s.mu.Lock()
	// If stopping, wait for it to finish before restarting.
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
	}
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}

	s.queue = make(chan Notification, s.cfg.QueueSize)
	s.accepting = true
	workers := s.cfg.Workers
	q := s.queue
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			s.workerLoop(ctx, q)
		}()
	}
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	q := s.queue
	// If not running, nothing to do.
	if q == nil {
		s.mu.Unlock()
		return
	}
	// If already stopping, wait.
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}

	done := make(chan struct{})
	s.stopDone = done
	// Block new notifies.
	s.accepting = false
	s.mu.Unlock()

	// Shutdown happens asynchronously so callers can time out without leaking state.
	go func() {
		defer close(done)
		// Wait for in-flight enqueues, then close the queue so workers can drain.
		s.sendWG.Wait()
		func() {
			defer func() { _ = recover() }()
			close(q)
		}()
		s.workerWG.Wait()

		s.mu.Lock()
		s.queue = nil
		s.stopDone = nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Notify queues a message for delivery. It never blocks on the transport.
func (s *Service) Notify(ctx context.Context, n Notification) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return ErrDisabled
	}
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	silent := s.cfg.Silent
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	if silent {
		n.Options.Silent = true
	}

	select {
	case q <- n:
		return nil
	default:
		s.log.Warn("notification dropped, queue full", logx.Int("slot", n.Slot))
		return ErrQueueFull
	}
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(n Notification, edited bool) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Slot: n.Slot, Text: n.Text, Edited: edited})
	if len(s.history) > 300 {
		s.history = s.history[len(s.history)-300:]
	}
	s.hmu.Unlock()
}

func (s *Service) workerLoop(ctx context.Context, q <-chan Notification) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-q:
			if !ok {
				return
			}
			s.deliverWithRetry(ctx, n)
		}
	}
}

func (s *Service) deliverWithRetry(runCtx context.Context, n Notification) {
	// config snapshot for this delivery
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	ad := s.adapter
	log := s.log
	s.mu.Unlock()

	if ad == nil || n.Text == "" {
		return
	}

	maxAttempts := 1
	if cfg.RetryMax > 0 {
		maxAttempts = 1 + cfg.RetryMax
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Rate limit (honor cancellation).
		if lim != nil {
			if err := lim.Wait(runCtx); err != nil {
				return
			}
		}

		// Bound per-send call. Keep tight to avoid hanging workers.
		callCtx, cancel := context.WithTimeout(runCtx, 10*time.Second)
		edited, err := s.deliver(callCtx, ad, n)
		cancel()
		if err == nil {
			s.appendHistory(n, edited)
			s.recordDelivery(runCtx, n, edited)
			return
		}
		log.Debug("delivery failed", logx.Err(err), logx.Int("slot", n.Slot), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if attempt >= maxAttempts {
			log.Warn("delivery gave up", logx.Err(err), logx.Int("slot", n.Slot))
			return
		}

		delay := retryDelay(cfg, attempt)
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-runCtx.Done():
			if !t.Stop() {
				<-t.C
			}
			return
		}
	}
}

// deliver sends one notification, editing the previous message when the
// slot already has one. A failed edit (message deleted, too old) falls
// back to a fresh send so the reminder is never lost.
func (s *Service) deliver(ctx context.Context, ad kit.Adapter, n Notification) (edited bool, err error) {
	if n.Slot > 0 {
		key := slotKey{chatID: n.Target.ChatID, slot: n.Slot}
		s.smu.Lock()
		ref, ok := s.slots[key]
		s.smu.Unlock()
		if ok {
			if err := ad.EditText(ctx, ref, n.Text, &n.Options); err == nil {
				return true, nil
			}
			// Stale ref; drop it and send fresh below.
			s.smu.Lock()
			delete(s.slots, key)
			s.smu.Unlock()
		}
	}

	ref, err := ad.SendText(ctx, n.Target, n.Text, &n.Options)
	if err != nil {
		return false, err
	}
	if n.Slot > 0 {
		s.smu.Lock()
		s.slots[slotKey{chatID: n.Target.ChatID, slot: n.Slot}] = ref
		s.smu.Unlock()
	}
	return false, nil
}

func (s *Service) recordDelivery(ctx context.Context, n Notification, edited bool) {
	if s.store == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	err := s.store.AppendDelivery(cctx, storage.DeliveryEntry{
		ID:     uuid.NewString(),
		Slot:   n.Slot,
		ChatID: n.Target.ChatID,
		Text:   n.Text,
		Edited: edited,
		At:     time.Now(),
	})
	if err != nil {
		s.log.Debug("delivery log write failed", logx.Err(err))
	}
}

func retryDelay(cfg Config, attempt int) time.Duration {
	// attempt starts at 1 (first attempt), delay is for the NEXT attempt.
	base := cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxD := cfg.RetryMaxDelay
	if maxD <= 0 {
		maxD = 10 * time.Second
	}
	// Exponential backoff: base * 2^(attempt-1)
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxD {
			d = maxD
			break
		}
	}
	// Jitter 0.7..1.3
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	j := 0.7 + rng.Float64()*0.6
	d = time.Duration(float64(d) * j)
	if d < 0 {
		return 0
	}
	if d > maxD {
		d = maxD
	}
	return d
}
