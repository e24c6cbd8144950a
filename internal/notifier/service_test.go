package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kit "findemybot/internal/transport"
	logx "findemybot/pkg/logx"
)

type fakeAdapter struct {
	mu      sync.Mutex
	sent    []string
	edits   []string
	nextID  int
	editErr error
	done    chan struct{}
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{done: make(chan struct{}, 16)}
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	f.nextID++
	f.sent = append(f.sent, text)
	ref := kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: f.nextID}
	f.mu.Unlock()
	f.done <- struct{}{}
	return ref, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	f.mu.Lock()
	err := f.editErr
	if err == nil {
		f.edits = append(f.edits, text)
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.done <- struct{}{}
	return nil
}

func (f *fakeAdapter) counts() (sent, edits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent), len(f.edits)
}

func waitDelivered(t *testing.T, f *fakeAdapter) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not complete")
	}
}

func startNotifier(t *testing.T, f *fakeAdapter) *Service {
	t.Helper()
	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, f, logx.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		s.Stop(sctx)
		cancel()
	})
	return s
}

func TestSlotRedeliveryEdits(t *testing.T) {
	f := newFakeAdapter()
	s := startNotifier(t, f)

	target := kit.ChatTarget{ChatID: 42}
	if err := s.Notify(context.Background(), Notification{Slot: 1001, Target: target, Text: "first"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitDelivered(t, f)
	if err := s.Notify(context.Background(), Notification{Slot: 1001, Target: target, Text: "second"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitDelivered(t, f)

	sent, edits := f.counts()
	if sent != 1 || edits != 1 {
		t.Fatalf("sent=%d edits=%d, want 1 send then 1 edit", sent, edits)
	}
	if f.edits[0] != "second" {
		t.Fatalf("edit text = %q, want %q", f.edits[0], "second")
	}
}

func TestDistinctSlotsDoNotReplace(t *testing.T) {
	f := newFakeAdapter()
	s := startNotifier(t, f)

	target := kit.ChatTarget{ChatID: 42}
	_ = s.Notify(context.Background(), Notification{Slot: 1001, Target: target, Text: "class"})
	waitDelivered(t, f)
	_ = s.Notify(context.Background(), Notification{Slot: 2001, Target: target, Text: "task"})
	waitDelivered(t, f)

	sent, edits := f.counts()
	if sent != 2 || edits != 0 {
		t.Fatalf("sent=%d edits=%d, want 2 sends and no edits", sent, edits)
	}
}

func TestEditFailureFallsBackToSend(t *testing.T) {
	f := newFakeAdapter()
	s := startNotifier(t, f)

	target := kit.ChatTarget{ChatID: 42}
	_ = s.Notify(context.Background(), Notification{Slot: 3001, Target: target, Text: "event"})
	waitDelivered(t, f)

	f.mu.Lock()
	f.editErr = errors.New("message to edit not found")
	f.mu.Unlock()

	_ = s.Notify(context.Background(), Notification{Slot: 3001, Target: target, Text: "event moved"})
	waitDelivered(t, f)

	sent, edits := f.counts()
	if sent != 2 || edits != 0 {
		t.Fatalf("sent=%d edits=%d, want edit failure to fall back to a fresh send", sent, edits)
	}
}

func TestNotifyWhenDisabled(t *testing.T) {
	f := newFakeAdapter()
	s := New(Config{Enabled: false}, f, logx.Nop(), nil)
	if err := s.Notify(context.Background(), Notification{Text: "x"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}
