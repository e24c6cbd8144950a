package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "findemybot/pkg/logx"
)

func startedService(t *testing.T) (*Service, context.CancelFunc) {
	t.Helper()
	s := New(Config{Enabled: true, Workers: 1}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		s.Stop(sctx)
		cancel()
	})
	return s, cancel
}

func TestScheduleOnceReplaces(t *testing.T) {
	s, _ := startedService(t)

	var first, second atomic.Int32
	if err := s.ScheduleOnce("job", time.Now().Add(60*time.Millisecond), func(ctx context.Context) error {
		first.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("ScheduleOnce: %v", err)
	}
	// Replace before the first fires.
	if err := s.ScheduleOnce("job", time.Now().Add(80*time.Millisecond), func(ctx context.Context) error {
		second.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("ScheduleOnce replace: %v", err)
	}

	time.Sleep(400 * time.Millisecond)

	if got := first.Load(); got != 0 {
		t.Fatalf("replaced job ran %d times, want 0", got)
	}
	if got := second.Load(); got != 1 {
		t.Fatalf("job ran %d times, want 1", got)
	}
	if _, ok := s.PendingAt("job"); ok {
		t.Fatal("fired job still pending")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s, _ := startedService(t)

	if s.Cancel("nothing-here") {
		t.Fatal("cancel of unknown tag reported removal")
	}
	if s.Cancel("nothing-here") {
		t.Fatal("second cancel of unknown tag reported removal")
	}

	var ran atomic.Int32
	_ = s.ScheduleOnce("x", time.Now().Add(50*time.Millisecond), func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	if !s.Cancel("x") {
		t.Fatal("cancel of pending tag reported nothing removed")
	}
	time.Sleep(250 * time.Millisecond)
	if got := ran.Load(); got != 0 {
		t.Fatalf("cancelled job ran %d times", got)
	}
}

func TestCancelPrefix(t *testing.T) {
	s, _ := startedService(t)

	far := time.Now().Add(time.Hour)
	noop := func(ctx context.Context) error { return nil }
	_ = s.ScheduleOnce("reminder_tugas_1", far, noop)
	_ = s.ScheduleOnce("reminder_event_2", far, noop)
	_ = s.ScheduleOnce("resync_manual", far, noop)

	if n := s.CancelPrefix("reminder_"); n != 2 {
		t.Fatalf("CancelPrefix removed %d, want 2", n)
	}
	if _, ok := s.PendingAt("reminder_tugas_1"); ok {
		t.Fatal("reminder_tugas_1 still pending")
	}
	if _, ok := s.PendingAt("resync_manual"); !ok {
		t.Fatal("unrelated tag was cancelled")
	}
}

func TestPendingDefinitionSurvivesStopStart(t *testing.T) {
	s := New(Config{Enabled: true, Workers: 1}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	at := time.Now().Add(time.Hour)
	_ = s.ScheduleOnce("keep", at, func(ctx context.Context) error { return nil })

	sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	s.Stop(sctx)
	scancel()

	s.Start(ctx)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		s.Stop(sctx)
	}()

	got, ok := s.PendingAt("keep")
	if !ok {
		t.Fatal("definition lost across Stop/Start")
	}
	if !got.Equal(at) {
		t.Fatalf("pending instant changed: got %v want %v", got, at)
	}
}
