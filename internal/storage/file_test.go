package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "findemybot/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSessionSurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "findemybot.db")
	ctx := context.Background()

	st := openTestStore(t, path)
	want := Session{Token: "tok123", Name: "Andi", Email: "a@b.c", SavedAt: time.Now().Truncate(time.Second)}
	if err := st.SaveSession(ctx, want); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	_ = st.Close()

	st2 := openTestStore(t, path)
	got, ok, err := st2.LoadSession(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadSession: ok=%v err=%v", ok, err)
	}
	if got.Token != want.Token || got.Email != want.Email {
		t.Fatalf("session = %+v, want %+v", got, want)
	}
}

func TestClearSession(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "findemybot.db")
	ctx := context.Background()

	st := openTestStore(t, path)
	_ = st.SaveSession(ctx, Session{Token: "tok"})
	if err := st.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if _, ok, _ := st.LoadSession(ctx); ok {
		t.Fatal("session survived clear")
	}
	// Clearing again is a no-op.
	if err := st.ClearSession(ctx); err != nil {
		t.Fatalf("second ClearSession: %v", err)
	}
}

func TestDeliveryLogReplay(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "findemybot.db")
	ctx := context.Background()

	st := openTestStore(t, path)
	for i, text := range []string{"first", "second", "third"} {
		err := st.AppendDelivery(ctx, DeliveryEntry{
			ID: text, Slot: 1000 + i, ChatID: 42, Text: text, At: time.Now(),
		})
		if err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}
	_ = st.Close()

	st2 := openTestStore(t, path)
	got, err := st2.RecentDeliveries(ctx, 2)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("%d entries, want 2", len(got))
	}
	if got[0].Text != "second" || got[1].Text != "third" {
		t.Fatalf("entries = %+v, want the two most recent oldest-first", got)
	}
}

func TestDisabledDriver(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "none"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Fatal("disabled storage returned a store")
	}
}
