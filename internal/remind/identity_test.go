package remind

import "testing"

func TestJobTagStable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind Kind
		id   int
		want string
	}{
		{KindClass, 1, "reminder_jadwal_1"},
		{KindTask, 42, "reminder_tugas_42"},
		{KindEvent, 7, "reminder_event_7"},
	}
	for _, tc := range cases {
		if got := JobTag(tc.kind, tc.id); got != tc.want {
			t.Errorf("JobTag(%v, %d) = %q, want %q", tc.kind, tc.id, got, tc.want)
		}
	}
}

func TestSlotBandsNeverCollide(t *testing.T) {
	t.Parallel()

	seen := map[int]string{}
	for _, kind := range []Kind{KindClass, KindTask, KindEvent} {
		for id := 0; id < 1000; id++ {
			slot := Slot(kind, id)
			if prev, dup := seen[slot]; dup {
				t.Fatalf("slot %d collides: %s and %s/%d", slot, prev, kind, id)
			}
			seen[slot] = JobTag(kind, id)
		}
	}
}

func TestSlotBands(t *testing.T) {
	t.Parallel()

	if got := Slot(KindClass, 5); got != 1005 {
		t.Errorf("class slot = %d, want 1005", got)
	}
	if got := Slot(KindTask, 5); got != 2005 {
		t.Errorf("task slot = %d, want 2005", got)
	}
	if got := Slot(KindEvent, 5); got != 3005 {
		t.Errorf("event slot = %d, want 3005", got)
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"jadwal", "tugas", "event"} {
		kind, ok := ParseKind(name)
		if !ok {
			t.Fatalf("ParseKind(%q) rejected", name)
		}
		if kind.String() != name {
			t.Fatalf("round trip %q -> %v", name, kind)
		}
	}
	if _, ok := ParseKind("akun"); ok {
		t.Fatal("unknown kind accepted")
	}
}
