package remind

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"findemybot/internal/api"
	logx "findemybot/pkg/logx"
)

type pendingJob struct {
	at  time.Time
	run func(ctx context.Context) error
}

type fakeRegistrar struct {
	mu   sync.Mutex
	jobs map[string]pendingJob
	err  error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{jobs: map[string]pendingJob{}}
}

func (f *fakeRegistrar) ScheduleOnce(tag string, at time.Time, job func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs[tag] = pendingJob{at: at, run: job}
	return nil
}

func (f *fakeRegistrar) Cancel(tag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[tag]
	delete(f.jobs, tag)
	return ok
}

func (f *fakeRegistrar) CancelPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for tag := range f.jobs {
		if strings.HasPrefix(tag, prefix) {
			delete(f.jobs, tag)
			n++
		}
	}
	return n
}

// fire removes the job like a one-shot facility would, then runs it.
func (f *fakeRegistrar) fire(t *testing.T, tag string) {
	t.Helper()
	f.mu.Lock()
	j, ok := f.jobs[tag]
	delete(f.jobs, tag)
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no pending job under %q", tag)
	}
	_ = j.run(context.Background())
}

func (f *fakeRegistrar) pending(tag string) (pendingJob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[tag]
	return j, ok
}

func (f *fakeRegistrar) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type emitted struct {
	slot  int
	title string
	body  string
}

type fakeEmitter struct {
	mu  sync.Mutex
	got []emitted
	err error
}

func (f *fakeEmitter) Emit(ctx context.Context, slot int, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, emitted{slot: slot, title: title, body: body})
	return nil
}

func testEngine(reg Registrar, emit Emitter, now time.Time) *Engine {
	e := NewEngine(EngineConfig{Location: wib}, reg, emit, logx.Nop())
	e.now = func() time.Time { return now }
	return e
}

func TestScheduleReplacesSameTag(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	now := at(t, "2006-01-02 15:04", "2025-11-30 09:00")
	e := testEngine(reg, &fakeEmitter{}, now)

	e.Schedule(Request{Kind: KindClass, ID: 3, Day: "senin", StartHHMM: "08:00"})
	e.Schedule(Request{Kind: KindClass, ID: 3, Day: "senin", StartHHMM: "10:00"})

	if reg.count() != 1 {
		t.Fatalf("%d jobs pending, want exactly one per entity", reg.count())
	}
	j, ok := reg.pending("reminder_jadwal_3")
	if !ok {
		t.Fatal("job missing under its tag")
	}
	if want := at(t, "2006-01-02 15:04", "2025-12-01 09:00"); !j.at.Equal(want) {
		t.Fatalf("pending at %v, want the later registration %v", j.at, want)
	}
}

func TestCancelIdempotent(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	e := testEngine(reg, &fakeEmitter{}, time.Now())

	e.Cancel(KindTask, 99)
	e.Cancel(KindTask, 99)
	if reg.count() != 0 {
		t.Fatal("cancel of absent job changed state")
	}
}

func TestWeeklyChainRearms(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	em := &fakeEmitter{}
	now := at(t, "2006-01-02 15:04", "2025-11-30 09:00")
	e := testEngine(reg, em, now)

	e.Schedule(Request{
		Kind: KindClass, ID: 7,
		Title: "Pengingat Jadwal", Body: "Algo - Budi di R101 dalam 1 jam",
		Day: "senin", StartHHMM: "08:00",
		Course: "Algo", Lecturer: "Budi", Room: "R101",
	})
	firstFire := at(t, "2006-01-02 15:04", "2025-12-01 07:00")
	if j, ok := reg.pending("reminder_jadwal_7"); !ok || !j.at.Equal(firstFire) {
		t.Fatalf("initial arm at %v, want %v", j.at, firstFire)
	}

	// The clock reaches the fire instant and the facility runs the job.
	e.now = func() time.Time { return firstFire }
	reg.fire(t, "reminder_jadwal_7")

	em.mu.Lock()
	if len(em.got) != 1 {
		t.Fatalf("%d notifications emitted, want 1", len(em.got))
	}
	if em.got[0].slot != 1007 {
		t.Fatalf("slot = %d, want 1007", em.got[0].slot)
	}
	if em.got[0].title != "Pengingat Jadwal" {
		t.Fatalf("title = %q", em.got[0].title)
	}
	em.mu.Unlock()

	// The chain re-armed itself for exactly one week later.
	j, ok := reg.pending("reminder_jadwal_7")
	if !ok {
		t.Fatal("weekly job did not re-arm")
	}
	if want := firstFire.AddDate(0, 0, 7); !j.at.Equal(want) {
		t.Fatalf("re-armed at %v, want %v", j.at, want)
	}
}

func TestOneShotDoesNotRearm(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	em := &fakeEmitter{}
	now := at(t, "2006-01-02 15:04", "2025-11-30 08:00")
	e := testEngine(reg, em, now)

	e.Schedule(Request{
		Kind: KindTask, ID: 4,
		Title: "Pengingat Tugas", Body: "Laporan - Deadline dalam 1 jam!",
		At: at(t, "2006-01-02 15:04", "2025-12-01 10:00"),
	})
	reg.fire(t, "reminder_tugas_4")

	if reg.count() != 0 {
		t.Fatal("one-shot reminder re-armed itself")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.got) != 1 || em.got[0].slot != 2004 {
		t.Fatalf("emitted = %+v", em.got)
	}
}

func TestRegistrationFailureSwallowed(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	reg.err = errors.New("facility rejected")
	e := testEngine(reg, &fakeEmitter{}, at(t, "2006-01-02 15:04", "2025-11-30 09:00"))

	// Must not panic or surface the error.
	e.Schedule(Request{Kind: KindClass, ID: 1, Day: "senin", StartHHMM: "08:00"})
	if reg.count() != 0 {
		t.Fatal("job registered despite failure")
	}
}

func TestInvalidRecurrenceSkipped(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	e := testEngine(reg, &fakeEmitter{}, time.Now())

	e.Schedule(Request{Kind: KindClass, ID: 1, Day: "mondayy", StartHHMM: "08:00"})
	e.Schedule(Request{Kind: KindTask, ID: 2}) // zero At
	if reg.count() != 0 {
		t.Fatal("invalid requests registered jobs")
	}
}

func TestFacadeScheduleAllClearsStale(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	now := at(t, "2006-01-02 15:04", "2025-11-30 09:00")
	e := testEngine(reg, &fakeEmitter{}, now)
	f := NewFacade(e, logx.Nop())

	// Stale job from an entity deleted on the backend.
	e.Schedule(Request{Kind: KindClass, ID: 99, Day: "senin", StartHHMM: "08:00"})

	f.ScheduleAll(
		[]api.Jadwal{
			{ID: 1, Hari: "Senin", JamMulai: "08:00", MataKuliah: "Algo", Dosen: "Budi", Ruangan: "R101", PasangPengingat: true},
			{ID: 2, Hari: "Selasa", JamMulai: "10:00", PasangPengingat: false},
		},
		[]api.Tugas{
			{ID: 5, Judul: "Laporan", Deadline: "2025-12-01 10:00", PasangPengingat: true},
		},
		[]api.Event{
			{ID: 8, Judul: "Seminar", TanggalMulai: "2025-12-05 09:00:00", PasangPengingat: true},
		},
	)

	if _, ok := reg.pending("reminder_jadwal_99"); ok {
		t.Fatal("stale job survived the resync sweep")
	}
	if _, ok := reg.pending("reminder_jadwal_2"); ok {
		t.Fatal("disabled entity was scheduled")
	}
	for _, tag := range []string{"reminder_jadwal_1", "reminder_tugas_5", "reminder_event_8"} {
		if _, ok := reg.pending(tag); !ok {
			t.Fatalf("%s not scheduled", tag)
		}
	}
	if reg.count() != 3 {
		t.Fatalf("%d jobs pending, want 3", reg.count())
	}
}

func TestFacadeDisableEditCancels(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	now := at(t, "2006-01-02 15:04", "2025-11-30 09:00")
	e := testEngine(reg, &fakeEmitter{}, now)
	f := NewFacade(e, logx.Nop())

	j := api.Jadwal{ID: 3, Hari: "Senin", JamMulai: "08:00", PasangPengingat: true}
	f.ScheduleClass(j)
	if _, ok := reg.pending("reminder_jadwal_3"); !ok {
		t.Fatal("enabled class not scheduled")
	}

	j.PasangPengingat = false
	f.ScheduleClass(j)
	if _, ok := reg.pending("reminder_jadwal_3"); ok {
		t.Fatal("job survived an edit that disabled the reminder")
	}
}

func TestFacadeSkipsUnparsableInstants(t *testing.T) {
	t.Parallel()
	reg := newFakeRegistrar()
	e := testEngine(reg, &fakeEmitter{}, at(t, "2006-01-02 15:04", "2025-11-30 09:00"))
	f := NewFacade(e, logx.Nop())

	f.ScheduleTask(api.Tugas{ID: 1, Judul: "x", Deadline: "tomorrow", PasangPengingat: true})
	f.ScheduleEvent(api.Event{ID: 2, Judul: "y", TanggalMulai: "2025-12-05", PasangPengingat: true})
	if reg.count() != 0 {
		t.Fatal("unparsable instants registered jobs")
	}
}
