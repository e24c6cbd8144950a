package remind

import "time"

// Kind identifies which FINDEMY entity a reminder belongs to.
type Kind int

const (
	KindClass Kind = iota // jadwal: weekly recurring
	KindTask              // tugas: one-shot, fires before the deadline
	KindEvent             // event: one-shot, fires before the start
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "jadwal"
	case KindTask:
		return "tugas"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind short name back to its Kind. Used by the hooks
// API, which addresses reminders by name in the URL.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "jadwal":
		return KindClass, true
	case "tugas":
		return KindTask, true
	case "event":
		return KindEvent, true
	default:
		return 0, false
	}
}

// Request is the ephemeral input to the scheduling engine. For KindClass
// the recurrence fields (Day, StartHHMM and the display fields) must be
// set so the fired job can regenerate next week's payload without going
// back to the network; for the one-shot kinds only At is consulted.
type Request struct {
	Kind  Kind
	ID    int
	Title string
	Body  string

	// Weekly recurrence (KindClass only).
	Day       string
	StartHHMM string
	Course    string
	Lecturer  string
	Room      string

	// Absolute target (KindTask: deadline, KindEvent: start).
	At time.Time
}
