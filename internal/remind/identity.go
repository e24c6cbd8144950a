package remind

import "strconv"

// TagPrefix namespaces every job this package registers, so a bulk
// cancel can sweep them without touching unrelated scheduler entries.
const TagPrefix = "reminder_"

// JobTag derives the scheduler tag for an entity. It is a pure function
// of (kind, id), so a cancel issued in a later process lifetime still
// addresses the same job.
func JobTag(kind Kind, id int) string {
	return TagPrefix + kind.String() + "_" + strconv.Itoa(id)
}

// Slot derives the notification slot for an entity. Kinds get
// non-overlapping thousand-bands, so reminders for different kinds never
// replace each other while re-delivery for the same entity always does.
func Slot(kind Kind, id int) int {
	switch kind {
	case KindClass:
		return 1000 + id
	case KindTask:
		return 2000 + id
	case KindEvent:
		return 3000 + id
	default:
		return id
	}
}
