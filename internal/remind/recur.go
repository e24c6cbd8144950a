package remind

import (
	"strings"
	"time"
)

// Lead offsets: how long before the target instant a reminder fires.
const (
	ClassLead = time.Hour
	TaskLead  = time.Hour
	EventLead = 24 * time.Hour
)

// weekdays holds the Indonesian weekday names used by the FINDEMY API.
var weekdays = map[string]time.Weekday{
	"senin":  time.Monday,
	"selasa": time.Tuesday,
	"rabu":   time.Wednesday,
	"kamis":  time.Thursday,
	"jumat":  time.Friday,
	"sabtu":  time.Saturday,
	"minggu": time.Sunday,
}

// ParseWeekday matches an Indonesian weekday name case-insensitively.
func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// NextWeeklyOccurrence computes the fire instant for a weekly reminder:
// the next occurrence of day+startHHMM strictly after now, minus lead.
// When that candidate fire instant is not strictly in the future (the
// class starts within the lead window, or has just passed), the whole
// calculation advances by seven days. An unrecognized weekday or a
// malformed time yields (zero, false); callers skip silently.
func NextWeeklyOccurrence(day, startHHMM string, lead time.Duration, now time.Time) (time.Time, bool) {
	wd, ok := ParseWeekday(day)
	if !ok {
		return time.Time{}, false
	}
	tod, err := time.Parse("15:04", strings.TrimSpace(startHHMM))
	if err != nil {
		return time.Time{}, false
	}

	daysAhead := (int(wd) - int(now.Weekday()) + 7) % 7
	occ := time.Date(now.Year(), now.Month(), now.Day()+daysAhead,
		tod.Hour(), tod.Minute(), 0, 0, now.Location())
	if !occ.After(now) {
		occ = occ.AddDate(0, 0, 7)
	}

	fire := occ.Add(-lead)
	if !fire.After(now) {
		fire = occ.AddDate(0, 0, 7).Add(-lead)
	}
	return fire, true
}

// OneShotBefore returns at minus lead, or (zero, false) when the
// candidate is not strictly after now. Used for task deadlines and
// event starts.
func OneShotBefore(at time.Time, lead time.Duration, now time.Time) (time.Time, bool) {
	if at.IsZero() {
		return time.Time{}, false
	}
	fire := at.Add(-lead)
	if !fire.After(now) {
		return time.Time{}, false
	}
	return fire, true
}
