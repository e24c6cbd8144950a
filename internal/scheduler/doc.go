// Package scheduler provides the in-process deferred-execution facility that
// reminder jobs are registered with.
//
// # Overview
//
// Jobs are registered under a stable string tag. One-shot jobs
// (ScheduleOnce) fire once at an absolute instant; registering again under
// the same tag replaces the pending job, so callers get at-most-one-per-tag
// without tracking anything themselves. Cancel is idempotent and
// CancelPrefix removes every pending one-shot under a tag prefix.
//
// Cron and interval entries (robfig/cron) cover periodic work such as the
// full resync; reminders themselves never use a repeating primitive because
// the lead-offset subtraction breaks naive periodicity.
//
// # Execution
//
// Fired jobs are drained by a small worker pool with a per-run timeout and a
// bounded retry. The service can be stopped and restarted (config hot
// reload); pending one-shot definitions survive a Stop/Start cycle, their
// runtime timers are rebuilt on Start.
package scheduler
