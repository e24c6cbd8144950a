// Package remind computes and maintains reminder jobs for the three
// FINDEMY entity kinds: weekly class schedules (jadwal), task deadlines
// (tugas) and events.
//
// The package is layered leaf-first: pure recurrence math (recur.go),
// the deterministic job-tag and notification-slot scheme (identity.go),
// the scheduling engine that arms tag-keyed one-shot jobs and re-arms
// weekly ones at fire time (engine.go), and the facade that callers use
// after login and after each CRUD success (facade.go).
//
// Reminders are best-effort: every failure path here degrades to
// "reminder not scheduled" without surfacing an error to the caller.
package remind
