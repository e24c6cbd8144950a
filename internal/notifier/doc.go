// Package notifier implements the async delivery pipeline for reminder
// messages: a bounded queue drained by a worker pool, with rate limiting
// and retry in front of the chat transport.
//
// Deliveries carry an optional slot number. Messages sharing a slot
// replace each other: the notifier remembers the last message it sent
// for a slot and edits it in place instead of sending a new one, so a
// rescheduled reminder never stacks up next to its stale predecessor.
package notifier
