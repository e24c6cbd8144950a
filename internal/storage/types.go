package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Session is the FINDEMY login state the original client kept in its
// local key-value store. Reused at startup so a still-valid token skips
// a login round trip.
type Session struct {
	Token   string    `json:"token"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	SavedAt time.Time `json:"saved_at"`
}

// DeliveryEntry records one fired reminder notification.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	ID     string    `json:"id"`
	Slot   int       `json:"slot"`
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text"`
	Edited bool      `json:"edited"`
	At     time.Time `json:"at"`
}
