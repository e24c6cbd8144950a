package notifier

import (
	"time"

	kit "findemybot/internal/transport"
)

// Config controls the async delivery pipeline.
type Config struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	Silent        bool
}

// Notification is one message to deliver. Slot > 0 marks the message as
// replaceable: a later notification with the same slot and target edits
// the previously delivered message instead of sending a new one.
type Notification struct {
	Slot    int
	Target  kit.ChatTarget
	Text    string
	Options kit.SendOptions
}

type HistoryItem struct {
	At     time.Time
	Slot   int
	Text   string
	Edited bool
}
