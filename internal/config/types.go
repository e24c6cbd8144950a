package config

type Config struct {
	API      APIConfig      `json:"api"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Reminders controls the reminder scheduling subsystem.
	Reminders ReminderConfig `json:"reminders"`

	// Notifier controls the delivery pipeline. If omitted, the notifier
	// defaults to enabled.
	Notifier *NotifierConfig `json:"notifier,omitempty"`

	// Hooks controls the HTTP endpoint that receives CRUD trigger signals
	// from the FINDEMY backend (or anything else that edits the data).
	Hooks *HooksConfig `json:"hooks,omitempty"`

	Storage *StorageConfig `json:"storage,omitempty"`
}

// APIConfig points at the FINDEMY backend.
//
// The agent logs in with the account credentials and keeps the bearer token
// in storage so restarts don't burn a login each time.
type APIConfig struct {
	BaseURL  string `json:"base_url"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Timeout is a Go duration string (e.g. "15s").
	Timeout string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// ChatID is where reminders are delivered.
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
	// OwnerUserIDs may issue /resync and /status.
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// ReminderConfig controls the reminder scheduler.
//
// All durations are Go duration strings (e.g. "1h", "30m").
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - resync_every: "6h"
//   - class_lead / task_lead: "1h", event_lead: "24h"
type ReminderConfig struct {
	Enabled bool `json:"enabled"`
	Workers int  `json:"workers,omitempty"`

	// Timezone for recurrence computation (IANA TZ, e.g. "Asia/Jakarta").
	// Empty means the host's local zone.
	Timezone string `json:"timezone,omitempty"`

	// ResyncEvery is the interval of the periodic full resync.
	// Use "0s" to disable periodic resync (hooks/commands only).
	ResyncEvery string `json:"resync_every,omitempty"`

	ClassLead string `json:"class_lead,omitempty"`
	TaskLead  string `json:"task_lead,omitempty"`
	EventLead string `json:"event_lead,omitempty"`

	// DefaultTimeout bounds a single fired job (delivery + re-arm).
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
}

// NotifierConfig controls the async delivery pipeline.
type NotifierConfig struct {
	Enabled       bool   `json:"enabled"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	// Silent delivers without the Telegram notification sound.
	Silent bool `json:"silent,omitempty"`
}

// HooksConfig controls the CRUD trigger HTTP listener.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8484").
//   - If you bind to a non-loopback address, set a token.
type HooksConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`  // default: "127.0.0.1:8484"
	Token   string `json:"token,omitempty"` // optional bearer token (do not log)
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./findemybot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
