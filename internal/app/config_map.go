package app

import (
	"strings"
	"time"

	"findemybot/internal/config"
	"findemybot/internal/notifier"
	"findemybot/internal/remind"
	"findemybot/internal/scheduler"
	"findemybot/internal/storage"
	logx "findemybot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	timeout, err := config.ParseDurationOrDefault("reminders.default_timeout", cfg.Reminders.DefaultTimeout, 30*time.Second)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Enabled:        cfg.Reminders.Enabled,
		Workers:        cfg.Reminders.Workers,
		DefaultTimeout: timeout,
		HistorySize:    cfg.Reminders.HistorySize,
		Timezone:       cfg.Reminders.Timezone,
	}, nil
}

func mapEngineConfig(cfg *config.Config) (remind.EngineConfig, error) {
	classLead, err := config.ParseDurationOrDefault("reminders.class_lead", cfg.Reminders.ClassLead, remind.ClassLead)
	if err != nil {
		return remind.EngineConfig{}, err
	}
	taskLead, err := config.ParseDurationOrDefault("reminders.task_lead", cfg.Reminders.TaskLead, remind.TaskLead)
	if err != nil {
		return remind.EngineConfig{}, err
	}
	eventLead, err := config.ParseDurationOrDefault("reminders.event_lead", cfg.Reminders.EventLead, remind.EventLead)
	if err != nil {
		return remind.EngineConfig{}, err
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Reminders.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return remind.EngineConfig{}, err
		}
		loc = l
	}
	return remind.EngineConfig{
		ClassLead: classLead,
		TaskLead:  taskLead,
		EventLead: eventLead,
		Location:  loc,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	// Notifier defaults to enabled; a reminder agent that can't deliver
	// is pointless.
	ncfg := notifier.Config{Enabled: true}
	if cfg.Notifier == nil {
		return ncfg, nil
	}

	retryBase, err := config.ParseDurationOrDefault("notifier.retry_base", cfg.Notifier.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notifier.Config{}, err
	}
	retryMaxDelay, err := config.ParseDurationOrDefault("notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:       cfg.Notifier.Enabled,
		Workers:       cfg.Notifier.Workers,
		QueueSize:     cfg.Notifier.QueueSize,
		RatePerSec:    cfg.Notifier.RatePerSec,
		RetryMax:      cfg.Notifier.RetryMax,
		RetryBase:     retryBase,
		RetryMaxDelay: retryMaxDelay,
		Silent:        cfg.Notifier.Silent,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, true, nil
}
