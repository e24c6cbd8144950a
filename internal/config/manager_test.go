package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{
		"api": {"base_url": "https://findemy.example.id/api", "email": "a@b.c", "password": "x"},
		"telegram": {"token": "t", "chat_id": 42, "owner_user_ids": [7]},
		"logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}, "telegram": {"enabled": false, "thread_id": 0, "min_level": "", "rate_per_sec": 0}},
		"reminders": {"enabled": true, "timezone": "Asia/Jakarta", "resync_every": "6h"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://findemy.example.id/api" {
		t.Fatalf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.Telegram.ChatID != 42 || len(cfg.Telegram.OwnerUserIDs) != 1 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Reminders.Timezone != "Asia/Jakarta" {
		t.Fatalf("timezone = %q", cfg.Reminders.Timezone)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
api:
  base_url: https://findemy.example.id/api
  email: a@b.c
  password: x
telegram:
  token: t
  chat_id: 42
  owner_user_ids: [7]
logging:
  level: info
  console: true
  file: {enabled: false, path: ""}
  telegram: {enabled: false, thread_id: 0, min_level: "", rate_per_sec: 0}
reminders:
  enabled: true
  class_lead: 1h
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.ChatID != 42 || cfg.Reminders.ClassLead != "1h" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{"api": {"base_url": "x"}, "telegram": {"token": "t"}, "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}, "telegram": {"enabled": false, "thread_id": 0, "min_level": "", "rate_per_sec": 0}}, "reminders": {"enabled": true}, "typo_section": {}}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestTrailingDataRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{"api": {"base_url": "x"}, "telegram": {"token": "t"}, "logging": {"level": "info", "console": true, "file": {"enabled": false, "path": ""}, "telegram": {"enabled": false, "thread_id": 0, "min_level": "", "rate_per_sec": 0}}, "reminders": {"enabled": true}} {}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("trailing data accepted")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationField("x", "90m"); err != nil || d.Minutes() != 90 {
		t.Fatalf("d=%v err=%v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: d=%v err=%v", d, err)
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("bad duration accepted")
	}
	if _, err := ParseDurationField("x", "-5m"); err == nil {
		t.Fatal("negative duration accepted")
	}
}
