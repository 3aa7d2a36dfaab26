package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"analyzeit/internal/platform/config"
)

func noEnv(string) string { return "" }

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg, err := config.Load(dir, "", noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, "analyzeit.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.SyncInterval != 2*time.Minute || cfg.IdleThreshold != 300*time.Second {
		t.Fatalf("unexpected intervals: %v %v", cfg.SyncInterval, cfg.IdleThreshold)
	}
	if cfg.FallbackCategory != "Utilities" {
		t.Fatalf("unexpected fallback: %s", cfg.FallbackCategory)
	}
	if cfg.Location == nil {
		t.Fatalf("location must be resolved")
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	yamlBody := `
timezone: UTC
sync_interval: 5m
log:
  level: debug
remote:
  region: eu-west-1
  daily_table: custom_daily
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	env := map[string]string{
		"ANALYZEIT_SYNC_INTERVAL":     "30s",
		"ANALYZEIT_DYNAMODB_ENDPOINT": "http://localhost:8000",
	}
	cfg, err := config.Load(dir, "", func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected UTC location, got %v", cfg.Location)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Fatalf("env must override file: %v", cfg.SyncInterval)
	}
	if cfg.Log.Level != "debug" || cfg.Remote.Region != "eu-west-1" || cfg.Remote.DailyTable != "custom_daily" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Remote.PreferencesTable != "analyzeit_site_preferences" {
		t.Fatalf("default table lost: %s", cfg.Remote.PreferencesTable)
	}
	if cfg.Remote.Endpoint != "http://localhost:8000" {
		t.Fatalf("endpoint env not applied: %s", cfg.Remote.Endpoint)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	t.Parallel()
	if _, err := config.Load("", "", noEnv); err == nil {
		t.Fatalf("expected data dir error")
	}
	dir := t.TempDir()
	if _, err := config.Load(dir, filepath.Join(dir, "missing.yaml"), noEnv); err == nil {
		t.Fatalf("expected missing explicit config error")
	}
	env := map[string]string{"ANALYZEIT_IDLE_THRESHOLD": "soon"}
	if _, err := config.Load(dir, "", func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected duration parse error")
	}
}
