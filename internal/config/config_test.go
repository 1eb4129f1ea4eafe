package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}

	// No explicit path: missing file falls back to defaults.
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load with defaults: %v", err)
	}
	if cfg.Sync.Interval != 30*time.Second {
		t.Errorf("sync interval = %v, want 30s", cfg.Sync.Interval)
	}
	if cfg.Dashboard.Port != 8484 {
		t.Errorf("dashboard port = %d, want 8484", cfg.Dashboard.Port)
	}
	if cfg.Database.Path == "" {
		t.Error("database path default not applied")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eventos.yaml")
	body := `
database:
  path: /tmp/test.db
remote:
  base_url: https://api.example.com
  user_id: user42
sync:
  interval: 5s
dashboard:
  enabled: true
  port: 9000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Remote.BaseURL != "https://api.example.com" {
		t.Errorf("base url = %q", cfg.Remote.BaseURL)
	}
	if cfg.Sync.Interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", cfg.Sync.Interval)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Port != 9000 {
		t.Errorf("dashboard = %+v", cfg.Dashboard)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eventos.yaml")
	if err := os.WriteFile(path, []byte("remote:\n  token: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("EVENTOS_REMOTE_TOKEN", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote.Token != "from-env" {
		t.Errorf("token = %q, want from-env", cfg.Remote.Token)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := &Config{Sync: SyncConfig{Interval: time.Second}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty base url")
	}

	cfg = &Config{
		Remote: RemoteConfig{BaseURL: "http://localhost"},
		Sync:   SyncConfig{Interval: 0},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero interval")
	}
}
