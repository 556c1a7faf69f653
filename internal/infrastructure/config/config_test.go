package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "0.0.0.0"
  port: 8080
session:
  ttl: 1800
sync:
  poll_interval: 2
bridges:
  - id: "hue-1"
    service: "hue"
    host: "192.168.1.10"
  - id: "demo"
    demo: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Session.TTL != 1800 {
		t.Errorf("Session.TTL = %d, want 1800", cfg.Session.TTL)
	}
	if cfg.Sync.PollInterval != 2 {
		t.Errorf("Sync.PollInterval = %d, want 2", cfg.Sync.PollInterval)
	}
	if len(cfg.Bridges) != 2 {
		t.Fatalf("len(Bridges) = %d, want 2", len(cfg.Bridges))
	}
	if cfg.Bridges[0].Service != "hue" {
		t.Errorf("Bridges[0].Service = %q, want %q", cfg.Bridges[0].Service, "hue")
	}
	if !cfg.Bridges[1].Demo {
		t.Error("Bridges[1].Demo = false, want true")
	}

	// Defaults survive partial config
	if cfg.Sync.FetchTimeout != 10 {
		t.Errorf("Sync.FetchTimeout = %d, want default 10", cfg.Sync.FetchTimeout)
	}
	if cfg.Session.SweepInterval != 60 {
		t.Errorf("Session.SweepInterval = %d, want default 60", cfg.Session.SweepInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
database:
  path: "/tmp/test.db"
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestValidate_DuplicateBridgeID(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bridges = []BridgeConfig{
		{ID: "hue-1", Service: "hue"},
		{ID: "hue-1", Service: "hue"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for duplicate bridge id, got nil")
	}
}

func TestValidate_BridgeRequiresService(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bridges = []BridgeConfig{{ID: "b1"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for bridge without service, got nil")
	}

	cfg.Bridges = []BridgeConfig{{ID: "b1", Demo: true}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error for demo bridge without service: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
`)

	t.Setenv("HOMELINK_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("HOMELINK_SESSION_TTL", "120")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Session.TTL != 120 {
		t.Errorf("Session.TTL = %d, want 120 from env", cfg.Session.TTL)
	}
}
