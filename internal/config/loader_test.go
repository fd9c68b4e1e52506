package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("expected file store backend, got %s", cfg.Store.Backend)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Cache.StatusTTL != time.Second {
		t.Errorf("expected status TTL 1s, got %v", cfg.Cache.StatusTTL)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
store:
  backend: "nats"
  bucket: "custom-bucket"
nats:
  url: "nats://nats:4222"
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Store.Backend != "nats" {
		t.Errorf("expected nats backend, got %s", cfg.Store.Backend)
	}
	if cfg.Store.Bucket != "custom-bucket" {
		t.Errorf("expected custom-bucket, got %s", cfg.Store.Bucket)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Store.Path != "agents.json" {
		t.Errorf("expected default store path, got %s", cfg.Store.Path)
	}
}

func TestLoadMissingYAMLIsNotAnError(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AGENTD_PORT", "7070")
	t.Setenv("AGENTD_LOG_LEVEL", "warn")
	t.Setenv("AGENTD_BREAKER_TIMEOUT", "5s")

	cfg := Defaults()
	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Breaker.Timeout)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Backend = "etcd"
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}

func TestValidateNATSBackendRequiresURL(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Backend = "nats"
	cfg.NATS.URL = ""
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error when nats backend has no URL")
	}
}
