package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
  mode: release
redis:
  enabled: false
compositor:
  max_concurrent: 8
  queue_timeout: 5s
  resampler: lanczos
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != ":9090" || cfg.Server.Mode != "release" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled")
	}
	if cfg.Compositor.MaxConcurrent != 8 {
		t.Errorf("max_concurrent = %d, want 8", cfg.Compositor.MaxConcurrent)
	}
	if cfg.Compositor.QueueTimeout != 5*time.Second {
		t.Errorf("queue_timeout = %v, want 5s", cfg.Compositor.QueueTimeout)
	}

	// untouched keys keep defaults
	if cfg.Redis.TTL != 24*time.Hour {
		t.Errorf("redis.ttl = %v, want 24h", cfg.Redis.TTL)
	}
	if cfg.Compositor.JPEGQuality != 90 {
		t.Errorf("jpeg_quality = %d, want 90", cfg.Compositor.JPEGQuality)
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		t.Error("allowed_types default missing")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvOverridesNestedKeys(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
compositor:
  max_pixels: 1000
`)
	t.Setenv("COMPOSITEKIT_SERVER_PORT", ":7777")
	t.Setenv("COMPOSITEKIT_COMPOSITOR_MAX_PIXELS", "4096")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != ":7777" {
		t.Errorf("server.port = %q, want :7777 from env", cfg.Server.Port)
	}
	if cfg.Compositor.MaxPixels != 4096 {
		t.Errorf("compositor.max_pixels = %d, want 4096 from env", cfg.Compositor.MaxPixels)
	}
}

func TestLoadOrDefault_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadOrDefault(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("loadOrDefault: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("server.port = %q, want default", cfg.Server.Port)
	}
}

func TestLoadOrDefault_InvalidFileFails(t *testing.T) {
	path := writeConfig(t, `
redis:
  addr: cache.internal:6379
compositor:
  max_concurrent: 0
`)
	cfg, err := loadOrDefault(path)
	if err == nil {
		t.Fatalf("expected validation error, got config %+v", cfg)
	}
	if cfg != nil {
		t.Error("invalid file must not fall back to defaults")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
compositor:
  max_concurrent: 0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_ServerMode(t *testing.T) {
	cfg := Default()
	cfg.Server.Mode = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown server mode")
	}
}

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
