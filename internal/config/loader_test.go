package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matthiasburger/planningpoker-go/internal/log"
)

func TestLoadWritesAndReadsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poker.yaml")

	cfg, resolved, err := Load(log.Nop(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poker.yaml")
	contents := "server_url: ws://poker.example/hub\ninvoke_timeout: 3s\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(log.Nop(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "ws://poker.example/hub" {
		t.Fatalf("server_url=%q", cfg.ServerURL)
	}
	if cfg.InvokeTimeout != 3*time.Second {
		t.Fatalf("invoke_timeout=%v", cfg.InvokeTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.LogLevel != Default().LogLevel {
		t.Fatalf("log_level=%q", cfg.LogLevel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poker.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POKER_LOG_LEVEL", "debug")

	cfg, _, err := Load(log.Nop(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level=%q, want env override", cfg.LogLevel)
	}
}

func TestUpdateFromSkipsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{ServerURL: "ws://other/hub"})

	if cfg.ServerURL != "ws://other/hub" {
		t.Fatalf("server_url=%q", cfg.ServerURL)
	}
	if cfg.StatePath != Default().StatePath {
		t.Fatalf("state_path overwritten: %q", cfg.StatePath)
	}
}
