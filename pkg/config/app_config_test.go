package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewAppConfigCreatesConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := NewAppConfig("imgbuild", "v1", "abc123", "2024-01-01", "test", true)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if cfg.ConfigDir != dir {
		t.Fatalf("expected config dir %s, got %s", dir, cfg.ConfigDir)
	}
	if !cfg.Debug {
		t.Fatalf("expected Debug to be true")
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yml")); err != nil {
		t.Fatalf("expected config.yml to be created: %s", err)
	}
}

func TestNewAppConfigDefaultsDaemonAddr(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := NewAppConfig("imgbuild", "v1", "abc123", "2024-01-01", "test", false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if cfg.UserConfig.Daemon.Addr != "unix:///run/buildkit/buildkitd.sock" {
		t.Fatalf("expected default daemon addr, got %q", cfg.UserConfig.Daemon.Addr)
	}
}

func TestConfigFilename(t *testing.T) {
	cfg := &AppConfig{ConfigDir: "/tmp/foo"}
	expected := filepath.Join("/tmp/foo", "config.yml")
	if cfg.ConfigFilename() != expected {
		t.Fatalf("expected %s, got %s", expected, cfg.ConfigFilename())
	}
}
