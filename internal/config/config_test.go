package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg.Play.Device != nil || cfg.Server.Addr != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[play]
device = "abc"
start-seconds = 90
seed = 7

[server]
addr = ":9000"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Play.Device == nil || *cfg.Play.Device != "abc" {
		t.Fatalf("device not decoded: %+v", cfg.Play)
	}
	if cfg.Play.StartSeconds == nil || *cfg.Play.StartSeconds != 90 || cfg.Play.Seed == nil || *cfg.Play.Seed != 7 {
		t.Fatalf("play not decoded: %+v", cfg.Play)
	}
	if cfg.Play.Backend != nil {
		t.Fatalf("unset key must stay nil")
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != ":9000" || cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("server/log not decoded: %+v %+v", cfg.Server, cfg.Log)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[play]\nspeed = 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "play.speed") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestXDGPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	if got, want := DefaultConfigPath(), filepath.Join(dir, "cfg", "chordarena", "config.toml"); got != want {
		t.Fatalf("config path %q, want %q", got, want)
	}
	if got, want := DefaultDBPath(), filepath.Join(dir, "data", "chordarena", "chordarena.db"); got != want {
		t.Fatalf("db path %q, want %q", got, want)
	}
	if got, want := DefaultLogPath(), filepath.Join(dir, "state", "chordarena", "chordarena.log"); got != want {
		t.Fatalf("log path %q, want %q", got, want)
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(EnvMissionSalt+"=pepper\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvMissionSalt, "")
	os.Unsetenv(EnvMissionSalt)
	if err := LoadEnv(filepath.Join(t.TempDir(), "none.env"), path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := Getenv(EnvMissionSalt, "x"); got != "pepper" {
		t.Fatalf("salt %q, want pepper", got)
	}
	if got := Getenv("CHORDARENA_UNSET_FOR_TEST", "fallback"); got != "fallback" {
		t.Fatalf("fallback %q", got)
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device")
	first, err := DeviceID(path)
	if err != nil || first == "" {
		t.Fatalf("first DeviceID: %q %v", first, err)
	}
	second, err := DeviceID(path)
	if err != nil || second != first {
		t.Fatalf("device id changed: %q -> %q (%v)", first, second, err)
	}

	if err := os.WriteFile(path, []byte("  custom-id \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, _ := DeviceID(path); got != "custom-id" {
		t.Fatalf("expected trimmed custom id, got %q", got)
	}
}
