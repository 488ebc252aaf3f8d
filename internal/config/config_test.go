package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LockHotkey != DefaultLockHotkey {
		t.Errorf("LockHotkey = %q", cfg.LockHotkey)
	}
	if !cfg.WatchKeybinds || cfg.WatchDebounce != DefaultWatchDebounce {
		t.Errorf("watch defaults = %v/%v", cfg.WatchKeybinds, cfg.WatchDebounce)
	}
	if cfg.Bridge.Addr != DefaultBridgeAddr {
		t.Errorf("Bridge.Addr = %q", cfg.Bridge.Addr)
	}
	if strings.Join(cfg.Bridge.AllowedOrigins, ",") != strings.Join(DefaultAllowedOrigins, ",") {
		t.Errorf("Bridge.AllowedOrigins = %v", cfg.Bridge.AllowedOrigins)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadFileOverlaysValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
log_level: debug
lock_hotkey: Alt+Shift+K
keybinds_file: binds.json
watch_keybinds: false
watch_debounce: 1s
bridge:
  addr: 127.0.0.1:9000
  allowed_origins:
    - http://localhost:5173
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LockHotkey != "Alt+Shift+K" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.KeybindsFile != filepath.Join(dir, "binds.json") {
		t.Errorf("relative keybinds_file not resolved: %q", cfg.KeybindsFile)
	}
	if cfg.WatchKeybinds {
		t.Error("watch_keybinds should be false")
	}
	if cfg.WatchDebounce != time.Second {
		t.Errorf("WatchDebounce = %v", cfg.WatchDebounce)
	}
	if cfg.Bridge.Addr != "127.0.0.1:9000" {
		t.Errorf("Bridge.Addr = %q", cfg.Bridge.Addr)
	}
	if len(cfg.Bridge.AllowedOrigins) != 1 || cfg.Bridge.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("Bridge.AllowedOrigins = %v, want only the configured origin", cfg.Bridge.AllowedOrigins)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{name: "bad yaml", content: "log_level: [", wantSub: "parse config"},
		{name: "unmodified lock hotkey", content: "lock_hotkey: L", wantSub: "lock_hotkey"},
		{name: "negative debounce", content: "watch_debounce: -1s", wantSub: "watch_debounce"},
		{name: "empty bridge addr", content: "bridge:\n  addr: \"\"", wantSub: "bridge.addr"},
		{name: "wildcard origin", content: "bridge:\n  allowed_origins: [\"*\"]", wantSub: "allowed_origins"},
		{name: "blank origin", content: "bridge:\n  allowed_origins: [\" \"]", wantSub: "allowed_origins[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.content)
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.LockHotkey = "Ctrl+Alt+L"
	cfg.WatchDebounce = 2 * time.Second
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.LockHotkey != "Ctrl+Alt+L" || loaded.WatchDebounce != 2*time.Second {
		t.Errorf("reloaded = %+v", loaded)
	}
}
