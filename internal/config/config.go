package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/petems/chronoghost/internal/hotkey"
)

const (
	DefaultLockHotkey    = "CommandOrControl+Shift+L"
	DefaultBridgeAddr    = "127.0.0.1:47261"
	DefaultWatchDebounce = 250 * time.Millisecond

	maxConfigFileBytes = 1 << 20
)

type Config struct {
	LogLevel      string        `yaml:"log_level"`
	LockHotkey    string        `yaml:"lock_hotkey"`
	KeybindsFile  string        `yaml:"keybinds_file"`
	WatchKeybinds bool          `yaml:"watch_keybinds"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	Bridge        BridgeConfig  `yaml:"bridge"`

	path string
}

type BridgeConfig struct {
	// Addr is the listen address of the UI WebSocket bridge. Keep it on
	// loopback; the bridge has no authentication.
	Addr string `yaml:"addr"`

	// AllowedOrigins are the webview origins allowed to connect. Browser
	// requests from any other origin are refused.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultAllowedOrigins are the origins the bundled webview loads from.
var DefaultAllowedOrigins = []string{"tauri://localhost", "http://tauri.localhost", "https://tauri.localhost"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		LockHotkey:    DefaultLockHotkey,
		KeybindsFile:  filepath.Join(Dir(), "keybinds.json"),
		WatchKeybinds: true,
		WatchDebounce: DefaultWatchDebounce,
		Bridge: BridgeConfig{
			Addr:           DefaultBridgeAddr,
			AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
		},
		path: filepath.Join(Dir(), "config.yaml"),
	}
}

// Load reads the config from the platform config dir or returns defaults.
func Load() (*Config, error) {
	return LoadFile(filepath.Join(Dir(), "config.yaml"))
}

// LoadFile overlays the YAML file at path onto the defaults. A missing file
// is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.Size() > maxConfigFileBytes {
		return nil, fmt.Errorf("config %s is too large (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.KeybindsFile != "" && !filepath.IsAbs(cfg.KeybindsFile) {
		cfg.KeybindsFile = filepath.Join(filepath.Dir(path), cfg.KeybindsFile)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.LockHotkey == "" {
		return errors.New("lock_hotkey must not be empty")
	}
	if _, err := hotkey.ParseAccelerator(c.LockHotkey); err != nil {
		return fmt.Errorf("lock_hotkey: %w", err)
	}
	if c.KeybindsFile == "" {
		return errors.New("keybinds_file must not be empty")
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	if c.Bridge.Addr == "" {
		return errors.New("bridge.addr must not be empty")
	}
	for i, origin := range c.Bridge.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("bridge.allowed_origins[%d] must not be empty", i)
		}
		if origin == "*" {
			return errors.New("bridge.allowed_origins must list origins, \"*\" is not supported")
		}
	}
	return nil
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	path := c.Path()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path returns the file this config is read from and saved to.
func (c *Config) Path() string {
	if c.path == "" {
		return filepath.Join(Dir(), "config.yaml")
	}
	return c.path
}

// Dir returns the platform-specific config directory.
func Dir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "chronoghost")
}
