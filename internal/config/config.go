// Package config loads client settings and display preferences.
//
// Settings are resolved in order: built-in defaults, the TOML file at
// <Dir()>/config.toml, then environment variables. Command-line flags are
// applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment overrides.
const (
	EnvAPIURL   = "FASTCITE_API_URL"
	EnvLogLevel = "FASTCITE_LOG_LEVEL"
)

// Duration wraps time.Duration so it can be written as "3s" in TOML.
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Config is the complete client configuration.
type Config struct {
	APIURL          string   `toml:"api_url"`
	RequestTimeout  Duration `toml:"request_timeout"`
	PollInterval    Duration `toml:"poll_interval"`
	PollMaxInterval Duration `toml:"poll_max_interval"`
	PollMaxAttempts int      `toml:"poll_max_attempts"`
	TypingSpeed     Duration `toml:"typing_speed"`
	Debounce        Duration `toml:"debounce"`
	LogLevel        string   `toml:"log_level"`

	Preferences Preferences `toml:"preferences"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:          "http://localhost:8000",
		RequestTimeout:  Duration{60 * time.Second},
		PollInterval:    Duration{3 * time.Second},
		PollMaxInterval: Duration{30 * time.Second},
		PollMaxAttempts: 200,
		TypingSpeed:     Duration{10 * time.Millisecond},
		Debounce:        Duration{500 * time.Millisecond},
		LogLevel:        "warn",
		Preferences:     DefaultPreferences(),
	}
}

// Dir returns the per-user directory for the config and token files.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "fastcite")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fastcite")
}

// Path returns the config file location inside dir.
func Path(dir string) string { return filepath.Join(dir, "config.toml") }

// Load reads the config file at path (missing file is fine) and applies env overrides.
func Load(path string) (Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return Config{}, err
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads only what is stored at path, without env overrides.
// Use it as the base for Save so temporary overrides are not persisted.
func LoadFile(path string) (Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and fills zero values with defaults.
func (c *Config) Validate() error {
	def := Default()
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("config: api_url must be http(s): %q", c.APIURL)
	}
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.PollInterval.Duration <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.PollMaxInterval.Duration < c.PollInterval.Duration {
		c.PollMaxInterval = c.PollInterval
	}
	if c.PollMaxAttempts < 0 {
		c.PollMaxAttempts = 0
	}
	if c.TypingSpeed.Duration <= 0 {
		c.TypingSpeed = def.TypingSpeed
	}
	if c.Debounce.Duration <= 0 {
		c.Debounce = def.Debounce
	}
	return c.Preferences.normalize()
}

// Save writes the configuration atomically.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "config-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
