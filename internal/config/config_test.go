package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.Equal(t, filepath.Join(dir, "fastcite"), Dir())
	require.Equal(t, filepath.Join(dir, "fastcite", "config.toml"), Path(Dir()))
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLogLevel, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", cfg.APIURL)
	require.Equal(t, 3*time.Second, cfg.PollInterval.Duration)
	require.Equal(t, 500*time.Millisecond, cfg.Debounce.Duration)
	require.Equal(t, DefaultPreferences(), cfg.Preferences)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url = "https://api.example.com/"
poll_interval = "1s"
poll_max_interval = "500ms"
log_level = "info"

[preferences]
theme = "light"
language = "fr"
[preferences.notifications]
push = true
`), 0o600))

	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLogLevel, "debug")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.APIURL)
	require.Equal(t, time.Second, cfg.PollInterval.Duration)
	require.Equal(t, time.Second, cfg.PollMaxInterval.Duration, "cap is raised to the base interval")
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, ThemeLight, cfg.Preferences.Theme)
	require.Equal(t, "fr", cfg.Preferences.Language)
	require.True(t, cfg.Preferences.Notifications.Push)

	t.Setenv(EnvAPIURL, "http://other:9000")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://other:9000", cfg.APIURL)
}

func TestLoadFile_IgnoresEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval = \"2s\"\n"), 0o600))
	t.Setenv(EnvAPIURL, "http://staging:9000")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, Default().APIURL, cfg.APIURL)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 2*time.Second, cfg.PollInterval.Duration)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvAPIURL, "ftp://nope")
	_, err := Load(filepath.Join(t.TempDir(), "x.toml"))
	require.Error(t, err)

	t.Setenv(EnvAPIURL, "")
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_url = ["), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	require.NoError(t, cfg.Preferences.SetTheme("light"))
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, got.Preferences.Theme)
	require.Equal(t, cfg.PollInterval, got.PollInterval)
}

func TestPreferences_Setters(t *testing.T) {
	t.Parallel()
	p := DefaultPreferences()

	require.Error(t, p.SetTheme("blue"))
	require.NoError(t, p.SetTheme(" LIGHT "))
	require.Equal(t, ThemeLight, p.Theme)

	v, err := p.ToggleNotification("push")
	require.NoError(t, err)
	require.True(t, v)
	v, err = p.ToggleNotification("email")
	require.NoError(t, err)
	require.False(t, v)
	_, err = p.ToggleNotification("sms")
	require.Error(t, err)

	require.NoError(t, p.SetLanguage("de"))
	require.Equal(t, "de", p.Language)
	require.Error(t, p.SetLanguage("klingon"))
}
