package config

import (
	"fmt"
	"strings"
)

// Themes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Languages accepted by SetLanguage.
var Languages = []string{"en", "es", "fr", "de", "hi"}

// Notifications are local toggles; the server is not told about them.
type Notifications struct {
	Email   bool `toml:"email" json:"email"`
	Push    bool `toml:"push" json:"push"`
	Updates bool `toml:"updates" json:"updates"`
}

// Preferences are display settings kept next to the config.
type Preferences struct {
	Theme         string        `toml:"theme" json:"theme"`
	Notifications Notifications `toml:"notifications" json:"notifications"`
	Language      string        `toml:"language" json:"language"`
}

// DefaultPreferences mirrors a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         ThemeDark,
		Notifications: Notifications{Email: true, Push: false, Updates: true},
		Language:      "en",
	}
}

func (p *Preferences) normalize() error {
	if p.Theme == "" {
		p.Theme = ThemeDark
	}
	if p.Language == "" {
		p.Language = "en"
	}
	if p.Theme != ThemeDark && p.Theme != ThemeLight {
		return fmt.Errorf("config: unknown theme %q", p.Theme)
	}
	return nil
}

// SetTheme switches between light and dark.
func (p *Preferences) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("theme must be %q or %q", ThemeDark, ThemeLight)
	}
	p.Theme = theme
	return nil
}

// ToggleNotification flips one notification flag by key and returns its new value.
func (p *Preferences) ToggleNotification(key string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "email":
		p.Notifications.Email = !p.Notifications.Email
		return p.Notifications.Email, nil
	case "push":
		p.Notifications.Push = !p.Notifications.Push
		return p.Notifications.Push, nil
	case "updates":
		p.Notifications.Updates = !p.Notifications.Updates
		return p.Notifications.Updates, nil
	}
	return false, fmt.Errorf("unknown notification %q (email, push, updates)", key)
}

// SetLanguage selects one of Languages.
func (p *Preferences) SetLanguage(lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, l := range Languages {
		if l == lang {
			p.Language = lang
			return nil
		}
	}
	return fmt.Errorf("unsupported language %q", lang)
}
