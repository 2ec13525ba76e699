// Package ui renders FastCite in the terminal: the interactive chat view and
// the printers used by one-shot commands.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/and161185/fastcite/internal/config"
)

// Theme holds the styles for one color scheme.
type Theme struct {
	Name string

	Title   lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	User    lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Overlay lipgloss.Style
	Focused lipgloss.Style
	Card    lipgloss.Style
}

type palette struct {
	fg, muted, accent, user, err, ok, warn, border lipgloss.Color
}

var palettes = map[string]palette{
	config.ThemeDark: {
		fg: "#E5E7EB", muted: "#9CA3AF", accent: "#818CF8", user: "#34D399",
		err: "#F87171", ok: "#4ADE80", warn: "#FBBF24", border: "#4B5563",
	},
	config.ThemeLight: {
		fg: "#111827", muted: "#6B7280", accent: "#4F46E5", user: "#047857",
		err: "#B91C1C", ok: "#15803D", warn: "#B45309", border: "#D1D5DB",
	},
}

// NewTheme returns the theme by name, dark when unknown.
func NewTheme(name string) Theme {
	p, ok := palettes[name]
	if !ok {
		name = config.ThemeDark
		p = palettes[name]
	}
	return Theme{
		Name:    name,
		Title:   lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		Muted:   lipgloss.NewStyle().Foreground(p.muted),
		Accent:  lipgloss.NewStyle().Foreground(p.accent),
		User:    lipgloss.NewStyle().Bold(true).Foreground(p.user),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(p.err),
		Success: lipgloss.NewStyle().Foreground(p.ok),
		Warn:    lipgloss.NewStyle().Foreground(p.warn),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(p.fg).PaddingRight(2),
		Cell:    lipgloss.NewStyle().Foreground(p.fg).PaddingRight(2),
		Overlay: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.accent).Padding(1, 2),
		Focused: lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		Card:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 2),
	}
}
