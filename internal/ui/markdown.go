package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders assistant answers. A renderer that fails to build or
// render falls back to the raw text.
type Markdown struct {
	r *glamour.TermRenderer
}

// NewMarkdown builds a renderer for the theme's glamour style.
func NewMarkdown(theme string, width int) *Markdown {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Markdown{}
	}
	return &Markdown{r: r}
}

// Render returns the rendered text without surrounding blank lines.
func (m *Markdown) Render(md string) string {
	if m == nil || m.r == nil {
		return md
	}
	out, err := m.r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
