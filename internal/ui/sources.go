package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/and161185/fastcite/internal/model"
)

// PreviewUnavailable is shown for a source without a URL.
const PreviewUnavailable = "Preview not available for this file."

// Opener opens a URL outside the terminal.
type Opener func(url string) error

// OpenURL starts the platform's default handler for url.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// SourceViewer is the overlay listing the files cited by one answer.
type SourceViewer struct {
	files []model.SourceFile
	idx   int
	open  bool
}

// Show opens the overlay on files; it stays closed when there are none.
func (v *SourceViewer) Show(files []model.SourceFile) bool {
	if len(files) == 0 {
		return false
	}
	v.files = files
	v.idx = 0
	v.open = true
	return true
}

func (v *SourceViewer) Close()       { v.open = false }
func (v *SourceViewer) IsOpen() bool { return v.open }

// Next and Prev cycle through the files.
func (v *SourceViewer) Next() { v.idx = (v.idx + 1) % len(v.files) }
func (v *SourceViewer) Prev() { v.idx = (v.idx - 1 + len(v.files)) % len(v.files) }

// Current is the selected file.
func (v *SourceViewer) Current() model.SourceFile { return v.files[v.idx] }

// View draws the overlay.
func (v *SourceViewer) View(th Theme) string {
	if !v.open {
		return ""
	}
	f := v.Current()
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", th.Title.Render(nameOr(f.Name, "Untitled source")),
		th.Muted.Render(fmt.Sprintf("%d/%d", v.idx+1, len(v.files))))
	if f.Path != "" {
		fmt.Fprintf(&b, "%s %s\n", th.Muted.Render("path:"), f.Path)
	}
	if f.URL == "" {
		b.WriteString(th.Warn.Render(PreviewUnavailable))
	} else {
		fmt.Fprintf(&b, "%s %s\n\n", th.Muted.Render("url: "), f.URL)
		b.WriteString(th.Muted.Render("o open in browser"))
	}
	b.WriteString(th.Muted.Render("  ←/→ switch  esc close"))
	return th.Overlay.Render(b.String())
}

func nameOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
