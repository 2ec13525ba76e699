package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/and161185/fastcite/internal/config"
	"github.com/and161185/fastcite/internal/model"
	"github.com/and161185/fastcite/internal/service"
)

// Printer writes command output either styled for a terminal or as JSON.
type Printer struct {
	W     io.Writer
	Theme Theme
	JSON  bool
	// Plain disables styling, for output that is not a terminal.
	Plain bool
	md    *Markdown
}

// NewPrinter returns a printer for w.
func NewPrinter(w io.Writer, th Theme, asJSON, plain bool) *Printer {
	p := &Printer{W: w, Theme: th, JSON: asJSON, Plain: plain}
	if !plain {
		p.md = NewMarkdown(th.Name, 80)
	}
	return p
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.Plain {
		return text
	}
	return s.Render(text)
}

// PrintJSON writes v as indented JSON.
func (p *Printer) PrintJSON(v any) error {
	enc := json.NewEncoder(p.W)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Println writes a plain line; in JSON mode it is suppressed.
func (p *Printer) Println(a ...any) {
	if p.JSON {
		return
	}
	fmt.Fprintln(p.W, a...)
}

// Success writes a confirmation line.
func (p *Printer) Success(msg string) {
	if p.JSON {
		_ = p.PrintJSON(map[string]string{"status": "ok", "message": msg})
		return
	}
	fmt.Fprintln(p.W, p.style(p.Theme.Success, msg))
}

// table renders rows with aligned columns. Width is measured on the raw
// text so styling does not skew alignment.
func (p *Printer) table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	line := func(cells []string, st lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, c := range cells {
			pad := c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
			if i < len(cells)-1 {
				pad += "  "
			}
			out[i] = p.style(st, pad)
		}
		return strings.TrimRight(strings.Join(out, ""), " ")
	}
	fmt.Fprintln(p.W, line(header, p.Theme.Header.UnsetPaddingRight()))
	for _, r := range rows {
		fmt.Fprintln(p.W, line(r, p.Theme.Cell.UnsetPaddingRight()))
	}
}

// Dashboard prints the greeting, stat cards and recent chats.
func (p *Printer) Dashboard(d service.Dashboard) error {
	if p.JSON {
		return p.PrintJSON(struct {
			Profile model.Profile        `json:"profile"`
			Stats   model.DashboardStats `json:"stats"`
			Chats   []model.ChatSession  `json:"recent_chats"`
		}{d.Profile, d.Stats, recent(d.Chats, 5)})
	}
	name := nameOr(d.Profile.Name, d.Profile.Username)
	fmt.Fprintf(p.W, "%s %s\n\n", p.style(p.Theme.Title, "Welcome back, "+name), p.style(p.Theme.Muted, "("+d.Profile.DisplayRole()+")"))

	cards := []string{
		p.card("Total books", d.Stats.TotalBooks),
		p.card("Ready", d.Stats.BooksReady),
		p.card("Processing", d.Stats.BooksProcessing),
		p.card("Chats", d.Stats.TotalChats),
	}
	if p.Plain {
		fmt.Fprintln(p.W, strings.Join(cards, "  "))
	} else {
		fmt.Fprintln(p.W, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	chats := recent(d.Chats, 5)
	if len(chats) == 0 {
		fmt.Fprintln(p.W, "\nNo chats yet. Start one with `fc chat`.")
		return nil
	}
	fmt.Fprintln(p.W, "\n"+p.style(p.Theme.Title, "Recent chats"))
	p.chatRows(chats)
	return nil
}

func (p *Printer) card(label string, n int) string {
	if p.Plain {
		return fmt.Sprintf("%s: %d", label, n)
	}
	return p.Theme.Card.Render(p.Theme.Muted.Render(label) + "\n" + p.Theme.Title.Render(strconv.Itoa(n)))
}

func recent(chats []model.ChatSession, n int) []model.ChatSession {
	if len(chats) > n {
		return chats[:n]
	}
	return chats
}

// Books prints the document list.
func (p *Printer) Books(books []model.Book) error {
	if p.JSON {
		return p.PrintJSON(books)
	}
	if len(books) == 0 {
		fmt.Fprintln(p.W, "No books found.")
		return nil
	}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		pages := ""
		if b.Pages > 0 {
			pages = strconv.Itoa(b.Pages)
		}
		rows = append(rows, []string{b.ID, nameOr(b.Title, "Untitled Book"), b.AuthorName, pages, StatusLabel(b.Status), b.UploadedAt})
	}
	p.table([]string{"ID", "TITLE", "AUTHOR", "PAGES", "STATUS", "UPLOADED"}, rows)
	return nil
}

// StatusLabel is the display form of a book status.
func StatusLabel(s model.BookStatus) string {
	switch s {
	case model.BookComplete:
		return "Ready"
	case model.BookProcessing:
		return "Processing"
	}
	return string(s)
}

// Chats prints chat sessions.
func (p *Printer) Chats(chats []model.ChatSession) error {
	if p.JSON {
		return p.PrintJSON(chats)
	}
	if len(chats) == 0 {
		fmt.Fprintln(p.W, "No chats found.")
		return nil
	}
	p.chatRows(chats)
	return nil
}

func (p *Printer) chatRows(chats []model.ChatSession) {
	rows := make([][]string, 0, len(chats))
	for _, c := range chats {
		at := ""
		if !c.UpdatedAt.IsZero() {
			at = c.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{c.ID, nameOr(c.Title, "Untitled chat"), at})
	}
	p.table([]string{"ID", "TITLE", "UPDATED"}, rows)
}

// Tasks prints upload tasks, newest first.
func (p *Printer) Tasks(tasks []model.UploadTask) error {
	if p.JSON {
		return p.PrintJSON(tasks)
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{t.TaskID, t.Filename, string(t.Status), t.Note})
	}
	p.table([]string{"TASK", "FILE", "STATUS", "NOTE"}, rows)
	return nil
}

// Profile prints account details.
func (p *Printer) Profile(pr model.Profile) error {
	if p.JSON {
		return p.PrintJSON(pr)
	}
	rows := [][]string{
		{"Name", pr.Name},
		{"Username", pr.Username},
		{"Email", pr.Email},
		{"Date of birth", nameOr(pr.DOB, "-")},
		{"Role", pr.DisplayRole()},
	}
	for _, r := range rows {
		fmt.Fprintf(p.W, "%-14s %s\n", p.style(p.Theme.Muted, r[0]), r[1])
	}
	return nil
}

// Preferences prints the display preferences.
func (p *Printer) Preferences(pr config.Preferences) error {
	if p.JSON {
		return p.PrintJSON(pr)
	}
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	fmt.Fprintf(p.W, "theme:     %s\nlanguage:  %s\nemail:     %s\npush:      %s\nupdates:   %s\n",
		pr.Theme, pr.Language, onOff(pr.Notifications.Email), onOff(pr.Notifications.Push), onOff(pr.Notifications.Updates))
	return nil
}

// Answer prints one assistant reply of a one-shot question.
func (p *Printer) Answer(chatID string, msg model.ChatMessage) error {
	if p.JSON {
		return p.PrintJSON(struct {
			ChatID          string             `json:"chat_id"`
			Answer          string             `json:"answer"`
			Reasoning       string             `json:"reasoning,omitempty"`
			ContextsCount   int                `json:"contexts_count"`
			DownloadedFiles []model.SourceFile `json:"downloaded_files"`
			Error           bool               `json:"error,omitempty"`
		}{chatID, msg.Content, msg.Reasoning, msg.ContextsCount, msg.DownloadedFiles, msg.IsError})
	}
	body := msg.Content
	if !p.Plain {
		body = p.md.Render(body)
	}
	if msg.IsError {
		body = p.style(p.Theme.Error, body)
	}
	fmt.Fprintln(p.W, body)
	if msg.ContextsCount > 0 {
		fmt.Fprintln(p.W, p.style(p.Theme.Muted, ContextsLine(msg.ContextsCount)))
	}
	for i, f := range msg.DownloadedFiles {
		loc := f.URL
		if loc == "" {
			loc = f.Path
		}
		fmt.Fprintf(p.W, "%s %s %s\n", p.style(p.Theme.Muted, fmt.Sprintf("[%d]", i+1)), nameOr(f.Name, "source"), p.style(p.Theme.Muted, loc))
	}
	if chatID != "" {
		fmt.Fprintln(p.W, p.style(p.Theme.Muted, "chat: "+chatID))
	}
	return nil
}
