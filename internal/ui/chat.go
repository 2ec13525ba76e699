package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/filter"
	"github.com/and161185/fastcite/internal/model"
	"github.com/and161185/fastcite/internal/service"
)

// BookLister loads the books offered in the selector.
type BookLister interface {
	List(ctx context.Context) ([]model.Book, error)
}

// ChatOptions configure the chat view.
type ChatOptions struct {
	Chat     service.ChatService
	Books    BookLister
	Theme    Theme
	Typing   time.Duration
	Debounce time.Duration
	Opener   Opener
	// Sidebar enables the chat list pane (ctrl+l).
	Sidebar service.SidebarService
	// BookID preselects a book once the list is loaded.
	BookID string
}

type focusArea int

const (
	focusBooks focusArea = iota
	focusInput
	focusChats
)

const (
	maxBookRows = 6
	chromeRows  = 7
)

type booksMsg struct {
	books []model.Book
	err   error
}

type searchMsg struct{ query string }

type answerMsg struct {
	conv *service.Conversation
	msg  model.ChatMessage
	err  error
}

type openedMsg struct{ err error }

type chatsMsg struct {
	chats []model.ChatSession
	err   error
}

type chatLoadedMsg struct {
	conv *service.Conversation
	err  error
}

type chatDeletedMsg struct {
	id       string
	redirect bool
	err      error
}

// ChatModel is the interactive chat view.
type ChatModel struct {
	ctx    context.Context
	chat   service.ChatService
	books  BookLister
	theme  Theme
	md     *Markdown
	opener  Opener
	deb     *filter.Debouncer
	sidebar service.SidebarService

	conv     *service.Conversation
	preBook  string
	allBooks []model.Book
	shown    []model.Book
	cursor   int

	chats      []model.ChatSession
	chatCursor int
	// confirm is the chat id waiting for a y/N answer
	confirm string

	focus  focusArea
	search textinput.Model
	input  textinput.Model
	spin   spinner.Model
	vp     viewport.Model
	tw     Typewriter
	viewer SourceViewer

	loading bool
	pending string
	banner  string
	expired bool
	width   int
}

// NewChatModel builds the view for conv, which may be a loaded history or a
// fresh conversation.
func NewChatModel(ctx context.Context, conv *service.Conversation, opts ChatOptions) ChatModel {
	if conv == nil {
		conv = &service.Conversation{}
	}
	if opts.Opener == nil {
		opts.Opener = OpenURL
	}
	search := textinput.New()
	search.Placeholder = "Search books by title or author"
	search.Prompt = "🔍 "

	input := textinput.New()
	input.Placeholder = "Ask a question about the selected book"
	input.Prompt = "> "
	input.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Accent

	m := ChatModel{
		ctx:     ctx,
		chat:    opts.Chat,
		books:   opts.Books,
		theme:   opts.Theme,
		md:      NewMarkdown(opts.Theme.Name, 80),
		opener:  opts.Opener,
		deb:     filter.NewDebouncer(opts.Debounce),
		sidebar: opts.Sidebar,
		conv:    conv,
		preBook: opts.BookID,
		search:  search,
		input:   input,
		spin:    sp,
		vp:      viewport.New(80, 20),
		tw:      NewTypewriter(opts.Typing),
		width:   80,
	}
	m.setFocus(m.restFocus())
	m.refresh()
	return m
}

// Conversation returns the current conversation state.
func (m ChatModel) Conversation() *service.Conversation { return m.conv }

// Expired reports whether the view closed because the session ended.
func (m ChatModel) Expired() bool { return m.expired }

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(m.loadBooks(), m.waitSearch(), textinput.Blink)
}

func (m ChatModel) loadBooks() tea.Cmd {
	books, ctx := m.books, m.ctx
	if books == nil {
		return nil
	}
	return func() tea.Msg {
		list, err := books.List(ctx)
		return booksMsg{books: list, err: err}
	}
}

func (m ChatModel) loadChats() tea.Cmd {
	sb, ctx := m.sidebar, m.ctx
	return func() tea.Msg {
		list, err := sb.Chats(ctx)
		return chatsMsg{chats: list, err: err}
	}
}

func (m ChatModel) openChat(id string) tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		conv, err := chat.Load(ctx, id)
		return chatLoadedMsg{conv: conv, err: err}
	}
}

func (m ChatModel) deleteChat(id string) tea.Cmd {
	sb, ctx, current := m.sidebar, m.ctx, m.conv.SessionID
	return func() tea.Msg {
		redirect, err := sb.Delete(ctx, id, current)
		return chatDeletedMsg{id: id, redirect: redirect, err: err}
	}
}

func (m ChatModel) waitSearch() tea.Cmd {
	ch := m.deb.C()
	return func() tea.Msg { return searchMsg{query: <-ch} }
}

// send runs the query on a copy of the conversation so View never reads
// state the command goroutine is writing.
func (m ChatModel) send(q string) tea.Cmd {
	c := *m.conv
	c.Transcript = m.conv.Transcript.Clone()
	conv := &c
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		msg, err := chat.Send(ctx, conv, q)
		return answerMsg{conv: conv, msg: msg, err: err}
	}
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.vp.Width = msg.Width
		m.vp.Height = max(3, msg.Height-chromeRows-m.selectorRows())
		m.md = NewMarkdown(m.theme.Name, max(20, msg.Width-4))
		m.refresh()
		return m, nil

	case booksMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.allBooks = msg.books
		m.applySearch(m.search.Value())
		if m.conv.Book == nil && m.preBook != "" {
			for i := range m.allBooks {
				if m.allBooks[i].ID == m.preBook {
					m.selectBook(m.allBooks[i])
					break
				}
			}
		}
		return m, nil

	case searchMsg:
		m.applySearch(msg.query)
		return m, m.waitSearch()

	case answerMsg:
		m.loading = false
		q := m.pending
		m.pending = ""
		if msg.conv != nil {
			m.conv = msg.conv
		}
		if msg.err != nil {
			if api.KindOf(msg.err) == api.KindUnauthorized {
				m.refresh()
				return m.fail(msg.err)
			}
			if !msg.msg.IsError {
				// nothing was recorded; give the question back
				m.input.SetValue(q)
				m.banner = msg.err.Error()
			}
		}
		if msg.err == nil && !msg.msg.IsError && msg.msg.Content != "" {
			cmds = append(cmds, m.tw.Start(msg.msg.Content))
		}
		m.refresh()
		return m, tea.Batch(cmds...)

	case typeTickMsg:
		cmd := m.tw.Update(msg)
		m.refresh()
		return m, cmd

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.refresh()
		return m, cmd

	case openedMsg:
		if msg.err != nil {
			m.banner = "Could not open the file: " + msg.err.Error()
		}
		return m, nil

	case chatsMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.chats = msg.chats
		m.chatCursor = min(m.chatCursor, max(0, len(m.chats)-1))
		return m, nil

	case chatLoadedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.tw.Stop()
		m.conv = msg.conv
		m.banner = ""
		m.setFocus(m.restFocus())
		m.refresh()
		return m, nil

	case chatDeletedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		kept := m.chats[:0:0]
		for _, c := range m.chats {
			if c.ID != msg.id {
				kept = append(kept, c)
			}
		}
		m.chats = kept
		m.chatCursor = min(m.chatCursor, max(0, len(m.chats)-1))
		if !msg.redirect {
			m.banner = "Chat deleted."
			return m, nil
		}
		// the open chat is gone: start over as a new chat
		m.tw.Stop()
		m.conv = &service.Conversation{}
		m.input.Reset()
		m.banner = "Chat deleted. Started a new chat."
		m.setFocus(focusBooks)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	if m.focus == focusBooks {
		m.search, cmd = m.search.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m ChatModel) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyCtrlC {
		return m.quit()
	}

	if m.viewer.IsOpen() {
		switch k.String() {
		case "esc", "q":
			m.viewer.Close()
		case "right", "l", "n":
			m.viewer.Next()
		case "left", "h", "p":
			m.viewer.Prev()
		case "o":
			if u := m.viewer.Current().URL; u != "" {
				open := m.opener
				return m, func() tea.Msg { return openedMsg{err: open(u)} }
			}
		}
		return m, nil
	}

	switch k.Type {
	case tea.KeyTab:
		m.toggleFocus()
		return m, nil
	case tea.KeyCtrlL:
		if m.sidebar == nil || m.loading {
			return m, nil
		}
		if m.focus == focusChats {
			m.setFocus(m.restFocus())
			return m, nil
		}
		m.setFocus(focusChats)
		return m, m.loadChats()
	case tea.KeyEsc:
		switch {
		case m.tw.Active():
			m.tw.Skip()
			m.refresh()
		case m.confirm != "":
			m.confirm = ""
			m.banner = ""
		case m.banner != "":
			m.banner = ""
		case m.focus == focusChats:
			m.setFocus(m.restFocus())
		case m.focus == focusBooks && m.conv.Book != nil:
			m.toggleFocus()
		}
		return m, nil
	case tea.KeyCtrlO:
		if last, ok := m.lastAnswer(); ok {
			m.viewer.Show(last.DownloadedFiles)
		}
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(k)
		return m, cmd
	}

	if m.focus == focusChats {
		return m.handleChatsKey(k)
	}

	if m.focus == focusBooks {
		switch k.Type {
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case tea.KeyDown:
			if m.cursor < len(m.shown)-1 {
				m.cursor++
			}
			return m, nil
		case tea.KeyEnter:
			if m.cursor < len(m.shown) {
				b := m.shown[m.cursor]
				if !b.Deletable() {
					m.banner = fmt.Sprintf("%q is still processing.", nameOr(b.Title, "Untitled Book"))
					return m, nil
				}
				m.selectBook(b)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(k)
		m.deb.Trigger(m.search.Value())
		return m, cmd
	}

	if k.Type == tea.KeyEnter {
		if m.loading {
			return m, nil
		}
		q := m.input.Value()
		if strings.TrimSpace(q) == "" {
			return m, nil
		}
		if m.conv.Book == nil {
			m.banner = "Select a book first."
			m.toggleFocus()
			return m, nil
		}
		m.tw.Skip()
		m.input.Reset()
		m.loading = true
		m.pending = q
		m.banner = ""
		m.refresh()
		return m, tea.Batch(m.send(q), m.spin.Tick)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(k)
	return m, cmd
}

func (m ChatModel) handleChatsKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != "" {
		id := m.confirm
		m.confirm = ""
		m.banner = ""
		if strings.EqualFold(k.String(), "y") {
			return m, m.deleteChat(id)
		}
		return m, nil
	}
	switch k.String() {
	case "up", "k":
		if m.chatCursor > 0 {
			m.chatCursor--
		}
	case "down", "j":
		if m.chatCursor < len(m.chats)-1 {
			m.chatCursor++
		}
	case "enter":
		if m.chatCursor < len(m.chats) {
			return m, m.openChat(m.chats[m.chatCursor].ID)
		}
	case "d", "delete":
		if m.chatCursor < len(m.chats) {
			c := m.chats[m.chatCursor]
			m.confirm = c.ID
			m.banner = fmt.Sprintf("Delete %q? y/N", nameOr(c.Title, "Untitled chat"))
		}
	}
	return m, nil
}

func (m ChatModel) fail(err error) (tea.Model, tea.Cmd) {
	if api.KindOf(err) == api.KindUnauthorized {
		m.expired = true
		m.banner = "Your session has expired. Run `fc login` to sign in again."
		return m.quit()
	}
	m.banner = err.Error()
	return m, nil
}

func (m ChatModel) quit() (tea.Model, tea.Cmd) {
	m.deb.Stop()
	m.tw.Stop()
	return m, tea.Quit
}

func (m *ChatModel) setFocus(f focusArea) {
	if f != focusChats && m.confirm != "" {
		m.confirm = ""
		m.banner = ""
	}
	m.focus = f
	m.search.Blur()
	m.input.Blur()
	switch f {
	case focusBooks:
		m.search.Focus()
	case focusInput:
		m.input.Focus()
	}
}

// restFocus is where focus goes when no pane is open.
func (m ChatModel) restFocus() focusArea {
	if m.conv.Book == nil {
		return focusBooks
	}
	return focusInput
}

func (m *ChatModel) toggleFocus() {
	if m.focus == focusBooks {
		m.setFocus(focusInput)
		return
	}
	m.setFocus(focusBooks)
}

func (m *ChatModel) selectBook(b model.Book) {
	book := b
	m.conv.Book = &book
	m.focus = focusBooks
	m.toggleFocus()
}

func (m *ChatModel) applySearch(q string) {
	m.shown = filter.Books(m.allBooks, q, "")
	if m.cursor >= len(m.shown) {
		m.cursor = max(0, len(m.shown)-1)
	}
}

func (m ChatModel) lastAnswer() (model.ChatMessage, bool) {
	msgs := m.conv.Transcript.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i], true
		}
	}
	return model.ChatMessage{}, false
}

func (m ChatModel) selectorRows() int {
	switch m.focus {
	case focusBooks:
		return min(len(m.shown), maxBookRows) + 2
	case focusChats:
		return max(1, min(len(m.chats), maxBookRows))
	}
	return 0
}

// refresh re-renders the transcript into the viewport.
func (m *ChatModel) refresh() {
	th := m.theme
	msgs := m.conv.Transcript.Messages()
	var b strings.Builder
	for i, msg := range msgs {
		if msg.Role == model.RoleUser {
			fmt.Fprintf(&b, "%s\n%s\n\n", th.User.Render("You"), msg.Content)
			continue
		}
		b.WriteString(th.Accent.Render("FastCite") + "\n")
		switch {
		case i == len(msgs)-1 && m.tw.Active():
			b.WriteString(m.tw.Visible())
		case msg.IsError:
			b.WriteString(th.Error.Render(m.md.Render(msg.Content)))
		default:
			b.WriteString(m.md.Render(msg.Content))
		}
		b.WriteString("\n")
		if msg.ContextsCount > 0 {
			b.WriteString(th.Muted.Render(ContextsLine(msg.ContextsCount)) + "\n")
		}
		if len(msg.DownloadedFiles) > 0 {
			names := make([]string, 0, len(msg.DownloadedFiles))
			for _, f := range msg.DownloadedFiles {
				names = append(names, nameOr(f.Name, "source"))
			}
			b.WriteString(th.Muted.Render("Sources (ctrl+o): "+strings.Join(names, ", ")) + "\n")
		}
		b.WriteString("\n")
	}
	if m.loading {
		fmt.Fprintf(&b, "%s\n%s\n\n%s %s\n", th.User.Render("You"), m.pending, m.spin.View(), th.Muted.Render("Thinking..."))
	}
	m.vp.SetContent(b.String())
	m.vp.GotoBottom()
}

// ContextsLine describes how many passages backed an answer.
func ContextsLine(n int) string {
	if n == 1 {
		return "Referenced 1 context from the book"
	}
	return fmt.Sprintf("Referenced %d contexts from the book", n)
}

func (m ChatModel) View() string {
	th := m.theme
	if m.viewer.IsOpen() {
		return m.viewer.View(th)
	}

	title := m.conv.Title
	if title == "" {
		title = "New chat"
	}
	book := th.Muted.Render("no book selected")
	if m.conv.Book != nil {
		book = th.Accent.Render(nameOr(m.conv.Book.Title, "Untitled Book"))
	}

	var parts []string
	parts = append(parts, th.Title.Render(title)+"  "+book)
	switch m.focus {
	case focusBooks:
		parts = append(parts, m.search.View(), m.bookList())
	case focusChats:
		parts = append(parts, m.chatList())
	}
	parts = append(parts, m.vp.View())
	if m.banner != "" {
		parts = append(parts, th.Error.Render(m.banner))
	}
	help := "enter send · tab books/question · esc skip typing · ctrl+o sources · ctrl+c quit"
	switch {
	case m.focus == focusChats:
		help = "enter open · d delete · esc back · ctrl+c quit"
	case m.sidebar != nil:
		help = "enter send · tab books/question · ctrl+l chats · ctrl+o sources · ctrl+c quit"
	}
	parts = append(parts, m.input.View(), th.Muted.Render(help))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m ChatModel) chatList() string {
	th := m.theme
	if len(m.chats) == 0 {
		return th.Muted.Render("No chats yet.")
	}
	start := 0
	if m.chatCursor >= maxBookRows {
		start = m.chatCursor - maxBookRows + 1
	}
	end := min(len(m.chats), start+maxBookRows)
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := m.chats[i]
		line := nameOr(c.Title, "Untitled chat")
		if c.ID == m.conv.SessionID {
			line += th.Muted.Render(" (open)")
		}
		if i == m.chatCursor {
			line = th.Focused.Render("› ") + line
		} else {
			line = "  " + line
		}
		rows = append(rows, line)
	}
	return strings.Join(rows, "\n")
}

func (m ChatModel) bookList() string {
	th := m.theme
	if len(m.shown) == 0 {
		if len(m.allBooks) == 0 {
			return th.Muted.Render("No books yet. Upload one with `fc upload`.")
		}
		return th.Muted.Render("No books match your search.")
	}
	start := 0
	if m.cursor >= maxBookRows {
		start = m.cursor - maxBookRows + 1
	}
	end := min(len(m.shown), start+maxBookRows)
	var b strings.Builder
	for i := start; i < end; i++ {
		bk := m.shown[i]
		line := fmt.Sprintf("%s %s", bk.Initials(), nameOr(bk.Title, "Untitled Book"))
		if bk.AuthorName != "" {
			line += th.Muted.Render(" · " + bk.AuthorName)
		}
		if !bk.Deletable() {
			line += th.Warn.Render(" (processing)")
		}
		if i == m.cursor {
			b.WriteString(th.Focused.Render("› ") + line)
		} else {
			b.WriteString("  " + line)
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
