// Package model defines the client-side projections of FastCite API entities.
package model

import (
	"sort"
	"strings"
)

// Role of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BookStatus is the ingestion state reported by the server for a document.
type BookStatus string

const (
	BookProcessing BookStatus = "processing"
	BookComplete   BookStatus = "complete"
)

// TaskStatus is the state of a server-side ingestion task.
type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskStarted TaskStatus = "STARTED"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailure TaskStatus = "FAILURE"
)

// Active reports whether a task with this status still needs polling.
func (s TaskStatus) Active() bool { return s == TaskPending || s == TaskStarted }

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool { return s == TaskSuccess || s == TaskFailure }

// Profile is the authenticated user's account data.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	DOB      string `json:"dob,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// DisplayRole maps the raw role to the label shown on the dashboard.
func (p Profile) DisplayRole() string {
	if p.Role == "admin" {
		return "Admin"
	}
	return "User"
}

// Book is an uploaded document.
type Book struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	AuthorName string     `json:"author_name,omitempty"`
	Pages      int        `json:"pages,omitempty"`
	Status     BookStatus `json:"status"`
	UploadedAt string     `json:"uploaded_at,omitempty"`
}

// Deletable reports whether the book may be deleted (processing finished).
func (b Book) Deletable() bool { return b.Status == BookComplete }

// Initials returns up to two letters used as a compact book badge.
func (b Book) Initials() string {
	words := strings.Fields(b.Title)
	switch len(words) {
	case 0:
		return "?"
	case 1:
		r := []rune(words[0])
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToUpper(string(r))
	default:
		first := []rune(words[0])[0]
		last := []rune(words[len(words)-1])[0]
		return strings.ToUpper(string([]rune{first, last}))
	}
}

// ChatSession is a conversation header listed in the sidebar.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// SortChatsByUpdated orders sessions newest first. The slice is sorted in place.
func SortChatsByUpdated(chats []ChatSession) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt.Time)
	})
}

// SourceFile is a cited file attached to an assistant answer.
type SourceFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ChatMessage is one transcript entry; it only lives in client memory.
type ChatMessage struct {
	Role            Role
	Content         string
	Reasoning       string
	ContextsCount   int
	DownloadedFiles []SourceFile
	IsError         bool
}

// Transcript is an append-only message list.
type Transcript struct {
	msgs []ChatMessage
}

// Append adds a message to the end.
func (t *Transcript) Append(m ChatMessage) { t.msgs = append(t.msgs, m) }

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.msgs) }

// Messages returns a copy of the messages.
func (t *Transcript) Messages() []ChatMessage {
	out := make([]ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Clone returns an independent copy.
func (t *Transcript) Clone() Transcript { return Transcript{msgs: t.Messages()} }

// Last returns the newest message.
func (t *Transcript) Last() (ChatMessage, bool) {
	if len(t.msgs) == 0 {
		return ChatMessage{}, false
	}
	return t.msgs[len(t.msgs)-1], true
}

// dropLast removes the newest message; used only to undo an optimistic append.
func (t *Transcript) dropLast() {
	if len(t.msgs) > 0 {
		t.msgs = t.msgs[:len(t.msgs)-1]
	}
}

// Rollback undoes the optimistic user message appended by a failed send.
func (t *Transcript) Rollback(m ChatMessage) bool {
	last, ok := t.Last()
	if !ok || last.Role != m.Role || last.Content != m.Content {
		return false
	}
	t.dropLast()
	return true
}

// UploadTask tracks one ingestion job created by an upload.
type UploadTask struct {
	TaskID   string     `json:"task_id"`
	Filename string     `json:"filename"`
	Status   TaskStatus `json:"status"`
	Note     string     `json:"-"`
}

// QueryRequest is the body of POST /rag/query.
type QueryRequest struct {
	Prompt        string `json:"prompt"`
	BookID        string `json:"book_id"`
	TopK          int    `json:"top_k"`
	ChatSessionID string `json:"chat_session_id"`
}

// DefaultTopK is the number of contexts requested per question.
const DefaultTopK = 3

// Answer is the response of POST /rag/query.
type Answer struct {
	Answer          string       `json:"answer"`
	Reasoning       string       `json:"reasoning,omitempty"`
	ContextsCount   int          `json:"contexts_count,omitempty"`
	DownloadedFiles []SourceFile `json:"downloaded_files,omitempty"`
}

// ExchangePair is one stored question/answer pair of a chat session.
type ExchangePair struct {
	Question        string       `json:"question"`
	Answer          string       `json:"answer"`
	DownloadedFiles []SourceFile `json:"downloaded_files,omitempty"`
}

// ChatDetail is a session with its stored history.
type ChatDetail struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Messages []ExchangePair `json:"messages"`
}

// Transcript rebuilds user/assistant messages from stored pairs.
// Empty halves are skipped.
func (d ChatDetail) Transcript() *Transcript {
	t := &Transcript{}
	for _, p := range d.Messages {
		if p.Question != "" {
			t.Append(ChatMessage{Role: RoleUser, Content: p.Question})
		}
		if p.Answer != "" {
			files := p.DownloadedFiles
			if files == nil {
				files = []SourceFile{}
			}
			t.Append(ChatMessage{Role: RoleAssistant, Content: p.Answer, DownloadedFiles: files})
		}
	}
	return t
}

// DashboardStats aggregates counts shown on the dashboard cards.
type DashboardStats struct {
	TotalBooks      int `json:"total_books"`
	BooksReady      int `json:"books_ready"`
	BooksProcessing int `json:"books_processing"`
	TotalChats      int `json:"total_chats"`
}

// ComputeStats derives dashboard counts from the fetched lists.
func ComputeStats(books []Book, chats []ChatSession) DashboardStats {
	st := DashboardStats{TotalBooks: len(books), TotalChats: len(chats)}
	for _, b := range books {
		switch b.Status {
		case BookComplete:
			st.BooksReady++
		case BookProcessing:
			st.BooksProcessing++
		}
	}
	return st
}
