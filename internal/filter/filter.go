// Package filter narrows book and chat lists for display.
package filter

import (
	"strings"

	"github.com/and161185/fastcite/internal/model"
)

// Status filter values accepted by Books.
const (
	StatusAll        = "all"
	StatusProcessing = string(model.BookProcessing)
	StatusComplete   = string(model.BookComplete)
)

// ValidStatus reports whether s is a known status filter.
func ValidStatus(s string) bool {
	switch s {
	case "", StatusAll, StatusProcessing, StatusComplete:
		return true
	}
	return false
}

// Books returns the books whose title or author contains query, ignoring case,
// optionally restricted to one status. The input is never modified.
func Books(list []model.Book, query, status string) []model.Book {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Book, 0, len(list))
	for _, b := range list {
		if status != "" && status != StatusAll && string(b.Status) != status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.AuthorName), q) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Chats returns the sessions whose title contains query, ignoring case.
func Chats(list []model.ChatSession, query string) []model.ChatSession {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.ChatSession, 0, len(list))
	for _, c := range list {
		if q == "" || strings.Contains(strings.ToLower(c.Title), q) {
			out = append(out, c)
		}
	}
	return out
}
