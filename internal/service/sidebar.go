package service

import (
	"context"
	"sync"

	"github.com/and161185/fastcite/internal/model"
)

// SidebarService keeps the chat session list shown next to a chat.
type SidebarService interface {
	// Chats fetches the sessions, most recently updated first.
	Chats(ctx context.Context) ([]model.ChatSession, error)
	// Delete removes a session. Redirect is true when it was currentID, so
	// the caller must leave the chat view for a new chat.
	Delete(ctx context.Context, id, currentID string) (redirect bool, err error)
}

type SidebarServiceImpl struct {
	api ChatAPI

	mu    sync.Mutex
	chats []model.ChatSession
}

// NewSidebarService constructs SidebarService.
func NewSidebarService(a ChatAPI) *SidebarServiceImpl {
	return &SidebarServiceImpl{api: a}
}

func (s *SidebarServiceImpl) Chats(ctx context.Context) ([]model.ChatSession, error) {
	chats, err := s.api.Chats(ctx)
	if err != nil {
		return nil, err
	}
	model.SortChatsByUpdated(chats)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	out := make([]model.ChatSession, len(chats))
	copy(out, chats)
	return out, nil
}

func (s *SidebarServiceImpl) Delete(ctx context.Context, id, currentID string) (bool, error) {
	if err := s.api.DeleteChat(ctx, id); err != nil {
		return false, err
	}
	s.mu.Lock()
	kept := s.chats[:0:0]
	for _, c := range s.chats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.chats = kept
	s.mu.Unlock()
	return id == currentID, nil
}

// Held returns the list after local deletions.
func (s *SidebarServiceImpl) Held() []model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatSession, len(s.chats))
	copy(out, s.chats)
	return out
}
