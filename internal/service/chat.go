package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/model"
)

// Canned assistant replies shown instead of raw failures. They are markdown.
const (
	MsgOverloaded = "⚠️ **Service Temporarily Unavailable**\n\nThe AI model is currently experiencing high demand. Please wait a moment and try again."
	MsgConnection = "⚠️ **Connection Error**\n\nUnable to connect to the server. Please check your internet connection and try again."
	MsgGeneric    = "⚠️ **Something went wrong**\n\nAn unexpected error occurred. Please try again."

	// rawOverloadAnswer is what the backend puts in a 200 answer when the model
	// provider is overloaded.
	rawOverloadAnswer = "Error: 503 UNAVAILABLE. {'error': {'code': 503, 'message': 'The model is overloaded. Please try again later.', 'status': 'UNAVAILABLE'}}"

	DefaultChatTitle = "Chat History"

	titleMaxRunes  = 50
	titleWordSlack = 15
)

var trailingPunct = regexp.MustCompile(`[?!.]+$`)

// GenerateTitle derives a chat title from the first question.
func GenerateTitle(question string) string {
	t := strings.TrimSpace(question)
	t = trailingPunct.ReplaceAllString(t, "")
	if utf8.RuneCountInString(t) > titleMaxRunes {
		r := []rune(t)[:titleMaxRunes]
		cut := len(r)
		for i := len(r) - 1; i >= len(r)-titleWordSlack; i-- {
			if unicode.IsSpace(r[i]) {
				cut = i
				break
			}
		}
		t = strings.TrimSpace(string(r[:cut])) + "..."
	}
	if t == "" {
		return t
	}
	first, size := utf8.DecodeRuneInString(t)
	return string(unicode.ToUpper(first)) + t[size:]
}

// CannedReply maps a query failure to the assistant message shown for it.
func CannedReply(err error) string {
	switch api.KindOf(err) {
	case api.KindOverloaded:
		return MsgOverloaded
	case api.KindNetwork:
		return MsgConnection
	default:
		return MsgGeneric
	}
}

// Conversation is the state of one chat view.
type Conversation struct {
	SessionID  string
	Title      string
	Book       *model.Book
	Transcript model.Transcript
}

// ChatService defines the chat query flow.
type ChatService interface {
	// Send asks question about conv.Book, creating the session on first use.
	Send(ctx context.Context, conv *Conversation, question string) (model.ChatMessage, error)
	// Load restores a conversation from its stored history.
	Load(ctx context.Context, chatID string) (*Conversation, error)
}

type ChatServiceImpl struct {
	api ChatAPI
	log *zap.Logger
}

// NewChatService constructs ChatService.
func NewChatService(a ChatAPI, log *zap.Logger) *ChatServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatServiceImpl{api: a, log: log}
}

// Send appends the user message optimistically, then the assistant answer.
// A failed query still yields an assistant message flagged IsError with a
// canned text; the returned error is nil for it unless the session expired.
// If the chat session cannot be created the user message is withdrawn.
func (s *ChatServiceImpl) Send(ctx context.Context, conv *Conversation, question string) (model.ChatMessage, error) {
	if strings.TrimSpace(question) == "" {
		return model.ChatMessage{}, fmt.Errorf("%w: empty question", errs.ErrValidation)
	}
	if conv.Book == nil || conv.Book.ID == "" {
		return model.ChatMessage{}, fmt.Errorf("%w: no book selected", errs.ErrValidation)
	}

	userMsg := model.ChatMessage{Role: model.RoleUser, Content: question}
	conv.Transcript.Append(userMsg)

	if conv.SessionID == "" {
		cs, err := s.api.CreateChat(ctx, GenerateTitle(question))
		if err != nil {
			conv.Transcript.Rollback(userMsg)
			s.log.Warn("create chat session", zap.Error(err))
			return model.ChatMessage{}, err
		}
		conv.SessionID = cs.ID
		conv.Title = cs.Title
	}

	ans, err := s.api.Query(ctx, model.QueryRequest{
		Prompt:        question,
		BookID:        conv.Book.ID,
		TopK:          model.DefaultTopK,
		ChatSessionID: conv.SessionID,
	})
	if err != nil {
		s.log.Warn("query", zap.String("chat_id", conv.SessionID), zap.Stringer("kind", api.KindOf(err)), zap.Error(err))
		msg := model.ChatMessage{Role: model.RoleAssistant, Content: CannedReply(err), IsError: true}
		conv.Transcript.Append(msg)
		if api.KindOf(err) == api.KindUnauthorized {
			return msg, err
		}
		return msg, nil
	}

	if ans.Answer == rawOverloadAnswer {
		ans.Answer = MsgOverloaded
	}
	files := ans.DownloadedFiles
	if files == nil {
		files = []model.SourceFile{}
	}
	msg := model.ChatMessage{
		Role:            model.RoleAssistant,
		Content:         ans.Answer,
		Reasoning:       ans.Reasoning,
		ContextsCount:   ans.ContextsCount,
		DownloadedFiles: files,
	}
	conv.Transcript.Append(msg)
	return msg, nil
}

// Load fetches a session's history.
func (s *ChatServiceImpl) Load(ctx context.Context, chatID string) (*Conversation, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: empty chat id", errs.ErrValidation)
	}
	d, err := s.api.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	title := d.Title
	if title == "" {
		title = DefaultChatTitle
	}
	return &Conversation{SessionID: d.ID, Title: title, Transcript: *d.Transcript()}, nil
}
