package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"

	"github.com/and161185/fastcite/internal/model"
)

// Chats lists chat sessions as returned by the server.
func (c *Client) Chats(ctx context.Context) ([]model.ChatSession, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/chats/me", nil, &raw); err != nil {
		return nil, err
	}
	return decodeChats(raw)
}

// decodeChats accepts a JSON array or an object keyed by chat id.
func decodeChats(raw json.RawMessage) ([]model.ChatSession, error) {
	var list []model.ChatSession
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []model.ChatSession{}
		}
		return list, nil
	}
	var byID map[string]model.ChatSession
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(byID))
	for k := range byID {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list = make([]model.ChatSession, 0, len(byID))
	for _, k := range keys {
		cs := byID[k]
		if cs.ID == "" {
			cs.ID = k
		}
		list = append(list, cs)
	}
	return list, nil
}

// CreateChat creates a session. Some backend versions answer without an id;
// then the most recently listed session is taken.
func (c *Client) CreateChat(ctx context.Context, title string) (model.ChatSession, error) {
	if err := c.requireToken(); err != nil {
		return model.ChatSession{}, err
	}
	var resp struct {
		ID      string          `json:"id"`
		MongoID string          `json:"_id"`
		ChatID  string          `json:"chat_id"`
		Title   string          `json:"title"`
		At      model.Timestamp `json:"updated_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/chats/", map[string]string{"title": title}, &resp); err != nil {
		return model.ChatSession{}, err
	}
	id := firstNonEmpty(resp.ID, resp.MongoID, resp.ChatID)
	if id != "" {
		return model.ChatSession{ID: id, Title: firstNonEmpty(resp.Title, title), UpdatedAt: resp.At}, nil
	}

	chats, err := c.Chats(ctx)
	if err != nil {
		return model.ChatSession{}, err
	}
	if len(chats) == 0 {
		return model.ChatSession{}, errors.New("could not find created chat session")
	}
	return chats[len(chats)-1], nil
}

// Chat fetches a session with its history.
func (c *Client) Chat(ctx context.Context, chatID string) (model.ChatDetail, error) {
	if err := c.requireToken(); err != nil {
		return model.ChatDetail{}, err
	}
	var d model.ChatDetail
	if err := c.doJSON(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), nil, &d); err != nil {
		return model.ChatDetail{}, err
	}
	if d.ID == "" {
		d.ID = chatID
	}
	return d, nil
}

// DeleteChat removes a session.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.requireToken(); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, "/chats/"+url.PathEscape(chatID), nil, nil)
}

// Query asks a question about a book within a chat session.
func (c *Client) Query(ctx context.Context, q model.QueryRequest) (model.Answer, error) {
	if err := c.requireToken(); err != nil {
		return model.Answer{}, err
	}
	if q.TopK <= 0 {
		q.TopK = model.DefaultTopK
	}
	var ans model.Answer
	if err := c.doJSON(ctx, http.MethodPost, "/rag/query", q, &ans); err != nil {
		return model.Answer{}, err
	}
	return ans, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
