package service

import (
	"context"
	"io"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/model"
)

// The narrow views of the backend each service depends on. *api.Client
// implements all of them; tests use fakes.

type BookAPI interface {
	Books(ctx context.Context) ([]model.Book, error)
	DeleteBook(ctx context.Context, bookID string) error
}

type UploadAPI interface {
	Upload(ctx context.Context, filename string, r io.Reader) (model.UploadTask, error)
}

type ChatAPI interface {
	Chats(ctx context.Context) ([]model.ChatSession, error)
	CreateChat(ctx context.Context, title string) (model.ChatSession, error)
	Chat(ctx context.Context, chatID string) (model.ChatDetail, error)
	DeleteChat(ctx context.Context, chatID string) error
	Query(ctx context.Context, q model.QueryRequest) (model.Answer, error)
}

type UserAPI interface {
	Profile(ctx context.Context) (model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd api.ProfileUpdate) (api.ProfileUpdateResult, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

type AuthAPI interface {
	Signup(ctx context.Context, r api.SignupRequest) error
	Login(ctx context.Context, username, password string) (api.Token, error)
	GoogleLoginURL() string
}

var (
	_ BookAPI      = (*api.Client)(nil)
	_ UploadAPI    = (*api.Client)(nil)
	_ ChatAPI      = (*api.Client)(nil)
	_ UserAPI      = (*api.Client)(nil)
	_ AuthAPI      = (*api.Client)(nil)
	_ DashboardAPI = (*api.Client)(nil)
)
