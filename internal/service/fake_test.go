package service

import (
	"context"
	"io"
	"sync"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/model"
)

// fakeAPI records calls and returns canned results.
type fakeAPI struct {
	mu sync.Mutex

	books    []model.Book
	booksErr error
	delErr   error
	deleted  []string

	chats      []model.ChatSession
	chatsErr   error
	createErr  error
	created    []string
	detail     model.ChatDetail
	answer     model.Answer
	queryErr   error
	queries    []model.QueryRequest
	deletedChs []string

	profile    model.Profile
	profileErr error
	updates    []api.ProfileUpdate
	passwords  [][2]string

	uploaded   []byte
	uploadName string
	signups    []api.SignupRequest
	loginToken string
	loginErr   error
}

var (
	_ BookAPI      = (*fakeAPI)(nil)
	_ UploadAPI    = (*fakeAPI)(nil)
	_ ChatAPI      = (*fakeAPI)(nil)
	_ UserAPI      = (*fakeAPI)(nil)
	_ AuthAPI      = (*fakeAPI)(nil)
	_ DashboardAPI = (*fakeAPI)(nil)
)

func (f *fakeAPI) Books(context.Context) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.booksErr != nil {
		return nil, f.booksErr
	}
	return append([]model.Book(nil), f.books...), nil
}

func (f *fakeAPI) DeleteBook(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.delErr
}

func (f *fakeAPI) Upload(_ context.Context, name string, r io.Reader) (model.UploadTask, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return model.UploadTask{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = b
	f.uploadName = name
	return model.UploadTask{TaskID: "t1", Filename: name, Status: model.TaskPending}, nil
}

func (f *fakeAPI) Chats(context.Context) ([]model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatsErr != nil {
		return nil, f.chatsErr
	}
	return append([]model.ChatSession(nil), f.chats...), nil
}

func (f *fakeAPI) CreateChat(_ context.Context, title string) (model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, title)
	if f.createErr != nil {
		return model.ChatSession{}, f.createErr
	}
	return model.ChatSession{ID: "new-chat", Title: title}, nil
}

func (f *fakeAPI) Chat(_ context.Context, id string) (model.ChatDetail, error) {
	d := f.detail
	d.ID = id
	return d, nil
}

func (f *fakeAPI) DeleteChat(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedChs = append(f.deletedChs, id)
	return nil
}

func (f *fakeAPI) Query(_ context.Context, q model.QueryRequest) (model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return model.Answer{}, f.queryErr
	}
	return f.answer, nil
}

func (f *fakeAPI) Profile(context.Context) (model.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeAPI) UpdateProfile(_ context.Context, _ string, upd api.ProfileUpdate) (api.ProfileUpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	p := f.profile
	if upd.Username != nil {
		p.Username = *upd.Username
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.DOB != nil {
		p.DOB = *upd.DOB
	}
	return api.ProfileUpdateResult{AccessToken: "reissued", User: p}, nil
}

func (f *fakeAPI) ChangePassword(_ context.Context, o, n string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords = append(f.passwords, [2]string{o, n})
	return nil
}

func (f *fakeAPI) Signup(_ context.Context, r api.SignupRequest) error {
	f.signups = append(f.signups, r)
	return nil
}

func (f *fakeAPI) Login(context.Context, string, string) (api.Token, error) {
	if f.loginErr != nil {
		return api.Token{}, f.loginErr
	}
	return api.Token{AccessToken: f.loginToken, TokenType: "bearer"}, nil
}

func (f *fakeAPI) GoogleLoginURL() string { return "http://api/auth/google/login" }
