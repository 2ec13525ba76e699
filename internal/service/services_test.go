package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/model"
	"github.com/and161185/fastcite/internal/session"
)

func TestBookService_Delete(t *testing.T) {
	t.Parallel()
	f := &fakeAPI{books: []model.Book{
		{ID: "1", Title: "Dune", Status: model.BookComplete},
		{ID: "2", Title: "Foundation", Status: model.BookProcessing},
	}}
	s := NewBookService(f, nil)
	books, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)

	err = s.Delete(context.Background(), books[1])
	require.ErrorIs(t, err, errs.ErrNotDeletable)
	require.Empty(t, f.deleted, "no request for a processing book")

	require.NoError(t, s.Delete(context.Background(), books[0]))
	require.Equal(t, []string{"1"}, f.deleted)
	held := s.Held()
	require.Len(t, held, 1)
	require.Equal(t, "2", held[0].ID)
}

func TestBookService_DeleteFailureKeepsList(t *testing.T) {
	t.Parallel()
	f := &fakeAPI{books: []model.Book{{ID: "1", Status: model.BookComplete}}, delErr: errors.New("boom")}
	s := NewBookService(f, nil)
	_, err := s.List(context.Background())
	require.NoError(t, err)

	require.Error(t, s.Delete(context.Background(), model.Book{ID: "1", Status: model.BookComplete}))
	require.Len(t, s.Held(), 1)
}

func TestUploadService(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	pdf := filepath.Join(dir, "book.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"), 0o600))
	txt := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(txt, []byte("just some text pretending"), 0o600))

	f := &fakeAPI{}
	s := NewUploadService(f, nil)

	task, err := s.Upload(context.Background(), pdf)
	require.NoError(t, err)
	require.Equal(t, model.TaskPending, task.Status)
	require.Equal(t, "book.pdf", f.uploadName)
	require.True(t, strings.HasPrefix(string(f.uploaded), "%PDF-1.4"))

	_, err = s.Upload(context.Background(), txt)
	require.ErrorIs(t, err, ErrNotPDF)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.Upload(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.UploadReader(context.Background(), "empty.pdf", strings.NewReader(""))
	require.ErrorIs(t, err, ErrNotPDF)
}

func TestUploadService_LargeFileStreamsWhole(t *testing.T) {
	t.Parallel()
	body := "%PDF-1.7\n" + strings.Repeat("x", 10_000)
	f := &fakeAPI{}
	_, err := NewUploadService(f, nil).UploadReader(context.Background(), "big.pdf", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, body, string(f.uploaded))
}

func TestDashboardService(t *testing.T) {
	t.Parallel()
	older := model.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := model.Timestamp{Time: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	f := &fakeAPI{
		profile: model.Profile{Name: "Ann", Role: "admin"},
		books: []model.Book{
			{ID: "1", Status: model.BookComplete},
			{ID: "2", Status: model.BookProcessing},
			{ID: "3", Status: model.BookComplete},
		},
		chats: []model.ChatSession{{ID: "a", UpdatedAt: older}, {ID: "b", UpdatedAt: newer}},
	}
	d, err := NewDashboardService(f).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ann", d.Profile.Name)
	require.Equal(t, model.DashboardStats{TotalBooks: 3, BooksReady: 2, BooksProcessing: 1, TotalChats: 2}, d.Stats)
	require.Equal(t, "b", d.Chats[0].ID)

	f.chatsErr = &api.APIError{Status: 401, Kind: api.KindUnauthorized}
	_, err = NewDashboardService(f).Load(context.Background())
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestSidebarService(t *testing.T) {
	t.Parallel()
	f := &fakeAPI{chats: []model.ChatSession{
		{ID: "a", UpdatedAt: model.Timestamp{Time: time.Unix(100, 0)}},
		{ID: "b", UpdatedAt: model.Timestamp{Time: time.Unix(300, 0)}},
		{ID: "c", UpdatedAt: model.Timestamp{Time: time.Unix(200, 0)}},
	}}
	s := NewSidebarService(f)
	chats, err := s.Chats(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "a"}, []string{chats[0].ID, chats[1].ID, chats[2].ID})

	redirect, err := s.Delete(context.Background(), "c", "a")
	require.NoError(t, err)
	require.False(t, redirect)

	redirect, err = s.Delete(context.Background(), "a", "a")
	require.NoError(t, err)
	require.True(t, redirect)
	require.Len(t, s.Held(), 1)
	require.Equal(t, []string{"c", "a"}, f.deletedChs)
}

func ptr(s string) *string { return &s }

func TestProfileService_Update(t *testing.T) {
	t.Parallel()
	cur := model.Profile{ID: "u1", Username: "ann", Name: "Ann", DOB: "1990-01-01"}
	f := &fakeAPI{profile: cur}
	s := NewProfileService(f)

	p, changed, err := s.Update(context.Background(), cur, ProfileEdit{Username: ptr("ann"), Name: ptr("Ann")})
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, cur, p)
	require.Empty(t, f.updates)

	p, changed, err = s.Update(context.Background(), cur, ProfileEdit{Username: ptr("ann"), Name: ptr("Annie")})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "Annie", p.Name)
	require.Len(t, f.updates, 1)
	require.Nil(t, f.updates[0].Username)
	require.Nil(t, f.updates[0].DOB)
	require.Equal(t, "Annie", *f.updates[0].Name)

	_, _, err = s.Update(context.Background(), cur, ProfileEdit{DOB: ptr("01/02/1990")})
	require.ErrorIs(t, err, errs.ErrValidation)
	_, _, err = s.Update(context.Background(), cur, ProfileEdit{Username: ptr("")})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Len(t, f.updates, 1)
}

func TestProfileService_ChangePassword(t *testing.T) {
	t.Parallel()
	f := &fakeAPI{}
	s := NewProfileService(f)
	ctx := context.Background()

	for _, tc := range []struct{ old, nw, confirm, msg string }{
		{"", "longenough", "longenough", "required"},
		{"old", "longenough", "different1", "do not match"},
		{"old", "short", "short", "at least 8"},
	} {
		err := s.ChangePassword(ctx, tc.old, tc.nw, tc.confirm)
		require.ErrorIs(t, err, errs.ErrValidation)
		require.Contains(t, err.Error(), tc.msg)
	}
	require.Empty(t, f.passwords)

	require.NoError(t, s.ChangePassword(ctx, "old", "longenough", "longenough"))
	require.Equal(t, [][2]string{{"old", "longenough"}}, f.passwords)
}

func TestAuthService(t *testing.T) {
	t.Parallel()
	f := &fakeAPI{loginToken: "tok"}
	st := session.NewMemoryStore("")
	s := NewAuthService(f, st, nil)
	ctx := context.Background()

	require.ErrorIs(t, s.Signup(ctx, api.SignupRequest{Name: "A"}), errs.ErrValidation)
	require.ErrorIs(t, s.Signup(ctx, api.SignupRequest{Name: "A", Username: "a", Email: "nope", Password: "p"}), errs.ErrValidation)
	require.NoError(t, s.Signup(ctx, api.SignupRequest{Name: " A ", Username: "a", Email: "a@x.io", Password: "p", DOB: ptr(" ")}))
	require.Equal(t, "A", f.signups[0].Name)
	require.Nil(t, f.signups[0].DOB)

	require.ErrorIs(t, s.Login(ctx, "", "p"), errs.ErrValidation)
	require.NoError(t, s.Login(ctx, "a", "p"))
	require.True(t, session.HasToken(st))

	require.NoError(t, s.Logout())
	require.False(t, session.HasToken(st))

	require.ErrorIs(t, s.CompleteOAuth("http://localhost/auth/google/callback"), errs.ErrValidation)
	require.NoError(t, s.CompleteOAuth("http://localhost/auth/google/callback?token=xyz"))
	sess, err := st.Load()
	require.NoError(t, err)
	require.Equal(t, "xyz", sess.AccessToken)
	require.Equal(t, "http://api/auth/google/login", s.GoogleLoginURL())

	f.loginErr = &api.APIError{Status: 401, Kind: api.KindUnauthorized, Message: "Incorrect username or password"}
	require.ErrorIs(t, s.Login(ctx, "a", "bad"), errs.ErrUnauthorized)
}
