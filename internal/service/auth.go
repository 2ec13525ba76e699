// Package service contains the client-side application services: the flows
// behind each view, built on the API client and the session store.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/session"
)

// AuthService defines account and session operations.
type AuthService interface {
	// Signup creates an account; the caller logs in afterwards.
	Signup(ctx context.Context, r api.SignupRequest) error
	// Login exchanges credentials for a token and stores it.
	Login(ctx context.Context, username, password string) error
	// Logout forgets the stored token.
	Logout() error
	// GoogleLoginURL is where the OAuth handoff starts.
	GoogleLoginURL() string
	// CompleteOAuth stores the token carried by the OAuth callback URL.
	CompleteOAuth(callbackURL string) error
}

type AuthServiceImpl struct {
	api      AuthAPI
	sessions session.Store
	log      *zap.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(a AuthAPI, sessions session.Store, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{api: a, sessions: sessions, log: log}
}

// Signup validates the required fields before calling the server.
func (s *AuthServiceImpl) Signup(ctx context.Context, r api.SignupRequest) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if r.Name == "" || r.Username == "" || r.Email == "" || r.Password == "" {
		return fmt.Errorf("%w: name, username, email and password are required", errs.ErrValidation)
	}
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("%w: invalid email", errs.ErrValidation)
	}
	if r.DOB != nil && strings.TrimSpace(*r.DOB) == "" {
		r.DOB = nil
	}
	return s.api.Signup(ctx, r)
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", errs.ErrValidation)
	}
	tok, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("login: empty access token")
	}
	s.log.Debug("logged in", zap.String("username", username))
	return s.sessions.Save(session.FromToken(tok.AccessToken))
}

func (s *AuthServiceImpl) Logout() error { return s.sessions.Clear() }

func (s *AuthServiceImpl) GoogleLoginURL() string { return s.api.GoogleLoginURL() }

func (s *AuthServiceImpl) CompleteOAuth(callbackURL string) error {
	tok, err := session.TokenFromCallback(callbackURL)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return s.sessions.Save(session.FromToken(tok))
}
