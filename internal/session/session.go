// Package session stores the bearer token that authenticates API calls.
//
// The token is the only credential the client keeps. It is written on login,
// OAuth callback and profile updates that re-issue it, read on every request and
// cleared on logout or when the server answers 401.
package session

import (
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/fastcite/internal/errs"
)

// DefaultTTL applies to opaque tokens that carry no exp claim.
const DefaultTTL = 24 * time.Hour

// Session is the locally stored credential.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token is present and not expired at now.
func (s Session) Valid(now time.Time) bool {
	return s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// FromToken builds a Session, taking the expiry from the JWT exp claim when the
// token is a JWT. The signature is not verified; the server does that.
func FromToken(tok string) Session {
	tok = strings.TrimSpace(tok)
	exp := time.Now().Add(DefaultTTL)
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err == nil && claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return Session{AccessToken: tok, ExpiresAt: exp}
}

// TokenFromCallback extracts the token query parameter of an OAuth redirect
// such as http://host/auth/google/callback?token=...
func TokenFromCallback(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	tok := u.Query().Get("token")
	if tok == "" {
		return "", errors.New("callback url has no token")
	}
	return tok, nil
}

// Store is the single read/write/clear interface for the session.
type Store interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`

	// written by older builds; read-only
	LegacyToken string `json:"accessToken,omitempty"`
}

// FileStore keeps the session in <dir>/token.json.
type FileStore struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

// Path returns the token file location.
func (f *FileStore) Path() string { return filepath.Join(f.dir, "token.json") }

// Load returns the stored session or errs.ErrNoSession when absent or expired.
func (f *FileStore) Load() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, errs.ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return Session{}, err
	}
	tok := tf.AccessToken
	if tok == "" {
		tok = tf.LegacyToken
	}
	s := Session{AccessToken: tok, ExpiresAt: tf.ExpiresAt}
	if s.ExpiresAt.IsZero() && tok != "" {
		s = FromToken(tok)
	}
	if !s.Valid(f.now()) {
		return Session{}, errs.ErrNoSession
	}
	return s, nil
}

// Save writes the session with owner-only permissions.
func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tokenFile{AccessToken: s.AccessToken, ExpiresAt: s.ExpiresAt}, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path())
}

// Clear removes the stored session. Clearing an absent session is not an error.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// HasToken reports whether a usable token is stored.
func HasToken(st Store) bool {
	_, err := st.Load()
	return err == nil
}

// MemoryStore keeps the session in memory; used by tests and one-shot runs
// that must not touch the token file.
type MemoryStore struct {
	mu sync.Mutex
	s  Session
}

// NewMemoryStore returns a store holding tok (empty for logged out).
func NewMemoryStore(tok string) *MemoryStore {
	m := &MemoryStore{}
	if tok != "" {
		m.s = FromToken(tok)
	}
	return m
}

func (m *MemoryStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.s.Valid(time.Now()) {
		return Session{}, errs.ErrNoSession
	}
	return m.s, nil
}

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = Session{}
	return nil
}
