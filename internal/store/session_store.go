// Package store holds the client-side state containers. Each store is an
// explicit, constructor-injected instance (no package-level singletons);
// the UI layer owns exactly one of each per application context.
package store

import (
	"context"
	"sync"

	"bakehouse/internal/api"
	"bakehouse/internal/device"
	"bakehouse/internal/domain"
	applog "bakehouse/internal/log"
)

// SessionStore tracks the authenticated user and bearer token. With no
// session present the application runs in guest mode; guest data on the
// device is owned by GuestRepo and survives login/logout.
type SessionStore struct {
	mu    sync.Mutex
	repo  *device.SessionRepo
	user  *domain.User
	token string
}

// NewSessionStore restores any short-lived persisted session.
func NewSessionStore(repo *device.SessionRepo) *SessionStore {
	s := &SessionStore{repo: repo}
	if u, tok, ok, err := repo.Load(); err == nil && ok {
		s.user = &u
		s.token = tok
	} else if err != nil {
		applog.Error("session.restore", err, nil)
	}
	return s
}

// Token implements api.TokenSource. Empty string means guest.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SessionStore) User() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *SessionStore) Authenticated() bool {
	_, ok := s.User()
	return ok
}

func (s *SessionStore) Login(ctx context.Context, c *api.Client, creds api.Credentials) (domain.User, error) {
	u, tok, err := c.Login(ctx, creds)
	if err != nil {
		return domain.User{}, err
	}
	s.set(u, tok)
	applog.Audit("session.login", map[string]any{"user": u.ID, "role": u.Role})
	return u, nil
}

func (s *SessionStore) Register(ctx context.Context, c *api.Client, reg api.Registration) (domain.User, error) {
	u, tok, err := c.Register(ctx, reg)
	if err != nil {
		return domain.User{}, err
	}
	s.set(u, tok)
	applog.Audit("session.register", map[string]any{"user": u.ID})
	return u, nil
}

func (s *SessionStore) set(u domain.User, token string) {
	s.mu.Lock()
	s.user = &u
	s.token = token
	s.mu.Unlock()
	if err := s.repo.Save(u, token); err != nil {
		applog.Error("session.persist", err, nil)
	}
}

// Clear drops the in-memory user and token and the persisted session
// row. Guest orders on the device are deliberately untouched. Also the
// handler wired to the API client's 401 hook.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()
	if err := s.repo.Clear(); err != nil {
		applog.Error("session.clear", err, nil)
	}
}
