package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/saur-hub/watchlist/internal/shared"
)

// User is the GitHub identity behind a token.
type User struct {
	Login string
	Name  string
}

// Session is the signed-in state shared by the controller and the views.
type Session struct {
	mu    sync.RWMutex
	owner string
	token string
	user  *User
}

// New creates a signed-out session for a repository owned by owner.
func New(owner string) *Session {
	return &Session{owner: owner}
}

// SignIn records token and the identity it resolved to.
func (s *Session) SignIn(token string, user User) error {
	if token == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrMissingCredentials)
	}
	if user.Login == "" {
		return fmt.Errorf("%w: token did not resolve to a user", shared.ErrAuthFailed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
	return nil
}

// SignOut clears the credential and identity.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

func (s *Session) Owner() string {
	return s.owner
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in identity.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// CanEdit reports whether the signed-in user owns the repository. GitHub logins compare case-insensitively.
func (s *Session) CanEdit() bool {
	return s.RequireOwner() == nil
}

// RequireOwner returns [shared.ErrNotAuthenticated] or [shared.ErrNotOwner] when edits are not allowed.
func (s *Session) RequireOwner() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return shared.ErrNotAuthenticated
	}
	if !strings.EqualFold(s.user.Login, s.owner) {
		return fmt.Errorf("%w: signed in as %s, repository belongs to %s", shared.ErrNotOwner, s.user.Login, s.owner)
	}
	return nil
}
