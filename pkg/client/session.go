package client

import "sync"

// Session holds the bearer token and the signed-in user. It is safe for
// concurrent use and may be shared between clients.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
}

// NewSession starts a session, optionally from a stored token.
func NewSession(token string) *Session {
	return &Session{token: token}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Set(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

func (s *Session) Clear() {
	s.Set("", nil)
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
