package devserver

import (
	"sync"

	"github.com/google/uuid"
)

// Sessions maps issued bearer tokens to users. Opaque random tokens,
// no expiry: dev sessions live until logout or restart.
type Sessions struct {
	mu      sync.Mutex
	access  map[string]int
	refresh map[string]int
}

func NewSessions() *Sessions {
	return &Sessions{
		access:  make(map[string]int),
		refresh: make(map[string]int),
	}
}

func (s *Sessions) Issue(userID int) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	access, refresh = uuid.NewString(), uuid.NewString()
	s.access[access] = userID
	s.refresh[refresh] = userID
	return access, refresh
}

func (s *Sessions) UserFor(access string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.access[access]
	return id, ok
}

// Rotate exchanges a refresh token for a new access token.
func (s *Sessions) Rotate(refresh string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refresh[refresh]
	if !ok {
		return "", false
	}
	access := uuid.NewString()
	s.access[access] = id
	return access, true
}

// RevokeUser drops every token the user holds.
func (s *Sessions) RevokeUser(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, id := range s.access {
		if id == userID {
			delete(s.access, t)
		}
	}
	for t, id := range s.refresh {
		if id == userID {
			delete(s.refresh, t)
		}
	}
}
