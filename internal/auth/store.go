// Package auth keeps the bearer tokens for the current login. The API
// client and the session gateway both read through the same store, so
// a 401-triggered Clear is immediately visible to both.
package auth

import "sync"

type Store struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewStore() *Store { return &Store{} }

func (s *Store) Set(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

func (s *Store) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) Refresh() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != ""
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}
