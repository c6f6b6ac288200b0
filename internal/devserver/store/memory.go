package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps everything in maps behind one mutex. Good enough
// for tests and single-process dev runs.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[int]*User
	byName    map[string]int
	languages []Language
	problems  []Problem
	matches   map[string]*Match
	logs      []IntegrityLog
	nextUser  int
	nextLog   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int]*User),
		byName:    make(map[string]int),
		languages: SeedLanguages(),
		problems:  SeedProblems(),
		matches:   make(map[string]*Match),
		nextUser:  1,
		nextLog:   1,
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, ok := s.byName[key]; ok {
		return ErrDuplicate
	}
	u.ID = s.nextUser
	s.nextUser++
	if u.Rating == 0 {
		u.Rating = 1000
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	s.byName[key] = u.ID
	return nil
}

func (s *MemoryStore) UserByName(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) UserByID(_ context.Context, id int) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, limit int) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Languages(_ context.Context) ([]Language, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Language(nil), s.languages...), nil
}

func (s *MemoryStore) Problems(_ context.Context) ([]Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Problem(nil), s.problems...), nil
}

func (s *MemoryStore) ProblemByID(_ context.Context, id int) (*Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.problems {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateMatch(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return ErrDuplicate
	}
	m.CreatedAt = time.Now()
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *MemoryStore) MatchByID(_ context.Context, id string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) UpdateMatch(_ context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; !ok {
		return ErrNotFound
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *MemoryStore) AppendIntegrityLog(_ context.Context, l *IntegrityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextLog
	s.nextLog++
	l.CreatedAt = time.Now()
	s.logs = append(s.logs, *l)
	return nil
}

func (s *MemoryStore) IntegrityCount(_ context.Context, matchID string, userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.logs {
		if l.MatchID == matchID && l.UserID == userID {
			n++
		}
	}
	return n, nil
}
