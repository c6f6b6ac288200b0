// Package store is the persistence layer of the stub backend. The
// in-memory implementation backs tests and quick local runs, the gorm
// one keeps accounts across restarts.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
)

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	UserByName(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id int) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	Leaderboard(ctx context.Context, limit int) ([]User, error)

	Languages(ctx context.Context) ([]Language, error)
	Problems(ctx context.Context) ([]Problem, error)
	ProblemByID(ctx context.Context, id int) (*Problem, error)

	CreateMatch(ctx context.Context, m *Match) error
	MatchByID(ctx context.Context, id string) (*Match, error)
	UpdateMatch(ctx context.Context, m *Match) error

	AppendIntegrityLog(ctx context.Context, l *IntegrityLog) error
	IntegrityCount(ctx context.Context, matchID string, userID int) (int, error)
}

// SeedLanguages are the judge languages every fresh store starts with.
func SeedLanguages() []Language {
	return []Language{
		{ID: 71, Key: "python", Name: "Python 3"},
		{ID: 62, Key: "java", Name: "Java"},
		{ID: 63, Key: "javascript", Name: "JavaScript"},
		{ID: 54, Key: "cpp", Name: "C++"},
		{ID: 60, Key: "go", Name: "Go"},
	}
}

func SeedProblems() []Problem {
	return []Problem{
		{ID: 1, Title: "Two Sum", Description: "Given an array of integers and a target, return indices of the two numbers that add up to the target.", Difficulty: "easy", TimeLimit: 2, MemoryLimit: 128},
		{ID: 2, Title: "Reverse Linked List", Description: "Reverse a singly linked list and return the new head.", Difficulty: "easy", TimeLimit: 2, MemoryLimit: 128},
		{ID: 3, Title: "Longest Substring Without Repeating Characters", Description: "Find the length of the longest substring without repeating characters.", Difficulty: "medium", TimeLimit: 3, MemoryLimit: 256},
		{ID: 4, Title: "Merge K Sorted Lists", Description: "Merge k sorted linked lists into one sorted list.", Difficulty: "hard", TimeLimit: 5, MemoryLimit: 256},
	}
}
