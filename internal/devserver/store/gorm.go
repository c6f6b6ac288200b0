package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists to postgres. Schema is migrated and seed rows
// inserted on open.
type GormStore struct {
	db *gorm.DB
}

func OpenGorm(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Language{}, &Problem{}, &Match{}, &IntegrityLog{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	seed := db.Clauses(clause.OnConflict{DoNothing: true})
	langs, problems := SeedLanguages(), SeedProblems()
	if err := seed.Create(&langs).Error; err != nil {
		return nil, fmt.Errorf("seed languages: %w", err)
	}
	if err := seed.Create(&problems).Error; err != nil {
		return nil, fmt.Errorf("seed problems: %w", err)
	}
	return &GormStore{db: db}, nil
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) CreateUser(ctx context.Context, u *User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	return mapErr(err)
}

func (s *GormStore) UserByName(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("lower(username) = lower(?)", username).First(&u).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *GormStore) UserByID(ctx context.Context, id int) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, u *User) error {
	return mapErr(s.db.WithContext(ctx).Save(u).Error)
}

func (s *GormStore) Leaderboard(ctx context.Context, limit int) ([]User, error) {
	var users []User
	q := s.db.WithContext(ctx).Order("rating desc, username asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, mapErr(err)
	}
	return users, nil
}

func (s *GormStore) Languages(ctx context.Context) ([]Language, error) {
	var langs []Language
	if err := s.db.WithContext(ctx).Order("id").Find(&langs).Error; err != nil {
		return nil, mapErr(err)
	}
	return langs, nil
}

func (s *GormStore) Problems(ctx context.Context) ([]Problem, error) {
	var problems []Problem
	if err := s.db.WithContext(ctx).Order("id").Find(&problems).Error; err != nil {
		return nil, mapErr(err)
	}
	return problems, nil
}

func (s *GormStore) ProblemByID(ctx context.Context, id int) (*Problem, error) {
	var p Problem
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *GormStore) CreateMatch(ctx context.Context, m *Match) error {
	return mapErr(s.db.WithContext(ctx).Create(m).Error)
}

func (s *GormStore) MatchByID(ctx context.Context, id string) (*Match, error) {
	var m Match
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (s *GormStore) UpdateMatch(ctx context.Context, m *Match) error {
	return mapErr(s.db.WithContext(ctx).Save(m).Error)
}

func (s *GormStore) AppendIntegrityLog(ctx context.Context, l *IntegrityLog) error {
	return mapErr(s.db.WithContext(ctx).Create(l).Error)
}

func (s *GormStore) IntegrityCount(ctx context.Context, matchID string, userID int) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&IntegrityLog{}).
		Where("match_id = ? AND user_id = ?", matchID, userID).
		Count(&n).Error
	if err != nil {
		return 0, mapErr(err)
	}
	return int(n), nil
}
