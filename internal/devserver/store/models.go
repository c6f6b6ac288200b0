package store

import "time"

type User struct {
	ID                  int    `gorm:"primaryKey"`
	Username            string `gorm:"uniqueIndex;size:64"`
	Email               string `gorm:"size:255"`
	PasswordHash        []byte
	Rating              int `gorm:"default:1000"`
	Wins                int
	Losses              int
	Draws               int
	Streak              int
	PreferredLanguage   string `gorm:"size:32"`
	PreferredDifficulty string `gorm:"size:16"`
	CreatedAt           time.Time
}

type Language struct {
	ID   int    `gorm:"primaryKey"`
	Key  string `gorm:"uniqueIndex;size:32"`
	Name string `gorm:"size:64"`
}

type Problem struct {
	ID          int    `gorm:"primaryKey"`
	Title       string `gorm:"size:255"`
	Description string
	Difficulty  string `gorm:"size:16"`
	TimeLimit   int
	MemoryLimit int
}

type Match struct {
	ID        string `gorm:"primaryKey;size:36"`
	Player1ID int
	Player2ID int
	ProblemID int
	Status    string `gorm:"size:16"` // active | finished
	WinnerID  int
	CreatedAt time.Time
}

type IntegrityLog struct {
	ID        int    `gorm:"primaryKey"`
	MatchID   string `gorm:"index;size:36"`
	UserID    int    `gorm:"index"`
	LogType   string `gorm:"size:32"`
	Details   string
	CreatedAt time.Time
}
