package api

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type Profile struct {
	ID                  int    `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email,omitempty"`
	Rating              int    `json:"rating"`
	GlobalRank          int    `json:"global_rank,omitempty"`
	PreferredLanguage   string `json:"preferred_language,omitempty"`
	PreferredDifficulty string `json:"preferred_difficulty,omitempty"`
}

type Stats struct {
	Rating        int     `json:"rating"`
	Rank          string  `json:"rank,omitempty"`
	GlobalRank    int     `json:"global_rank,omitempty"`
	TotalBattles  int     `json:"total_battles"`
	WinRate       float64 `json:"win_rate"`
	CurrentStreak int     `json:"current_streak"`
}

type Player struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

type Language struct {
	ID   int    `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type Problem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	TimeLimit   int    `json:"timeLimit"`
	MemoryLimit int    `json:"memoryLimit"`
}

type Participant struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

type Match struct {
	ID      string      `json:"id"`
	Player1 Participant `json:"player1"`
	Player2 Participant `json:"player2"`
	Problem Problem     `json:"problem"`
}

type Preferences struct {
	PreferredLanguage   string `json:"preferred_language"`
	PreferredDifficulty string `json:"preferred_difficulty"`
}

type antiCheatLog struct {
	MatchID string `json:"match_id"`
	LogType string `json:"log_type"`
	Details string `json:"details"`
}
