package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the client and the stub backend read from
// the environment. Durations are plumbed through so tests can shrink
// the visible countdowns.
type Config struct {
	APIBaseURL string
	WSBaseURL  string

	RequestTimeout    time.Duration
	KeepAliveInterval time.Duration

	ChallengeCountdown  time.Duration
	MatchStartCountdown time.Duration
	ResultDisplayDelay  time.Duration

	DevListenAddr string
	DatabaseDSN   string // empty means in-memory store
}

func Default() *Config {
	return &Config{
		APIBaseURL:          "http://127.0.0.1:8000",
		WSBaseURL:           "ws://127.0.0.1:8000",
		RequestTimeout:      8 * time.Second,
		KeepAliveInterval:   10 * time.Second,
		ChallengeCountdown:  10 * time.Second,
		MatchStartCountdown: 3 * time.Second,
		ResultDisplayDelay:  5 * time.Second,
		DevListenAddr:       ":8000",
	}
}

// Load reads a .env file if present, then environment overrides.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.APIBaseURL = getEnv("ARENA_API_BASE_URL", cfg.APIBaseURL)
	cfg.WSBaseURL = getEnv("ARENA_WS_BASE_URL", cfg.WSBaseURL)
	cfg.DevListenAddr = getEnv("ARENA_DEV_LISTEN_ADDR", cfg.DevListenAddr)
	cfg.DatabaseDSN = getEnv("ARENA_DATABASE_DSN", cfg.DatabaseDSN)

	cfg.RequestTimeout = getDuration("ARENA_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.KeepAliveInterval = getDuration("ARENA_KEEPALIVE_INTERVAL", cfg.KeepAliveInterval)
	cfg.ChallengeCountdown = getDuration("ARENA_CHALLENGE_COUNTDOWN", cfg.ChallengeCountdown)
	cfg.MatchStartCountdown = getDuration("ARENA_MATCH_START_COUNTDOWN", cfg.MatchStartCountdown)
	cfg.ResultDisplayDelay = getDuration("ARENA_RESULT_DISPLAY_DELAY", cfg.ResultDisplayDelay)

	return cfg
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API base URL cannot be empty")
	}
	if c.WSBaseURL == "" {
		return fmt.Errorf("websocket base URL cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.KeepAliveInterval <= 0 {
		return fmt.Errorf("keep-alive interval must be positive")
	}
	if c.ChallengeCountdown <= 0 {
		return fmt.Errorf("challenge countdown must be positive")
	}
	if c.MatchStartCountdown <= 0 {
		return fmt.Errorf("match start countdown must be positive")
	}
	if c.ResultDisplayDelay <= 0 {
		return fmt.Errorf("result display delay must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
