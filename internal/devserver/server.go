// Package devserver is a self-contained backend stub: the whole HTTP
// and websocket surface the client talks to, backed by a pluggable
// store and a heuristic judge. It exists for integration tests and
// offline development, not production play.
package devserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/devserver/store"
)

type Server struct {
	repo     store.Repository
	sessions *Sessions
	hub      *Hub
	judge    *Judge
	log      *zap.Logger
}

func New(parent context.Context, repo store.Repository, log *zap.Logger) (*Server, error) {
	problems, err := repo.Problems(parent)
	if err != nil {
		return nil, err
	}
	s := &Server{
		repo:     repo,
		sessions: NewSessions(),
		log:      log,
	}
	s.judge = NewJudge(problems, 1)
	s.hub = NewHub(parent, repo, s.judge, log.Named("hub"))
	return s, nil
}

func (s *Server) Stop() { s.hub.Stop() }

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)

	r.Post("/api/register/", s.handleRegister)
	r.Post("/api/token/", s.handleToken)
	r.Post("/api/token/refresh/", s.handleTokenRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/api/logout/", s.handleLogout)
		r.Get("/api/profile/", s.handleProfile)
		r.Get("/api/stats/", s.handleStats)
		r.Get("/api/stats/{playerID}/", s.handlePlayerStats)
		r.Get("/api/leaderboard/", s.handleLeaderboard)
		r.Get("/api/online-players/", s.handleOnlinePlayers)
		r.Get("/api/languages/", s.handleLanguages)
		r.Get("/api/matches/{matchID}/", s.handleMatch)
		r.Post("/api/preferences/", s.handlePreferences)
		r.Post("/api/anti-cheat/log/", s.handleIntegrityLog)
	})

	// Channel auth rides the token query param, not the header.
	r.Get("/ws/dashboard/", s.handleDashboardWS)
	r.Get("/ws/battle/{matchID}/", s.handleBattleWS)

	return r
}
