package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/devserver/store"
)

type ctxKey int

const userKey ctxKey = 0

func (s *Server) currentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(userKey).(*store.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, struct {
		Detail string `json:"detail"`
	}{detail})
}

// requireAuth resolves the bearer token to a user or rejects with 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		userID, ok := s.sessions.UserFor(token)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		u, err := s.repo.UserByID(r.Context(), userID)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "User no longer exists.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg api.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if reg.Username == "" || reg.Password == "" {
		writeDetail(w, http.StatusBadRequest, "username and password are required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "hashing failed")
		return
	}
	u := &store.User{Username: reg.Username, Email: reg.Email, PasswordHash: hash}
	if err := s.repo.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeDetail(w, http.StatusBadRequest, "A user with that username already exists.")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "could not create user")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	u, err := s.repo.UserByName(r.Context(), creds.Username)
	if err != nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(creds.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	access, refresh := s.sessions.Issue(u.ID)
	writeJSON(w, http.StatusOK, api.TokenPair{Access: access, Refresh: refresh})
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	access, ok := s.sessions.Rotate(body.Refresh)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Access string `json:"access"`
	}{access})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(r)
	s.sessions.RevokeUser(u.ID)
	w.WriteHeader(http.StatusNoContent)
}

func profileOf(u *store.User) api.Profile {
	return api.Profile{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		Rating:              u.Rating,
		PreferredLanguage:   u.PreferredLanguage,
		PreferredDifficulty: u.PreferredDifficulty,
	}
}

func statsOf(u *store.User) api.Stats {
	total := u.Wins + u.Losses + u.Draws
	var winRate float64
	if total > 0 {
		winRate = float64(u.Wins) / float64(total)
	}
	return api.Stats{
		Rating:        u.Rating,
		TotalBattles:  total,
		WinRate:       winRate,
		CurrentStreak: u.Streak,
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profileOf(s.currentUser(r)))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsOf(s.currentUser(r)))
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid player id")
		return
	}
	u, err := s.repo.UserByID(r.Context(), id)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, statsOf(u))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.Leaderboard(r.Context(), 50)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	players := make([]api.Player, len(users))
	for i, u := range users {
		players[i] = api.Player{ID: u.ID, Username: u.Username, Rating: u.Rating}
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleOnlinePlayers(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(r)
	reply := make(chan []PlayerInfo, 1)
	s.hub.Inbox() <- OnlineUsers{Search: r.URL.Query().Get("search"), Exclude: u.ID, Reply: reply}
	online := <-reply
	players := make([]api.Player, len(online))
	for i, p := range online {
		players[i] = api.Player{ID: p.ID, Username: p.Username, Rating: p.Rating}
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.repo.Languages(r.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "languages unavailable")
		return
	}
	out := make([]api.Language, len(langs))
	for i, l := range langs {
		out[i] = api.Language{ID: l.ID, Key: l.Key, Name: l.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.repo.MatchByID(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "match not found")
		return
	}
	p1, err1 := s.repo.UserByID(r.Context(), m.Player1ID)
	p2, err2 := s.repo.UserByID(r.Context(), m.Player2ID)
	problem, err3 := s.repo.ProblemByID(r.Context(), m.ProblemID)
	if err1 != nil || err2 != nil || err3 != nil {
		writeDetail(w, http.StatusInternalServerError, "match incomplete")
		return
	}
	writeJSON(w, http.StatusOK, api.Match{
		ID:      m.ID,
		Player1: api.Participant{ID: p1.ID, Username: p1.Username, Rating: p1.Rating},
		Player2: api.Participant{ID: p2.ID, Username: p2.Username, Rating: p2.Rating},
		Problem: api.Problem{
			ID:          problem.ID,
			Title:       problem.Title,
			Description: problem.Description,
			Difficulty:  problem.Difficulty,
			TimeLimit:   problem.TimeLimit,
			MemoryLimit: problem.MemoryLimit,
		},
	})
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs api.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	u := s.currentUser(r)
	u.PreferredLanguage = prefs.PreferredLanguage
	u.PreferredDifficulty = prefs.PreferredDifficulty
	if err := s.repo.UpdateUser(r.Context(), u); err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not save preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// strikeKinds are the report types that count toward a forfeit.
// Snapshots and selections are evidence, not violations.
var strikeKinds = map[string]bool{
	"PASTE_ACTION":            true,
	"TAB_SWITCH":              true,
	"SUSPICIOUS_TYPING_SPEED": true,
}

func (s *Server) handleIntegrityLog(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MatchID string `json:"match_id"`
		LogType string `json:"log_type"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	u := s.currentUser(r)
	err := s.repo.AppendIntegrityLog(r.Context(), &store.IntegrityLog{
		MatchID: body.MatchID,
		UserID:  u.ID,
		LogType: body.LogType,
		Details: body.Details,
	})
	if err != nil {
		s.log.Error("append integrity log", zap.Error(err))
	}
	if strikeKinds[body.LogType] {
		s.hub.Inbox() <- Strike{MatchID: body.MatchID, UserID: u.ID}
	}
	w.WriteHeader(http.StatusCreated)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
