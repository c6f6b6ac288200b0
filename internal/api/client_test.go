package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/auth"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *auth.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := auth.NewStore()
	return NewClient(srv.URL, 2*time.Second, tokens, zap.NewNop()), tokens
}

func TestLogin_StoresTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "alice", creds.Username)
		json.NewEncoder(w).Encode(TokenPair{Access: "acc", Refresh: "ref"})
	})

	c, tokens := newTestClient(t, mux)
	pair, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, "acc", pair.Access)
	require.Equal(t, "acc", tokens.Access())
	require.True(t, tokens.Authenticated())
}

func TestDo_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/profile/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Profile{ID: 1, Username: "alice"})
	})

	c, tokens := newTestClient(t, mux)
	tokens.Set("tok-123", "")

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", p.Username)
	require.Equal(t, "Bearer tok-123", gotAuth)
}

func TestDo_401ClearsTokensAndReportsExpiry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c, tokens := newTestClient(t, mux)
	tokens.Set("stale", "")

	_, err := c.Stats(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, tokens.Authenticated())
}

func TestLogin_401IsNotSessionExpiry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "bad credentials"})
	})

	c, _ := newTestClient(t, mux)
	_, err := c.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionExpired)
}

func TestOnlinePlayers_SearchQuery(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/online-players/", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search")
		json.NewEncoder(w).Encode([]Player{{ID: 2, Username: "bob"}})
	})

	c, _ := newTestClient(t, mux)
	players, err := c.OnlinePlayers(context.Background(), "bo b")
	require.NoError(t, err)
	require.Len(t, players, 1)
	require.Equal(t, "bo b", gotQuery)
}

func TestLogIntegrity_SwallowsFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/anti-cheat/log/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c, _ := newTestClient(t, mux)
	// Must not panic or surface anything.
	c.LogIntegrity(context.Background(), "m1", "PASTE_ACTION", "pasted once")
}

func TestDo_NoContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/logout/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c, _ := newTestClient(t, mux)
	require.NoError(t, c.Logout(context.Background()))
}
