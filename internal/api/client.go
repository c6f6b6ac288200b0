// Package api is the REST client for the backend. Every request
// carries the bearer token from the auth store; a 401 on anything but
// the token endpoint clears the stored tokens and reports
// ErrSessionExpired, which callers treat as a forced logout.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/auth"
)

var ErrSessionExpired = errors.New("session expired")

type Client struct {
	base   string
	http   *http.Client
	tokens *auth.Store
	log    *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens *auth.Store, log *zap.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
		log:    log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Access(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// A 401 on the token endpoint is just bad credentials, not an
	// expired session.
	if resp.StatusCode == http.StatusUnauthorized && path != "/api/token/" {
		c.log.Warn("token rejected, clearing session", zap.String("path", path))
		c.tokens.Clear()
		return ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		if detail.Detail != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, detail.Detail, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	err := c.do(ctx, http.MethodPost, "/api/token/", Credentials{Username: username, Password: password}, &pair)
	if err != nil {
		return TokenPair{}, err
	}
	c.tokens.Set(pair.Access, pair.Refresh)
	return pair, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "/api/register/", reg, nil)
}

func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "/api/profile/", nil, &p)
	return p, err
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.do(ctx, http.MethodGet, "/api/stats/", nil, &s)
	return s, err
}

func (c *Client) PlayerStats(ctx context.Context, playerID int) (Stats, error) {
	var s Stats
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/stats/%d/", playerID), nil, &s)
	return s, err
}

func (c *Client) Leaderboard(ctx context.Context) ([]Player, error) {
	var players []Player
	err := c.do(ctx, http.MethodGet, "/api/leaderboard/", nil, &players)
	return players, err
}

func (c *Client) OnlinePlayers(ctx context.Context, search string) ([]Player, error) {
	path := "/api/online-players/"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var players []Player
	err := c.do(ctx, http.MethodGet, path, nil, &players)
	return players, err
}

func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	var langs []Language
	err := c.do(ctx, http.MethodGet, "/api/languages/", nil, &langs)
	return langs, err
}

func (c *Client) Match(ctx context.Context, matchID string) (Match, error) {
	var m Match
	err := c.do(ctx, http.MethodGet, "/api/matches/"+url.PathEscape(matchID)+"/", nil, &m)
	return m, err
}

func (c *Client) SavePreferences(ctx context.Context, prefs Preferences) error {
	return c.do(ctx, http.MethodPost, "/api/preferences/", prefs, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout/", nil, nil)
}

// LogIntegrity reports one anti-cheat signal. Failures are logged and
// swallowed: integrity reporting is fire-and-forget and must never
// disturb the battle session.
func (c *Client) LogIntegrity(ctx context.Context, matchID, kind, details string) {
	err := c.do(ctx, http.MethodPost, "/api/anti-cheat/log/", antiCheatLog{
		MatchID: matchID,
		LogType: kind,
		Details: details,
	}, nil)
	if err != nil {
		c.log.Warn("anti-cheat report failed",
			zap.String("match_id", matchID),
			zap.String("kind", kind),
			zap.Error(err))
	}
}
