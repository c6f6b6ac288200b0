// Package gateway owns the lifecycle of the real-time channels. One
// logical scope (dashboard, battle:<matchID>) maps to at most one live
// connection; opening a scope again closes the previous connection
// first. There is no automatic reconnect: a dropped channel stays
// closed until the owning page re-opens it on next entry.
package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/auth"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

// Scope identifies a logical channel.
type Scope string

const ScopeDashboard Scope = "dashboard"

func BattleScope(matchID string) Scope { return Scope("battle:" + matchID) }

// Path maps a scope to its websocket endpoint.
func (s Scope) Path() string {
	if s == ScopeDashboard {
		return "/ws/dashboard/"
	}
	return "/ws/battle/" + string(s[len("battle:"):]) + "/"
}

// Handler receives every decoded inbound event, in arrival order.
type Handler func(ev protocol.Event)

type Gateway struct {
	baseURL   string
	tokens    *auth.Store
	keepAlive time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	channels map[Scope]*Channel
}

func New(wsBaseURL string, tokens *auth.Store, keepAlive time.Duration, log *zap.Logger) *Gateway {
	return &Gateway{
		baseURL:   wsBaseURL,
		tokens:    tokens,
		keepAlive: keepAlive,
		log:       log,
		channels:  make(map[Scope]*Channel),
	}
}

// Open dials the channel for scope, closing any previous channel on
// the same scope first. The access token rides on the connection URL.
func (g *Gateway) Open(ctx context.Context, scope Scope, h Handler) (*Channel, error) {
	token := g.tokens.Access()
	if token == "" {
		return nil, ErrNoCredentials
	}

	g.mu.Lock()
	if prev := g.channels[scope]; prev != nil {
		g.log.Info("closing stacked channel before reopen", zap.String("scope", string(scope)))
		delete(g.channels, scope)
		g.mu.Unlock()
		prev.Close()
		g.mu.Lock()
	}
	g.mu.Unlock()

	target := g.baseURL + scope.Path() + "?token=" + url.QueryEscape(token)
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s channel: %w", scope, err)
	}

	ch := newChannel(scope, conn, g.keepAlive, h, g.log.With(zap.String("scope", string(scope))))
	ch.onClosed = func() { g.forget(scope, ch) }

	g.mu.Lock()
	g.channels[scope] = ch
	g.mu.Unlock()

	ch.start()
	return ch, nil
}

// Send queues a message on the live channel for scope. Dropped when
// the scope has no live channel.
func (g *Gateway) Send(scope Scope, m protocol.Outbound) {
	g.mu.Lock()
	ch := g.channels[scope]
	g.mu.Unlock()
	if ch != nil {
		ch.Send(m)
	}
}

// Close shuts the channel for scope, if any. Idempotent.
func (g *Gateway) Close(scope Scope) {
	g.mu.Lock()
	ch := g.channels[scope]
	delete(g.channels, scope)
	g.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}

// CloseAll tears down every live channel (logout, shutdown).
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	chans := make([]*Channel, 0, len(g.channels))
	for _, ch := range g.channels {
		chans = append(chans, ch)
	}
	g.channels = make(map[Scope]*Channel)
	g.mu.Unlock()
	for _, ch := range chans {
		ch.Close()
	}
}

func (g *Gateway) forget(scope Scope, ch *Channel) {
	g.mu.Lock()
	if g.channels[scope] == ch {
		delete(g.channels, scope)
	}
	g.mu.Unlock()
}
