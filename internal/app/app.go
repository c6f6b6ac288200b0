// Package app wires the pages together: route guarding, page entry and
// teardown, and the per-visit ownership of channels, coordinator, and
// battle session. All mutable page state lives in page objects built
// on entry and discarded on teardown.
package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/auth"
	"github.com/codeduel-live/arena-client/internal/battle"
	"github.com/codeduel-live/arena-client/internal/config"
	"github.com/codeduel-live/arena-client/internal/coordinator"
	"github.com/codeduel-live/arena-client/internal/gateway"
	"github.com/codeduel-live/arena-client/internal/integrity"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

var ErrMissingMatchID = errors.New("match not found: missing match id")

type Route string

const (
	RouteLogin      Route = "/login"
	RouteRegister   Route = "/register"
	RouteDashboard  Route = "/dashboard"
	RouteBattleRoom Route = "/battle-room"
)

// Guard applies the routing rules: authenticated users are kept off
// the auth pages, unauthenticated users are forced to login.
func Guard(authenticated bool, r Route) Route {
	if authenticated {
		if r == RouteLogin || r == RouteRegister {
			return RouteDashboard
		}
		return r
	}
	if r == RouteLogin || r == RouteRegister {
		return r
	}
	return RouteLogin
}

// UI is everything the pages render into. Battle output shares the
// same surface.
type UI interface {
	battle.Presenter
	DashboardData(profile api.Profile, stats api.Stats, leaderboard, online []api.Player)
	PlayerList(players []api.Player)
	ChallengePrompt(challenger protocol.Player)
	ChallengeState(s coordinator.State)
}

type App struct {
	cfg     *config.Config
	api     *api.Client
	tokens  *auth.Store
	gw      *gateway.Gateway
	monitor *integrity.Monitor
	ui      UI
	log     *zap.Logger

	mu        sync.Mutex
	route     Route
	dashboard *DashboardPage
	battle    *BattlePage
}

func New(cfg *config.Config, client *api.Client, tokens *auth.Store, gw *gateway.Gateway, monitor *integrity.Monitor, ui UI, log *zap.Logger) *App {
	return &App{
		cfg:     cfg,
		api:     client,
		tokens:  tokens,
		gw:      gw,
		monitor: monitor,
		ui:      ui,
		log:     log,
		route:   RouteLogin,
	}
}

func (a *App) Route() Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

func (a *App) Dashboard() *DashboardPage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dashboard
}

func (a *App) Battle() *BattlePage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.battle
}

// Navigate tears down the current page and enters the target route.
// matchID only applies to the battle room.
func (a *App) Navigate(ctx context.Context, route Route, matchID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.navigateLocked(ctx, route, matchID)
}

func (a *App) navigateLocked(ctx context.Context, route Route, matchID string) error {
	route = Guard(a.tokens.Authenticated(), route)
	if route == RouteBattleRoom && matchID == "" {
		// Rejected before teardown, the current page stays up.
		return ErrMissingMatchID
	}
	a.leaveLocked()
	a.route = route

	var err error
	switch route {
	case RouteDashboard:
		a.dashboard, err = a.enterDashboard(ctx)
	case RouteBattleRoom:
		a.battle, err = a.enterBattle(ctx, matchID)
	}

	if errors.Is(err, api.ErrSessionExpired) {
		// Forced logout: clear pages and land on login.
		a.log.Warn("session expired during navigation")
		a.leaveLocked()
		a.route = RouteLogin
		return nil
	}
	return err
}

func (a *App) leaveLocked() {
	if a.dashboard != nil {
		a.dashboard.Leave()
		a.dashboard = nil
	}
	if a.battle != nil {
		a.battle.Leave()
		a.battle = nil
	}
}

// Register creates the account. The caller still logs in afterwards.
func (a *App) Register(ctx context.Context, username, email, password string) error {
	return a.api.Register(ctx, api.Registration{
		Username:  username,
		Email:     email,
		Password:  password,
		Password2: password,
	})
}

// Login authenticates and lands on the dashboard.
func (a *App) Login(ctx context.Context, username, password string) error {
	if _, err := a.api.Login(ctx, username, password); err != nil {
		return err
	}
	return a.Navigate(ctx, RouteDashboard, "")
}

// Logout ends the session: the server call is best-effort, local state
// always resets.
func (a *App) Logout(ctx context.Context) {
	if err := a.api.Logout(ctx); err != nil && !errors.Is(err, api.ErrSessionExpired) {
		a.log.Warn("logout request failed", zap.Error(err))
	}
	a.tokens.Clear()
	a.gw.CloseAll()
	_ = a.Navigate(ctx, RouteLogin, "")
}
