package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/coordinator"
	"github.com/codeduel-live/arena-client/internal/gateway"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

// DashboardPage owns the dashboard channel and the challenge
// coordinator for one visit.
type DashboardPage struct {
	app       *App
	profile   api.Profile
	languages []api.Language

	channel *gateway.Channel
	coord   *coordinator.Coordinator

	leaveOnce sync.Once
}

func (a *App) enterDashboard(ctx context.Context) (*DashboardPage, error) {
	p := &DashboardPage{app: a}

	var (
		stats       api.Stats
		leaderboard []api.Player
		online      []api.Player
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p.profile, err = a.api.Profile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = a.api.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		leaderboard, err = a.api.Leaderboard(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		online, err = a.api.OnlinePlayers(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		p.languages, err = a.api.Languages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.ui.DashboardData(p.profile, stats, leaderboard, online)

	ch, err := a.gw.Open(ctx, gateway.ScopeDashboard, p.handleEvent)
	if err != nil {
		// The page still renders from the loads above, challenges
		// just stay unavailable.
		a.log.Warn("dashboard channel unavailable", zap.Error(err))
		return p, nil
	}
	p.channel = ch
	p.coord = coordinator.New(context.Background(), ch, coordinator.Hooks{
		Navigate: func(matchID string) {
			go func() {
				if err := a.Navigate(context.Background(), RouteBattleRoom, matchID); err != nil {
					a.log.Error("entering battle room failed", zap.Error(err))
					a.ui.Notice("Could not join the match.")
				}
			}()
		},
		Prompt:       a.ui.ChallengePrompt,
		Notice:       a.ui.Notice,
		StateChanged: a.ui.ChallengeState,
	}, a.cfg.ChallengeCountdown, a.cfg.MatchStartCountdown, a.log.Named("coordinator"))
	return p, nil
}

func (p *DashboardPage) handleEvent(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.PlayerList:
		players := make([]api.Player, len(e.Players))
		for i, pl := range e.Players {
			players[i] = api.Player(pl)
		}
		p.app.ui.PlayerList(players)
	case protocol.UserUpdate:
		go p.refreshPlayers()
	case protocol.MatchEnd:
		// A finished match bumps the viewer's record.
		go p.refreshStats()
	default:
		p.post(coordinator.FromChannel{Event: ev})
	}
}

// post drops messages once the coordinator has shut down, so a late
// event can never block the channel read loop.
func (p *DashboardPage) post(m coordinator.Msg) {
	if p.coord == nil {
		return
	}
	select {
	case p.coord.Inbox() <- m:
	case <-p.coord.Done():
	}
}

func (p *DashboardPage) refreshPlayers() {
	ctx, cancel := context.WithTimeout(context.Background(), p.app.cfg.RequestTimeout)
	defer cancel()
	online, err := p.app.api.OnlinePlayers(ctx, "")
	if err != nil {
		p.app.log.Warn("refreshing online players failed", zap.Error(err))
		return
	}
	p.app.ui.PlayerList(online)
}

func (p *DashboardPage) refreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), p.app.cfg.RequestTimeout)
	defer cancel()
	stats, err := p.app.api.Stats(ctx)
	if err != nil {
		p.app.log.Warn("refreshing stats failed", zap.Error(err))
		return
	}
	leaderboard, err := p.app.api.Leaderboard(ctx)
	if err != nil {
		p.app.log.Warn("refreshing leaderboard failed", zap.Error(err))
		return
	}
	p.app.ui.DashboardData(p.profile, stats, leaderboard, nil)
}

// Languages returns the judge languages cached at page load, for the
// preferences form.
func (p *DashboardPage) Languages() []api.Language { return p.languages }

// SavePreferences persists editor defaults for the logged-in user.
func (p *DashboardPage) SavePreferences(ctx context.Context, prefs api.Preferences) error {
	return p.app.api.SavePreferences(ctx, prefs)
}

// SearchPlayers filters the online list server-side.
func (p *DashboardPage) SearchPlayers(ctx context.Context, term string) ([]api.Player, error) {
	return p.app.api.OnlinePlayers(ctx, term)
}

func (p *DashboardPage) Challenge(targetID int, targetName string) {
	p.post(coordinator.DoSendChallenge{TargetUserID: targetID, TargetName: targetName})
}

func (p *DashboardPage) CancelChallenge() {
	p.post(coordinator.DoCancel{})
}

func (p *DashboardPage) Respond(accept bool) {
	p.post(coordinator.DoRespond{Accept: accept})
}

func (p *DashboardPage) Leave() {
	p.leaveOnce.Do(func() {
		if p.coord != nil {
			p.coord.Stop()
		}
		p.app.gw.Close(gateway.ScopeDashboard)
	})
}
