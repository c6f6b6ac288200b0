package app

import (
	"context"
	"sync"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/battle"
	"github.com/codeduel-live/arena-client/internal/gateway"
	"github.com/codeduel-live/arena-client/internal/integrity"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

// BattlePage owns one battle session, its channel, and the integrity
// monitor enablement for the match.
type BattlePage struct {
	app   *App
	match api.Match

	mu      sync.Mutex
	session *battle.Session

	leaveOnce sync.Once
}

func (a *App) enterBattle(ctx context.Context, matchID string) (*BattlePage, error) {
	if matchID == "" {
		return nil, ErrMissingMatchID
	}

	p := &BattlePage{app: a}
	var err error
	if p.match, err = a.api.Match(ctx, matchID); err != nil {
		return nil, err
	}
	profile, err := a.api.Profile(ctx)
	if err != nil {
		return nil, err
	}
	languages, err := a.api.Languages(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := a.gw.Open(ctx, gateway.BattleScope(matchID), p.handleEvent)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.session = battle.NewSession(context.Background(), profile.Username, p.match.Problem.ID, languages,
		ch, a.monitor, a.ui, a.cfg.ResultDisplayDelay, func() {
			go func() {
				_ = a.Navigate(context.Background(), RouteDashboard, "")
			}()
		}, a.log.Named("battle"))
	p.mu.Unlock()

	a.monitor.Enable(matchID, profile.Username, integrity.Hooks{
		Warn:        a.ui.Alert,
		ResetEditor: a.ui.ClearEditor,
	})
	return p, nil
}

func (p *BattlePage) Match() api.Match { return p.match }

func (p *BattlePage) Submit(code, languageKey string) {
	if s := p.currentSession(); s != nil {
		s.Submit(code, languageKey)
	}
}

// handleEvent may fire before NewSession returns; events raced in
// that window are dropped.
func (p *BattlePage) handleEvent(ev protocol.Event) {
	s := p.currentSession()
	if s == nil {
		return
	}
	select {
	case s.Inbox() <- battle.FromChannel{Event: ev}:
	case <-s.Done():
	}
}

func (p *BattlePage) currentSession() *battle.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *BattlePage) Leave() {
	p.leaveOnce.Do(func() {
		if s := p.currentSession(); s != nil {
			s.Teardown()
		}
	})
}
