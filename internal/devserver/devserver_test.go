package devserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/auth"
	"github.com/codeduel-live/arena-client/internal/devserver/store"
	"github.com/codeduel-live/arena-client/internal/gateway"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(context.Background(), store.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return ts
}

// player bundles one logged-in user's client stack.
type player struct {
	name   string
	api    *api.Client
	tokens *auth.Store
	gw     *gateway.Gateway
	events chan protocol.Event
}

func newPlayer(t *testing.T, ts *httptest.Server, name string) *player {
	t.Helper()
	ctx := context.Background()
	tokens := auth.NewStore()
	client := api.NewClient(ts.URL, 5*time.Second, tokens, zap.NewNop())

	err := client.Register(ctx, api.Registration{Username: name, Email: name + "@example.com", Password: "hunter22", Password2: "hunter22"})
	require.NoError(t, err)
	_, err = client.Login(ctx, name, "hunter22")
	require.NoError(t, err)

	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http")
	p := &player{
		name:   name,
		api:    client,
		tokens: tokens,
		gw:     gateway.New(wsBase, tokens, time.Minute, zap.NewNop()),
		events: make(chan protocol.Event, 32),
	}
	t.Cleanup(p.gw.CloseAll)
	return p
}

func (p *player) open(t *testing.T, scope gateway.Scope) {
	t.Helper()
	_, err := p.gw.Open(context.Background(), scope, func(ev protocol.Event) {
		p.events <- ev
	})
	require.NoError(t, err)
}

// waitFor drains events until match returns true or the deadline hits.
func waitFor[T protocol.Event](t *testing.T, events chan protocol.Event, match func(T) bool) T {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if typed, ok := ev.(T); ok && match(typed) {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func anyOf[T protocol.Event](T) bool { return true }

func TestRegisterLoginProfile(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	p := newPlayer(t, ts, "alice")

	profile, err := p.api.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", profile.Username)
	require.Equal(t, 1000, profile.Rating)

	stats, err := p.api.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.TotalBattles)

	langs, err := p.api.Languages(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, langs)

	err = p.api.SavePreferences(ctx, api.Preferences{PreferredLanguage: "python", PreferredDifficulty: "medium"})
	require.NoError(t, err)
	profile, err = p.api.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "python", profile.PreferredLanguage)
	require.Equal(t, "medium", profile.PreferredDifficulty)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	newPlayer(t, ts, "alice")

	tokens := auth.NewStore()
	client := api.NewClient(ts.URL, 5*time.Second, tokens, zap.NewNop())
	err := client.Register(ctx, api.Registration{Username: "Alice", Password: "x", Password2: "x"})
	require.ErrorContains(t, err, "already exists")
}

func TestLoginBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	tokens := auth.NewStore()
	client := api.NewClient(ts.URL, 5*time.Second, tokens, zap.NewNop())
	_, err := client.Login(context.Background(), "nobody", "wrong")
	require.Error(t, err)
	require.NotErrorIs(t, err, api.ErrSessionExpired)
}

func TestOnlinePlayersReflectDashboardPresence(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newPlayer(t, ts, "alice")
	bob := newPlayer(t, ts, "bob")

	alice.open(t, gateway.ScopeDashboard)
	bob.open(t, gateway.ScopeDashboard)

	// Alice hears that bob arrived.
	waitFor(t, alice.events, func(pl protocol.PlayerList) bool {
		for _, p := range pl.Players {
			if p.Username == "bob" {
				return true
			}
		}
		return false
	})

	online, err := alice.api.OnlinePlayers(ctx, "")
	require.NoError(t, err)
	require.Len(t, online, 1)
	require.Equal(t, "bob", online[0].Username)

	online, err = alice.api.OnlinePlayers(ctx, "zzz")
	require.NoError(t, err)
	require.Empty(t, online)
}

// runMatch drives the challenge handshake until both players hold a
// match id, then returns it.
func runMatch(t *testing.T, alice, bob *player) string {
	t.Helper()
	alice.open(t, gateway.ScopeDashboard)
	bob.open(t, gateway.ScopeDashboard)

	bobProfile, err := bob.api.Profile(context.Background())
	require.NoError(t, err)
	aliceProfile, err := alice.api.Profile(context.Background())
	require.NoError(t, err)

	alice.gw.Send(gateway.ScopeDashboard, protocol.SendChallenge{TargetUserID: bobProfile.ID})

	ch := waitFor(t, bob.events, anyOf[protocol.ReceiveChallenge])
	require.Equal(t, "alice", ch.Challenger.Username)
	require.Equal(t, aliceProfile.ID, ch.Challenger.ID)

	bob.gw.Send(gateway.ScopeDashboard, protocol.ChallengeResponse{
		ChallengerID: ch.Challenger.ID,
		Response:     protocol.ResponseAccepted,
	})

	answer := waitFor(t, alice.events, anyOf[protocol.ChallengeAnswer])
	require.Equal(t, protocol.ResponseAccepted, answer.Response)

	cd1 := waitFor(t, alice.events, anyOf[protocol.MatchStartCountdown])
	cd2 := waitFor(t, bob.events, anyOf[protocol.MatchStartCountdown])
	require.Equal(t, cd1.MatchID, cd2.MatchID)
	require.NotEmpty(t, cd1.MatchID)
	return cd1.MatchID
}

func TestChallengeToMatchEnd(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newPlayer(t, ts, "alice")
	bob := newPlayer(t, ts, "bob")
	matchID := runMatch(t, alice, bob)

	m, err := alice.api.Match(ctx, matchID)
	require.NoError(t, err)
	require.Equal(t, "alice", m.Player1.Username)
	require.Equal(t, "bob", m.Player2.Username)
	require.NotZero(t, m.Problem.ID)

	alice.open(t, gateway.BattleScope(matchID))
	bob.open(t, gateway.BattleScope(matchID))

	alice.gw.Send(gateway.BattleScope(matchID), protocol.SubmitCode{
		Code:       "def solve():\n    return 42",
		Language:   "python",
		LanguageID: 71,
		ProblemID:  m.Problem.ID,
	})

	waitFor(t, alice.events, func(p protocol.SubmissionPending) bool { return p.Username == "alice" })
	waitFor(t, bob.events, func(o protocol.OpponentSubmitted) bool { return o.Username == "alice" })

	verdict := waitFor(t, alice.events, anyOf[protocol.SubmissionUpdate])
	require.Equal(t, "Accepted", verdict.Status)
	require.Equal(t, "alice", verdict.Username)
	require.NotEmpty(t, verdict.DetailedResults)

	end := waitFor(t, alice.events, func(e protocol.MatchEnd) bool { return e.WinnerUsername != "" })
	require.Equal(t, "alice", end.WinnerUsername)
	require.Equal(t, "bob", end.LoserUsername)
	require.Empty(t, end.LoserReason)

	stats, err := alice.api.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalBattles)
	require.Equal(t, 1.0, stats.WinRate)
	require.Equal(t, 1025, stats.Rating)
}

func TestRejectedSubmissionKeepsMatchOpen(t *testing.T) {
	ts := newTestServer(t)

	alice := newPlayer(t, ts, "alice")
	bob := newPlayer(t, ts, "bob")
	matchID := runMatch(t, alice, bob)

	alice.open(t, gateway.BattleScope(matchID))
	bob.open(t, gateway.BattleScope(matchID))

	alice.gw.Send(gateway.BattleScope(matchID), protocol.SubmitCode{
		Code: "pass", Language: "python", LanguageID: 71,
	})

	verdict := waitFor(t, alice.events, anyOf[protocol.SubmissionUpdate])
	require.Equal(t, "Wrong Answer", verdict.Status)

	m, err := alice.api.Match(context.Background(), matchID)
	require.NoError(t, err)
	require.Equal(t, matchID, m.ID)
}

func TestSecondStrikeForfeitsMatch(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newPlayer(t, ts, "alice")
	bob := newPlayer(t, ts, "bob")
	matchID := runMatch(t, alice, bob)

	alice.open(t, gateway.BattleScope(matchID))
	bob.open(t, gateway.BattleScope(matchID))

	bob.api.LogIntegrity(ctx, matchID, "PASTE_ACTION", "265 chars")
	bob.api.LogIntegrity(ctx, matchID, "TAB_SWITCH", "visibility lost")

	end := waitFor(t, alice.events, func(e protocol.MatchEnd) bool { return e.WinnerUsername != "" })
	require.Equal(t, "alice", end.WinnerUsername)
	require.Equal(t, "bob", end.LoserUsername)
	require.Equal(t, "cheating", end.LoserReason)
}

func TestSnapshotsDoNotStrike(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newPlayer(t, ts, "alice")
	bob := newPlayer(t, ts, "bob")
	matchID := runMatch(t, alice, bob)

	alice.open(t, gateway.BattleScope(matchID))
	bob.open(t, gateway.BattleScope(matchID))

	bob.api.LogIntegrity(ctx, matchID, "CODE_SNAPSHOT", "def solve(): ...")
	bob.api.LogIntegrity(ctx, matchID, "CODE_SNAPSHOT", "def solve(): return")
	bob.api.LogIntegrity(ctx, matchID, "CODE_SELECTION", "selected 30 chars")

	m, err := alice.api.Match(ctx, matchID)
	require.NoError(t, err)
	require.Equal(t, matchID, m.ID)

	select {
	case ev := <-alice.events:
		if end, ok := ev.(protocol.MatchEnd); ok {
			t.Fatalf("unexpected match end: %+v", end)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBattleJoinUnknownMatch(t *testing.T) {
	ts := newTestServer(t)

	alice := newPlayer(t, ts, "alice")
	_, err := alice.gw.Open(context.Background(), gateway.BattleScope("no-such-match"), func(protocol.Event) {})
	require.Error(t, err)
}

func TestLogoutRevokesTokens(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newPlayer(t, ts, "alice")
	require.NoError(t, alice.api.Logout(ctx))

	_, err := alice.api.Profile(ctx)
	require.ErrorIs(t, err, api.ErrSessionExpired)
}
