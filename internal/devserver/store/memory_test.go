package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateUserAssignsIDsAndRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := &User{Username: "alice"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.Equal(t, 1, u.ID)
	require.Equal(t, 1000, u.Rating)

	err := s.CreateUser(ctx, &User{Username: "ALICE"})
	require.ErrorIs(t, err, ErrDuplicate)

	got, err := s.UserByName(ctx, "Alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestLeaderboardOrdersByRating(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &User{Username: "low", Rating: 900}))
	require.NoError(t, s.CreateUser(ctx, &User{Username: "high", Rating: 1400}))
	require.NoError(t, s.CreateUser(ctx, &User{Username: "mid", Rating: 1100}))

	users, err := s.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "high", users[0].Username)
	require.Equal(t, "mid", users[1].Username)
}

func TestMatchRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	m := &Match{ID: "m-1", Player1ID: 1, Player2ID: 2, ProblemID: 3, Status: "active"}
	require.NoError(t, s.CreateMatch(ctx, m))
	require.ErrorIs(t, s.CreateMatch(ctx, &Match{ID: "m-1"}), ErrDuplicate)

	m.Status = "finished"
	m.WinnerID = 2
	require.NoError(t, s.UpdateMatch(ctx, m))

	got, err := s.MatchByID(ctx, "m-1")
	require.NoError(t, err)
	require.Equal(t, "finished", got.Status)
	require.Equal(t, 2, got.WinnerID)

	_, err = s.MatchByID(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIntegrityCountFiltersByMatchAndUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.AppendIntegrityLog(ctx, &IntegrityLog{MatchID: "m-1", UserID: 7, LogType: "PASTE_ACTION"}))
	require.NoError(t, s.AppendIntegrityLog(ctx, &IntegrityLog{MatchID: "m-1", UserID: 7, LogType: "TAB_SWITCH"}))
	require.NoError(t, s.AppendIntegrityLog(ctx, &IntegrityLog{MatchID: "m-1", UserID: 8, LogType: "TAB_SWITCH"}))
	require.NoError(t, s.AppendIntegrityLog(ctx, &IntegrityLog{MatchID: "m-2", UserID: 7, LogType: "TAB_SWITCH"}))

	n, err := s.IntegrityCount(ctx, "m-1", 7)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
