package devserver

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/devserver/store"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

// PlayerInfo is the hub's view of one connected dashboard user.
type PlayerInfo struct {
	ID       int
	Username string
	Rating   int
}

type HubMsg interface{ isHubMsg() }

type JoinDashboard struct {
	Player PlayerInfo
	Outbox chan []byte
}

type LeaveDashboard struct {
	UserID int
	Outbox chan []byte
}

type FromDashboard struct {
	UserID int
	Msg    protocol.ClientMessage
}

type JoinRoom struct {
	MatchID string
	Player  PlayerInfo
	Outbox  chan []byte
	Reply   chan bool
}

type LeaveRoom struct {
	MatchID string
	UserID  int
}

type FromRoom struct {
	MatchID string
	UserID  int
	Msg     protocol.ClientMessage
}

// Strike records one anti-cheat report against a player. The second
// strike in a match forfeits it.
type Strike struct {
	MatchID string
	UserID  int
}

type OnlineUsers struct {
	Search  string
	Exclude int
	Reply   chan []PlayerInfo
}

type ShutdownHub struct{}

func (JoinDashboard) isHubMsg()  {}
func (LeaveDashboard) isHubMsg() {}
func (FromDashboard) isHubMsg()  {}
func (JoinRoom) isHubMsg()       {}
func (LeaveRoom) isHubMsg()      {}
func (FromRoom) isHubMsg()       {}
func (Strike) isHubMsg()         {}
func (OnlineUsers) isHubMsg()    {}
func (ShutdownHub) isHubMsg()    {}

type dashClient struct {
	player PlayerInfo
	outbox chan []byte
}

type room struct {
	matchID   string
	problemID int
	members   map[int]*dashClient
	strikes   map[int]int
	finished  bool
}

// Hub owns all live websocket state: who is on the dashboard, which
// match rooms exist, and every relay between them. Single goroutine,
// message-passing only.
type Hub struct {
	inbox chan HubMsg
	repo  store.Repository
	judge *Judge
	log   *zap.Logger

	dashboard map[int]*dashClient
	rooms     map[string]*room

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, repo store.Repository, judge *Judge, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:     make(chan HubMsg, 64),
		repo:      repo,
		judge:     judge,
		log:       log,
		dashboard: make(map[int]*dashClient),
		rooms:     make(map[string]*room),
		ctx:       ctx,
		cancel:    cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case JoinDashboard:
				h.dashboard[msg.Player.ID] = &dashClient{player: msg.Player, outbox: msg.Outbox}
				h.broadcastPlayers()

			case LeaveDashboard:
				// A reconnect may have replaced the entry already.
				if c := h.dashboard[msg.UserID]; c != nil && c.outbox == msg.Outbox {
					delete(h.dashboard, msg.UserID)
					h.broadcastPlayers()
				}

			case FromDashboard:
				h.handleDashboard(msg)

			case JoinRoom:
				msg.Reply <- h.joinRoom(msg)

			case LeaveRoom:
				if rm := h.rooms[msg.MatchID]; rm != nil {
					delete(rm.members, msg.UserID)
					if len(rm.members) == 0 {
						delete(h.rooms, msg.MatchID)
					}
				}

			case FromRoom:
				h.handleRoom(msg)

			case Strike:
				h.handleStrike(msg)

			case OnlineUsers:
				msg.Reply <- h.onlineUsers(msg.Search, msg.Exclude)

			case ShutdownHub:
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) onlineUsers(search string, exclude int) []PlayerInfo {
	out := make([]PlayerInfo, 0, len(h.dashboard))
	needle := strings.ToLower(search)
	for id, c := range h.dashboard {
		if id == exclude {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.player.Username), needle) {
			continue
		}
		out = append(out, c.player)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (h *Hub) send(c *dashClient, eventType string, payload any) {
	data, err := protocol.EncodeEvent(eventType, payload)
	if err != nil {
		h.log.Error("encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case c.outbox <- data:
	default:
		h.log.Warn("outbox full, dropping event",
			zap.String("type", eventType), zap.Int("user_id", c.player.ID))
	}
}

func (h *Hub) sendTo(userID int, eventType string, payload any) {
	if c := h.dashboard[userID]; c != nil {
		h.send(c, eventType, payload)
	}
}

func (h *Hub) broadcastPlayers() {
	for id, c := range h.dashboard {
		players := h.onlineUsers("", id)
		wire := make([]protocol.Player, len(players))
		for i, p := range players {
			wire[i] = protocol.Player{ID: p.ID, Username: p.Username, Rating: p.Rating}
		}
		h.send(c, "player_list", protocol.PlayerList{Players: wire})
	}
}

func (h *Hub) handleDashboard(msg FromDashboard) {
	from := h.dashboard[msg.UserID]
	if from == nil {
		return
	}
	switch msg.Msg.Type {
	case "ping":
		// Keep-alive, nothing to do.

	case "send_challenge":
		target := h.dashboard[msg.Msg.TargetUserID]
		if target == nil {
			h.send(from, "challenge_response", protocol.ChallengeAnswer{Response: protocol.ResponseDeclined})
			return
		}
		h.send(target, "receive_challenge", struct {
			Challenger protocol.Player `json:"challenger"`
		}{protocol.Player{ID: from.player.ID, Username: from.player.Username, Rating: from.player.Rating}})

	case "cancel_challenge":
		h.sendTo(msg.Msg.TargetUserID, "challenge_cancelled", nil)

	case "challenge_response":
		challenger := h.dashboard[msg.Msg.ChallengerID]
		if challenger == nil {
			return
		}
		h.send(challenger, "challenge_response", protocol.ChallengeAnswer{Response: msg.Msg.Response})
		if msg.Msg.Response != protocol.ResponseAccepted {
			return
		}
		h.startMatch(challenger, from)

	default:
		h.log.Debug("unhandled dashboard message", zap.String("type", msg.Msg.Type))
	}
}

func (h *Hub) startMatch(p1, p2 *dashClient) {
	problem := h.judge.PickProblem()
	m := &store.Match{
		ID:        uuid.NewString(),
		Player1ID: p1.player.ID,
		Player2ID: p2.player.ID,
		ProblemID: problem.ID,
		Status:    "active",
	}
	if err := h.repo.CreateMatch(h.ctx, m); err != nil {
		h.log.Error("create match", zap.Error(err))
		return
	}
	h.rooms[m.ID] = &room{
		matchID:   m.ID,
		problemID: problem.ID,
		members:   make(map[int]*dashClient),
		strikes:   make(map[int]int),
	}
	countdown := protocol.MatchStartCountdown{MatchID: m.ID}
	h.send(p1, "match_start_countdown", countdown)
	h.send(p2, "match_start_countdown", countdown)
	h.log.Info("match starting",
		zap.String("match_id", m.ID),
		zap.String("player1", p1.player.Username),
		zap.String("player2", p2.player.Username))
}

func (h *Hub) joinRoom(msg JoinRoom) bool {
	rm := h.rooms[msg.MatchID]
	if rm == nil {
		// Direct battle joins (tests, page reloads) attach to any
		// active match known to the store.
		m, err := h.repo.MatchByID(h.ctx, msg.MatchID)
		if err != nil || m.Status != "active" {
			return false
		}
		rm = &room{
			matchID:   m.ID,
			problemID: m.ProblemID,
			members:   make(map[int]*dashClient),
			strikes:   make(map[int]int),
		}
		h.rooms[m.ID] = rm
	}
	if rm.finished {
		return false
	}
	rm.members[msg.Player.ID] = &dashClient{player: msg.Player, outbox: msg.Outbox}
	return true
}

func (h *Hub) roomBroadcast(rm *room, eventType string, payload any) {
	for _, c := range rm.members {
		h.send(c, eventType, payload)
	}
}

func (h *Hub) handleRoom(msg FromRoom) {
	rm := h.rooms[msg.MatchID]
	if rm == nil || rm.finished {
		return
	}
	self := rm.members[msg.UserID]
	if self == nil {
		return
	}
	switch msg.Msg.Type {
	case "ping":

	case "submit_code":
		h.roomBroadcast(rm, "submission_pending", protocol.SubmissionPending{Username: self.player.Username})
		for id, c := range rm.members {
			if id != msg.UserID {
				h.send(c, "opponent_submitted", protocol.OpponentSubmitted{Username: self.player.Username})
			}
		}
		verdict := h.judge.Evaluate(msg.Msg.Code, msg.Msg.Language, rm.problemID)
		verdict.Username = self.player.Username
		h.roomBroadcast(rm, "submission_update", verdict)
		if verdict.Status == "Accepted" {
			h.finishMatch(rm, msg.UserID, "")
		}

	default:
		h.log.Debug("unhandled room message", zap.String("type", msg.Msg.Type))
	}
}

func (h *Hub) handleStrike(msg Strike) {
	rm := h.rooms[msg.MatchID]
	if rm == nil || rm.finished {
		return
	}
	rm.strikes[msg.UserID]++
	if rm.strikes[msg.UserID] < 2 {
		return
	}
	// Forfeits go to the opponent.
	winnerID := 0
	for id := range rm.members {
		if id != msg.UserID {
			winnerID = id
		}
	}
	h.finishMatch(rm, winnerID, "cheating")
}

func (h *Hub) finishMatch(rm *room, winnerID int, loserReason string) {
	rm.finished = true

	var winner, loser string
	for id, c := range rm.members {
		if id == winnerID {
			winner = c.player.Username
		} else {
			loser = c.player.Username
		}
	}
	h.roomBroadcast(rm, "match_end", protocol.MatchEnd{
		WinnerUsername: winner,
		LoserUsername:  loser,
		LoserReason:    loserReason,
	})
	// Dashboard viewers only need the nudge to refresh.
	for _, c := range h.dashboard {
		h.send(c, "match_end", protocol.MatchEnd{})
	}

	if m, err := h.repo.MatchByID(h.ctx, rm.matchID); err == nil {
		m.Status = "finished"
		m.WinnerID = winnerID
		if err := h.repo.UpdateMatch(h.ctx, m); err != nil {
			h.log.Error("update match", zap.Error(err))
		}
		h.settle(m, winnerID)
	}
}

// settle adjusts ratings and records by a fixed step.
func (h *Hub) settle(m *store.Match, winnerID int) {
	const step = 25
	for _, id := range []int{m.Player1ID, m.Player2ID} {
		u, err := h.repo.UserByID(h.ctx, id)
		if err != nil {
			continue
		}
		if id == winnerID {
			u.Wins++
			u.Rating += step
			u.Streak++
		} else {
			u.Losses++
			u.Streak = 0
			if u.Rating >= step {
				u.Rating -= step
			}
		}
		if err := h.repo.UpdateUser(h.ctx, u); err != nil {
			h.log.Error("update user record", zap.Int("user_id", id), zap.Error(err))
		}
	}
}

func (h *Hub) Stop() { h.cancel() }
