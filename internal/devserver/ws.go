package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/protocol"
)

// wsUser authenticates a websocket upgrade from the token query
// parameter, since browsers cannot set headers on the handshake.
func (s *Server) wsUser(w http.ResponseWriter, r *http.Request) (PlayerInfo, bool) {
	token := r.URL.Query().Get("token")
	userID, ok := s.sessions.UserFor(token)
	if !ok {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return PlayerInfo{}, false
	}
	u, err := s.repo.UserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return PlayerInfo{}, false
	}
	return PlayerInfo{ID: u.ID, Username: u.Username, Rating: u.Rating}, true
}

func (s *Server) handleDashboardWS(w http.ResponseWriter, r *http.Request) {
	player, ok := s.wsUser(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dev server, any origin
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	out := make(chan []byte, 16)
	s.hub.Inbox() <- JoinDashboard{Player: player, Outbox: out}
	defer func() { s.hub.Inbox() <- LeaveDashboard{UserID: player.ID, Outbox: out} }()

	s.pump(r, conn, out, func(cm protocol.ClientMessage) {
		s.hub.Inbox() <- FromDashboard{UserID: player.ID, Msg: cm}
	})
}

func (s *Server) handleBattleWS(w http.ResponseWriter, r *http.Request) {
	player, ok := s.wsUser(w, r)
	if !ok {
		return
	}
	matchID := chi.URLParam(r, "matchID")

	reply := make(chan bool, 1)
	out := make(chan []byte, 16)
	s.hub.Inbox() <- JoinRoom{MatchID: matchID, Player: player, Outbox: out, Reply: reply}
	if !<-reply {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.hub.Inbox() <- LeaveRoom{MatchID: matchID, UserID: player.ID}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	defer func() { s.hub.Inbox() <- LeaveRoom{MatchID: matchID, UserID: player.ID} }()

	s.pump(r, conn, out, func(cm protocol.ClientMessage) {
		s.hub.Inbox() <- FromRoom{MatchID: matchID, UserID: player.ID, Msg: cm}
	})
}

// pump runs the writer goroutine and the reader loop until the peer
// goes away.
func (s *Server) pump(r *http.Request, conn *websocket.Conn, out chan []byte, deliver func(protocol.ClientMessage)) {
	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go func() {
		for {
			select {
			case <-writeCtx.Done():
				return
			case data := <-out:
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, data)
				cancel()
			}
		}
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				s.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		var cm protocol.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.log.Debug("bad client message", zap.Error(err))
			continue
		}
		deliver(cm)
	}
}
