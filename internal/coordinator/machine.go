// Package coordinator runs the challenge handshake on the dashboard
// channel: Idle -> ChallengeSent/ChallengeReceived -> CountdownToMatch
// -> navigation into the battle room. The transition rules live in a
// pure reducer; the actor in coordinator.go owns timers and the
// channel.
package coordinator

import (
	"errors"

	"github.com/codeduel-live/arena-client/internal/protocol"
)

var (
	ErrBusy        = errors.New("challenge already in progress")
	ErrNoChallenge = errors.New("no challenge to act on")
)

type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseChallengeSent     Phase = "challenge_sent"
	PhaseChallengeReceived Phase = "challenge_received"
	PhaseCountdownToMatch  Phase = "countdown_to_match"
)

// Intent is the outstanding handshake, one at a time.
type Intent struct {
	UserID   int
	Username string
	Outgoing bool
}

type State struct {
	Phase   Phase
	Intent  Intent
	MatchID string
}

func NewState() State { return State{Phase: PhaseIdle} }

// ChallengeEnabled is the projection UI controls read: further
// challenge actions are allowed only while idle.
func (s State) ChallengeEnabled() bool { return s.Phase == PhaseIdle }

type CommandType string

const (
	// Local operations.
	CmdSendChallenge    CommandType = "SendChallenge"
	CmdCancelChallenge  CommandType = "CancelChallenge"
	CmdRespond          CommandType = "Respond"
	CmdChallengeExpired CommandType = "ChallengeExpired"
	CmdCountdownDone    CommandType = "CountdownDone"
	// Inbound channel events.
	CmdPeerChallenge  CommandType = "PeerChallenge"
	CmdPeerResponse   CommandType = "PeerResponse"
	CmdMatchCountdown CommandType = "MatchCountdown"
)

type Command struct {
	Type       CommandType
	TargetID   int
	TargetName string
	Accept     bool
	Challenger protocol.Player
	Response   string
	MatchID    string
}

type EffectType string

const (
	FxSend                EffectType = "Send"
	FxStartChallengeTimer EffectType = "StartChallengeTimer"
	FxStopChallengeTimer  EffectType = "StopChallengeTimer"
	FxStartMatchTimer     EffectType = "StartMatchTimer"
	FxNavigate            EffectType = "Navigate"
	FxPrompt              EffectType = "Prompt"
	FxNotice              EffectType = "Notice"
)

type Effect struct {
	Type       EffectType
	Msg        protocol.Outbound
	MatchID    string
	Challenger protocol.Player
	Note       string
}

// Apply is the reducer: given the current state and one command it
// returns the effects to run and the next state. It performs no I/O.
func Apply(s State, cmd Command) ([]Effect, State, error) {
	switch cmd.Type {
	case CmdSendChallenge:
		if s.Phase != PhaseIdle {
			return nil, s, ErrBusy
		}
		next := s
		next.Phase = PhaseChallengeSent
		next.Intent = Intent{UserID: cmd.TargetID, Username: cmd.TargetName, Outgoing: true}
		return []Effect{
			{Type: FxSend, Msg: protocol.SendChallenge{TargetUserID: cmd.TargetID}},
			{Type: FxStartChallengeTimer},
		}, next, nil

	case CmdCancelChallenge:
		if s.Phase != PhaseChallengeSent {
			return nil, s, ErrNoChallenge
		}
		next := s
		next.Phase = PhaseIdle
		next.Intent = Intent{}
		return []Effect{
			{Type: FxSend, Msg: protocol.CancelChallenge{TargetUserID: s.Intent.UserID}},
			{Type: FxStopChallengeTimer},
		}, next, nil

	case CmdRespond:
		if s.Phase != PhaseChallengeReceived {
			return nil, s, ErrNoChallenge
		}
		if cmd.Accept {
			// Stay put: the server decides when the match starts, via
			// match_start_countdown. The expiry timer keeps running in
			// case that event never arrives.
			return []Effect{
				{Type: FxSend, Msg: protocol.ChallengeResponse{
					ChallengerID: s.Intent.UserID,
					Response:     protocol.ResponseAccepted,
				}},
			}, s, nil
		}
		next := s
		next.Phase = PhaseIdle
		next.Intent = Intent{}
		return []Effect{
			{Type: FxSend, Msg: protocol.ChallengeResponse{
				ChallengerID: s.Intent.UserID,
				Response:     protocol.ResponseDeclined,
			}},
			{Type: FxStopChallengeTimer},
		}, next, nil

	case CmdChallengeExpired:
		switch s.Phase {
		case PhaseChallengeSent:
			// Same path as a manual cancel, plus a notice.
			next := s
			next.Phase = PhaseIdle
			next.Intent = Intent{}
			return []Effect{
				{Type: FxSend, Msg: protocol.CancelChallenge{TargetUserID: s.Intent.UserID}},
				{Type: FxNotice, Note: "Opponent did not respond."},
			}, next, nil
		case PhaseChallengeReceived:
			next := s
			next.Phase = PhaseIdle
			next.Intent = Intent{}
			return []Effect{{Type: FxNotice, Note: "Challenge expired."}}, next, nil
		}
		return nil, s, ErrNoChallenge

	case CmdPeerChallenge:
		if s.Phase != PhaseIdle {
			// Busy: auto-decline without disturbing the current
			// handshake.
			return []Effect{
				{Type: FxSend, Msg: protocol.ChallengeResponse{
					ChallengerID: cmd.Challenger.ID,
					Response:     protocol.ResponseDeclined,
				}},
			}, s, nil
		}
		next := s
		next.Phase = PhaseChallengeReceived
		next.Intent = Intent{UserID: cmd.Challenger.ID, Username: cmd.Challenger.Username}
		return []Effect{
			{Type: FxStartChallengeTimer},
			{Type: FxPrompt, Challenger: cmd.Challenger},
		}, next, nil

	case CmdPeerResponse:
		if s.Phase != PhaseChallengeSent {
			return nil, s, nil // stale reply, ignore
		}
		if cmd.Response == protocol.ResponseDeclined {
			next := s
			next.Phase = PhaseIdle
			next.Intent = Intent{}
			return []Effect{
				{Type: FxStopChallengeTimer},
				{Type: FxNotice, Note: s.Intent.Username + " declined your challenge."},
			}, next, nil
		}
		// Accepted: keep waiting for the authoritative
		// match_start_countdown.
		return nil, s, nil

	case CmdMatchCountdown:
		switch s.Phase {
		case PhaseChallengeSent, PhaseChallengeReceived:
			next := s
			next.Phase = PhaseCountdownToMatch
			next.Intent = Intent{}
			next.MatchID = cmd.MatchID
			return []Effect{
				{Type: FxStopChallengeTimer},
				{Type: FxStartMatchTimer, MatchID: cmd.MatchID},
			}, next, nil
		case PhaseCountdownToMatch:
			// Duplicate delivery: already counting down, no-op.
			return nil, s, nil
		}
		return nil, s, nil

	case CmdCountdownDone:
		if s.Phase != PhaseCountdownToMatch {
			return nil, s, nil
		}
		return []Effect{{Type: FxNavigate, MatchID: s.MatchID}}, s, nil
	}

	return nil, s, nil
}

// commandFromEvent maps dashboard channel events into reducer
// commands. Events the coordinator does not care about map to nothing.
func commandFromEvent(ev protocol.Event) (Command, bool) {
	switch e := ev.(type) {
	case protocol.ReceiveChallenge:
		return Command{Type: CmdPeerChallenge, Challenger: e.Challenger}, true
	case protocol.ChallengeAnswer:
		return Command{Type: CmdPeerResponse, Response: e.Response}, true
	case protocol.MatchStartCountdown:
		return Command{Type: CmdMatchCountdown, MatchID: e.MatchID}, true
	}
	return Command{}, false
}
