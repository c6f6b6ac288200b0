package protocol

import (
	"encoding/json"
	"fmt"
)

// Event is a server -> client channel event, decoded from the
// {type, payload} envelope into one variant per event type.
type Event interface{ isEvent() }

type Player struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating,omitempty"`
}

// Dashboard scope.

type PlayerList struct {
	Players []Player `json:"players"`
}

// UserUpdate asks the client to re-fetch the online player list.
type UserUpdate struct{}

type ReceiveChallenge struct {
	Challenger Player `json:"challenger"`
}

// ChallengeAnswer is the counterpart's reply to an outgoing challenge.
type ChallengeAnswer struct {
	Response string `json:"response"`
}

type MatchStartCountdown struct {
	MatchID string `json:"match_id"`
}

// Battle scope.

type SubmissionPending struct {
	Username string `json:"username"`
}

type TestCaseResult struct {
	Status string `json:"status"`
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

type SubmissionUpdate struct {
	Username        string           `json:"username"`
	Status          string           `json:"status"`
	ExecutionTime   float64          `json:"execution_time"`
	MemoryUsed      int              `json:"memory_used"`
	DetailedResults []TestCaseResult `json:"detailed_results"`
}

type OpponentSubmitted struct {
	Username string `json:"username"`
}

// MatchEnd carries the authoritative match outcome. On the dashboard
// scope it arrives with an empty payload and just means "refresh
// stats".
type MatchEnd struct {
	WinnerUsername string `json:"winner_username,omitempty"`
	LoserUsername  string `json:"loser_username,omitempty"`
	LoserReason    string `json:"loser_reason,omitempty"`
}

// Unknown preserves forward compatibility: consumers log and drop it.
type Unknown struct {
	Type string
}

func (PlayerList) isEvent()          {}
func (UserUpdate) isEvent()          {}
func (ReceiveChallenge) isEvent()    {}
func (ChallengeAnswer) isEvent()     {}
func (MatchStartCountdown) isEvent() {}
func (SubmissionPending) isEvent()   {}
func (SubmissionUpdate) isEvent()    {}
func (OpponentSubmitted) isEvent()   {}
func (MatchEnd) isEvent()            {}
func (Unknown) isEvent()             {}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func decodePayload(env envelope, dst any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return nil
}

// DecodeEvent parses one inbound channel message. Unrecognized types
// decode to Unknown rather than an error; malformed JSON is an error.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Type {
	case "player_list":
		var ev PlayerList
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "user_update":
		return UserUpdate{}, nil

	case "receive_challenge":
		var ev ReceiveChallenge
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "challenge_response":
		var ev ChallengeAnswer
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "match_start_countdown":
		var ev MatchStartCountdown
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "submission_pending":
		var ev SubmissionPending
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "submission_update":
		var ev SubmissionUpdate
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "opponent_submitted":
		var ev OpponentSubmitted
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil

	case "match_end":
		var ev MatchEnd
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	}

	return Unknown{Type: env.Type}, nil
}

// EncodeEvent builds the {type, payload} envelope. The stub backend
// uses it to emit events in the same shape the real one does.
func EncodeEvent(eventType string, payload any) ([]byte, error) {
	env := struct {
		Type    string `json:"type"`
		Payload any    `json:"payload,omitempty"`
	}{eventType, payload}
	return json.Marshal(env)
}
