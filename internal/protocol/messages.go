package protocol

import (
	"encoding/json"
	"errors"
)

var ErrUnsupportedMessage = errors.New("unsupported outbound message")

// Outbound is a client -> server channel message.
type Outbound interface{ isOutbound() }

// Ping is the keep-alive message emitted while a channel is live.
type Ping struct{}

type SendChallenge struct {
	TargetUserID int
}

type CancelChallenge struct {
	TargetUserID int
}

const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

type ChallengeResponse struct {
	ChallengerID int
	Response     string
}

type SubmitCode struct {
	Code       string
	Language   string
	LanguageID int
	ProblemID  int
}

func (Ping) isOutbound()              {}
func (SendChallenge) isOutbound()     {}
func (CancelChallenge) isOutbound()   {}
func (ChallengeResponse) isOutbound() {}
func (SubmitCode) isOutbound()        {}

// Encode wraps an outbound message in its wire shape, a flat JSON
// object with a "type" discriminant.
func Encode(m Outbound) ([]byte, error) {
	switch v := m.(type) {
	case Ping:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{"ping"})

	case SendChallenge:
		return json.Marshal(struct {
			Type         string `json:"type"`
			TargetUserID int    `json:"target_user_id"`
		}{"send_challenge", v.TargetUserID})

	case CancelChallenge:
		return json.Marshal(struct {
			Type         string `json:"type"`
			TargetUserID int    `json:"target_user_id"`
		}{"cancel_challenge", v.TargetUserID})

	case ChallengeResponse:
		return json.Marshal(struct {
			Type         string `json:"type"`
			ChallengerID int    `json:"challenger_id"`
			Response     string `json:"response"`
		}{"challenge_response", v.ChallengerID, v.Response})

	case SubmitCode:
		return json.Marshal(struct {
			Type       string `json:"type"`
			Code       string `json:"code"`
			Language   string `json:"language"`
			LanguageID int    `json:"language_id"`
			ProblemID  int    `json:"problem_id"`
		}{"submit_code", v.Code, v.Language, v.LanguageID, v.ProblemID})
	}
	return nil, ErrUnsupportedMessage
}

// ClientMessage is the server-side view of an outbound message, used
// by the stub backend to read what a client sent.
type ClientMessage struct {
	Type         string `json:"type"`
	TargetUserID int    `json:"target_user_id,omitempty"`
	ChallengerID int    `json:"challenger_id,omitempty"`
	Response     string `json:"response,omitempty"`
	Code         string `json:"code,omitempty"`
	Language     string `json:"language,omitempty"`
	LanguageID   int    `json:"language_id,omitempty"`
	ProblemID    int    `json:"problem_id,omitempty"`
}
