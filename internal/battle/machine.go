// Package battle runs the battle-room session: the submission
// lifecycle, the terminal match-end handling, the elapsed clock, and
// teardown. Transition rules are a pure reducer; session.go owns the
// channel, the timers, and the integrity monitor.
package battle

import (
	"errors"

	"github.com/codeduel-live/arena-client/internal/protocol"
)

var (
	ErrSubmissionPending = errors.New("a submission is already pending")
	ErrMatchOver         = errors.New("match already finished")
)

type SubmissionPhase string

const (
	SubmissionNone    SubmissionPhase = "none"
	SubmissionPending SubmissionPhase = "pending"
	SubmissionJudged  SubmissionPhase = "judged"
)

type MatchPhase string

const (
	MatchActive   MatchPhase = "active"
	MatchFinished MatchPhase = "finished"
)

type Outcome string

const (
	OutcomeWin         Outcome = "win"
	OutcomeLoss        Outcome = "lose"
	OutcomeDraw        Outcome = "draw"
	OutcomeForfeitWin  Outcome = "forfeit_win"
	OutcomeForfeitLoss Outcome = "forfeit_loss"
)

type State struct {
	Submission SubmissionPhase
	Match      MatchPhase
	Outcome    Outcome
}

func NewState() State {
	return State{Submission: SubmissionNone, Match: MatchActive}
}

// SubmitEnabled is the projection the submit control reads: judged
// re-arms, pending blocks, finished blocks for good.
func (s State) SubmitEnabled() bool {
	return s.Match == MatchActive && s.Submission != SubmissionPending
}

type CommandType string

const (
	CmdSubmit            CommandType = "Submit"
	CmdVerdict           CommandType = "Verdict"
	CmdOpponentSubmitted CommandType = "OpponentSubmitted"
	CmdMatchEnd          CommandType = "MatchEnd"
	CmdExitDone          CommandType = "ExitDone"
)

type Command struct {
	Type     CommandType
	Msg      protocol.SubmitCode
	Update   protocol.SubmissionUpdate
	Opponent string
	End      protocol.MatchEnd
	User     string
}

type EffectType string

const (
	FxSend          EffectType = "Send"
	FxRenderVerdict EffectType = "RenderVerdict"
	FxNotice        EffectType = "Notice"
	FxRenderResult  EffectType = "RenderResult"
	FxScheduleExit  EffectType = "ScheduleExit"
	FxExit          EffectType = "Exit"
)

type Effect struct {
	Type    EffectType
	Msg     protocol.Outbound
	Update  protocol.SubmissionUpdate
	Note    string
	Outcome Outcome
}

// terminalVerdict reports whether a submission status is a final
// verdict rather than an in-flight acknowledgment.
func terminalVerdict(status string) bool {
	switch status {
	case "PENDING", "RUNNING", "JUDGING":
		return false
	}
	return true
}

// classify computes the display outcome for the local user. A loser
// with a violation reason takes precedence over the winner field; an
// absent winner means a draw.
func classify(localUser string, end protocol.MatchEnd) Outcome {
	if end.LoserReason != "" && end.LoserUsername != "" {
		if end.LoserUsername == localUser {
			return OutcomeForfeitLoss
		}
		return OutcomeForfeitWin
	}
	if end.WinnerUsername == "" {
		return OutcomeDraw
	}
	if end.WinnerUsername == localUser {
		return OutcomeWin
	}
	return OutcomeLoss
}

// Apply is the reducer. It performs no I/O and no validation of code
// text or language; the session does that before a CmdSubmit is built.
func Apply(s State, cmd Command) ([]Effect, State, error) {
	switch cmd.Type {
	case CmdSubmit:
		if s.Match != MatchActive {
			return nil, s, ErrMatchOver
		}
		if s.Submission == SubmissionPending {
			return nil, s, ErrSubmissionPending
		}
		next := s
		next.Submission = SubmissionPending
		return []Effect{{Type: FxSend, Msg: cmd.Msg}}, next, nil

	case CmdVerdict:
		next := s
		effects := []Effect{{Type: FxRenderVerdict, Update: cmd.Update}}
		if terminalVerdict(cmd.Update.Status) {
			next.Submission = SubmissionJudged
		}
		return effects, next, nil

	case CmdOpponentSubmitted:
		// Purely informational, no transition.
		return []Effect{{Type: FxNotice, Note: cmd.Opponent + " submitted, judging..."}}, s, nil

	case CmdMatchEnd:
		if s.Match == MatchFinished {
			// Redelivered terminal event: expected, not an error.
			return nil, s, nil
		}
		next := s
		next.Match = MatchFinished
		next.Outcome = classify(cmd.User, cmd.End)
		return []Effect{
			{Type: FxRenderResult, Outcome: next.Outcome},
			{Type: FxScheduleExit},
		}, next, nil

	case CmdExitDone:
		if s.Match != MatchFinished {
			return nil, s, nil
		}
		return []Effect{{Type: FxExit}}, s, nil
	}

	return nil, s, nil
}
