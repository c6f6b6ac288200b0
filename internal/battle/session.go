package battle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

// Channel is the battle-scope connection, satisfied by
// *gateway.Channel.
type Channel interface {
	Send(m protocol.Outbound)
	Close()
}

// Monitor is the integrity monitor half the session controls.
type Monitor interface {
	Disable()
}

// Presenter renders session output. Control enablement is derived
// from the State passed to StateChanged, never mutated independently.
type Presenter interface {
	StateChanged(s State)
	Status(text string)
	Verdict(update protocol.SubmissionUpdate)
	Notice(text string)
	Result(outcome Outcome)
	Clock(elapsed string)
	Alert(text string)
	ClearEditor()
	ClearOverlay()
}

type Msg interface{ isBattleMsg() }

type DoSubmit struct {
	Code        string
	LanguageKey string
}

type FromChannel struct{ Event protocol.Event }

type GetState struct{ Reply chan State }

type exitFired struct{ gen int }

func (DoSubmit) isBattleMsg()    {}
func (FromChannel) isBattleMsg() {}
func (GetState) isBattleMsg()    {}
func (exitFired) isBattleMsg()   {}

// Session is the per-page-visit state of one battle room. All mutable
// state lives here, built on entry and discarded by Teardown, never in
// package-level variables.
type Session struct {
	inbox chan Msg
	state State

	user      string
	problemID int
	languages []api.Language

	channel   Channel
	monitor   Monitor
	presenter Presenter
	log       *zap.Logger

	resultDelay  time.Duration
	navigateHome func()

	start  time.Time
	ticker *time.Ticker
	gen    int

	ctx      context.Context
	cancel   context.CancelFunc
	downOnce sync.Once
}

func NewSession(parent context.Context, user string, problemID int, languages []api.Language,
	channel Channel, monitor Monitor, presenter Presenter,
	resultDelay time.Duration, navigateHome func(), log *zap.Logger) *Session {

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:        make(chan Msg, 64),
		state:        NewState(),
		user:         user,
		problemID:    problemID,
		languages:    languages,
		channel:      channel,
		monitor:      monitor,
		presenter:    presenter,
		log:          log,
		resultDelay:  resultDelay,
		navigateHome: navigateHome,
		start:        time.Now(),
		ticker:       time.NewTicker(time.Second),
		ctx:          ctx,
		cancel:       cancel,
	}
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done closes when the session has stopped accepting messages.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Submit validates locally and, if valid, queues the submission. Both
// validation failures abort before any network traffic.
func (s *Session) Submit(code, languageKey string) {
	select {
	case s.inbox <- DoSubmit{Code: code, LanguageKey: languageKey}:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.Teardown()
			return

		case <-s.ticker.C:
			s.presenter.Clock(formatElapsed(time.Since(s.start)))

		case m := <-s.inbox:
			switch msg := m.(type) {
			case DoSubmit:
				s.handleSubmit(msg)

			case FromChannel:
				s.handleEvent(msg.Event)

			case exitFired:
				if msg.gen != s.gen {
					break
				}
				s.dispatch(Command{Type: CmdExitDone})

			case GetState:
				msg.Reply <- s.state
			}
		}
	}
}

func (s *Session) handleSubmit(msg DoSubmit) {
	code := strings.TrimSpace(msg.Code)
	if code == "" {
		s.presenter.Alert("Write some code first!")
		return
	}

	var lang *api.Language
	for i := range s.languages {
		if s.languages[i].Key == msg.LanguageKey {
			lang = &s.languages[i]
			break
		}
	}
	if lang == nil {
		s.presenter.Alert("Language not supported")
		return
	}

	s.dispatch(Command{Type: CmdSubmit, Msg: protocol.SubmitCode{
		Code:       msg.Code,
		Language:   lang.Key,
		LanguageID: lang.ID,
		ProblemID:  s.problemID,
	}})
}

// handleEvent filters broadcast events by identity before they reach
// the reducer: a result belonging to the opponent must never touch the
// local submission state.
func (s *Session) handleEvent(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.SubmissionPending:
		if e.Username == "" || e.Username == s.user {
			s.presenter.Status("Judging...")
		}

	case protocol.SubmissionUpdate:
		if e.Username != s.user {
			return
		}
		s.dispatch(Command{Type: CmdVerdict, Update: e})

	case protocol.OpponentSubmitted:
		if e.Username == s.user {
			return
		}
		s.dispatch(Command{Type: CmdOpponentSubmitted, Opponent: e.Username})

	case protocol.MatchEnd:
		s.dispatch(Command{Type: CmdMatchEnd, End: e, User: s.user})
	}
}

func (s *Session) dispatch(cmd Command) {
	effects, next, err := Apply(s.state, cmd)
	if err != nil {
		s.log.Debug("battle command rejected",
			zap.String("command", string(cmd.Type)),
			zap.Error(err))
		return
	}

	changed := next != s.state
	s.state = next
	for _, fx := range effects {
		s.run(fx)
	}
	if changed {
		s.presenter.StateChanged(s.state)
	}
}

func (s *Session) run(fx Effect) {
	switch fx.Type {
	case FxSend:
		s.channel.Send(fx.Msg)

	case FxRenderVerdict:
		s.presenter.Verdict(fx.Update)

	case FxNotice:
		s.presenter.Notice(fx.Note)

	case FxRenderResult:
		s.log.Info("match finished", zap.String("outcome", string(fx.Outcome)))
		s.presenter.Result(fx.Outcome)

	case FxScheduleExit:
		s.gen++
		gen := s.gen
		time.AfterFunc(s.resultDelay, func() {
			select {
			case s.inbox <- exitFired{gen: gen}:
			case <-s.ctx.Done():
			}
		})

	case FxExit:
		// Navigate home only if this exit is the teardown that
		// actually ran; if the user already left mid-delay, the page
		// change has happened and a second navigation would stack.
		ranHere := false
		s.downOnce.Do(func() {
			s.teardown()
			ranHere = true
		})
		if ranHere && s.navigateHome != nil {
			s.navigateHome()
		}
	}
}

// Teardown stops the clock, disables integrity monitoring, closes the
// battle channel, and clears editor and overlay. Safe to invoke any
// number of times, and invoked both on match end and on navigation
// away mid-match.
func (s *Session) Teardown() {
	s.downOnce.Do(s.teardown)
}

func (s *Session) teardown() {
	s.ticker.Stop()
	if s.monitor != nil {
		s.monitor.Disable()
	}
	if s.channel != nil {
		s.channel.Close()
	}
	s.presenter.ClearOverlay()
	s.presenter.ClearEditor()
	s.cancel()
	s.log.Info("battle session torn down")
}

func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
