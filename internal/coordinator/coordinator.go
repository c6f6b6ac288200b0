package coordinator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/protocol"
)

// Sender is the outbound half of the dashboard channel.
type Sender interface {
	Send(m protocol.Outbound)
}

// Hooks are the page-level reactions to coordinator effects. Nil
// hooks are skipped.
type Hooks struct {
	// Navigate moves the user into the battle room. Runs exactly once
	// per match id, after the visible countdown.
	Navigate func(matchID string)
	// Prompt surfaces an incoming challenge for accept/decline.
	Prompt func(challenger protocol.Player)
	// Notice surfaces one non-blocking line of text.
	Notice func(text string)
	// StateChanged reports every transition; control enablement is a
	// projection of the state it carries.
	StateChanged func(s State)
}

type Msg interface{ isCoordinatorMsg() }

type DoSendChallenge struct {
	TargetUserID int
	TargetName   string
}

type DoCancel struct{}

type DoRespond struct{ Accept bool }

// FromChannel feeds one inbound dashboard event into the actor.
type FromChannel struct{ Event protocol.Event }

// GetState reflects internal state without data races, for tests.
type GetState struct{ Reply chan State }

type Shutdown struct{}

type timerKind int

const (
	challengeTimer timerKind = iota
	matchTimer
)

type timerFired struct {
	kind timerKind
	gen  int
}

func (DoSendChallenge) isCoordinatorMsg() {}
func (DoCancel) isCoordinatorMsg()        {}
func (DoRespond) isCoordinatorMsg()       {}
func (FromChannel) isCoordinatorMsg()     {}
func (GetState) isCoordinatorMsg()        {}
func (Shutdown) isCoordinatorMsg()        {}
func (timerFired) isCoordinatorMsg()      {}

type Coordinator struct {
	inbox chan Msg
	state State

	channel Sender
	hooks   Hooks
	log     *zap.Logger

	challengeCountdown time.Duration
	matchCountdown     time.Duration

	// gen increments whenever a timer is armed or disarmed so stale
	// fires can be recognized and dropped.
	gen            int
	challengeTimer *time.Timer
	matchTimer     *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, channel Sender, hooks Hooks, challengeCountdown, matchCountdown time.Duration, log *zap.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	c := &Coordinator{
		inbox:              make(chan Msg, 64),
		state:              NewState(),
		channel:            channel,
		hooks:              hooks,
		log:                log,
		challengeCountdown: challengeCountdown,
		matchCountdown:     matchCountdown,
		ctx:                ctx,
		cancel:             cancel,
	}
	go c.loop()
	return c
}

func (c *Coordinator) Inbox() chan<- Msg { return c.inbox }

// Done closes when the coordinator has stopped accepting messages.
func (c *Coordinator) Done() <-chan struct{} { return c.ctx.Done() }

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case DoSendChallenge:
				c.dispatch(Command{Type: CmdSendChallenge, TargetID: msg.TargetUserID, TargetName: msg.TargetName})

			case DoCancel:
				c.dispatch(Command{Type: CmdCancelChallenge})

			case DoRespond:
				c.dispatch(Command{Type: CmdRespond, Accept: msg.Accept})

			case FromChannel:
				if cmd, ok := commandFromEvent(msg.Event); ok {
					c.dispatch(cmd)
				}

			case timerFired:
				if msg.gen != c.gen {
					break // stale fire from a disarmed timer
				}
				switch msg.kind {
				case challengeTimer:
					c.dispatch(Command{Type: CmdChallengeExpired})
				case matchTimer:
					c.dispatch(Command{Type: CmdCountdownDone})
				}

			case GetState:
				msg.Reply <- c.state

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Coordinator) dispatch(cmd Command) {
	effects, next, err := Apply(c.state, cmd)
	if err != nil {
		c.log.Debug("coordinator command rejected",
			zap.String("command", string(cmd.Type)),
			zap.String("phase", string(c.state.Phase)),
			zap.Error(err))
		return
	}

	changed := next != c.state
	c.state = next
	for _, fx := range effects {
		c.run(fx)
	}
	if changed && c.hooks.StateChanged != nil {
		c.hooks.StateChanged(c.state)
	}
}

func (c *Coordinator) run(fx Effect) {
	switch fx.Type {
	case FxSend:
		c.channel.Send(fx.Msg)

	case FxStartChallengeTimer:
		c.arm(&c.challengeTimer, challengeTimer, c.challengeCountdown)

	case FxStopChallengeTimer:
		c.disarm(&c.challengeTimer)

	case FxStartMatchTimer:
		c.arm(&c.matchTimer, matchTimer, c.matchCountdown)

	case FxNavigate:
		c.log.Info("entering battle room", zap.String("match_id", fx.MatchID))
		if c.hooks.Navigate != nil {
			c.hooks.Navigate(fx.MatchID)
		}

	case FxPrompt:
		if c.hooks.Prompt != nil {
			c.hooks.Prompt(fx.Challenger)
		}

	case FxNotice:
		if c.hooks.Notice != nil {
			c.hooks.Notice(fx.Note)
		}
	}
}

func (c *Coordinator) arm(slot **time.Timer, kind timerKind, d time.Duration) {
	if *slot != nil {
		(*slot).Stop()
	}
	c.gen++
	gen := c.gen
	*slot = time.AfterFunc(d, func() {
		select {
		case c.inbox <- timerFired{kind: kind, gen: gen}:
		case <-c.ctx.Done():
		}
	})
}

func (c *Coordinator) disarm(slot **time.Timer) {
	if *slot != nil {
		(*slot).Stop()
		*slot = nil
	}
	c.gen++
}

func (c *Coordinator) shutdown() {
	if c.challengeTimer != nil {
		c.challengeTimer.Stop()
	}
	if c.matchTimer != nil {
		c.matchTimer.Stop()
	}
	c.cancel()
}

// Stop tears the actor down. Idempotent.
func (c *Coordinator) Stop() { c.cancel() }
