package battle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

type fakeChannel struct {
	mu     sync.Mutex
	sent   []protocol.Outbound
	closed int
}

func (f *fakeChannel) Send(m protocol.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeChannel) sends() []protocol.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Outbound, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeChannel) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeMonitor struct {
	mu       sync.Mutex
	disabled int
}

func (f *fakeMonitor) Disable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled++
}

func (f *fakeMonitor) disableCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disabled
}

type fakePresenter struct {
	mu       sync.Mutex
	alerts   []string
	verdicts []protocol.SubmissionUpdate
	notices  []string
	results  []Outcome
	states   []State
}

func (f *fakePresenter) StateChanged(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
}
func (f *fakePresenter) Status(string) {}
func (f *fakePresenter) Verdict(u protocol.SubmissionUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verdicts = append(f.verdicts, u)
}
func (f *fakePresenter) Notice(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, text)
}
func (f *fakePresenter) Result(o Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, o)
}
func (f *fakePresenter) Clock(string) {}
func (f *fakePresenter) Alert(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, text)
}
func (f *fakePresenter) ClearEditor()  {}
func (f *fakePresenter) ClearOverlay() {}

func (f *fakePresenter) snapshot() (alerts, notices []string, verdicts []protocol.SubmissionUpdate, results []Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.alerts...),
		append([]string(nil), f.notices...),
		append([]protocol.SubmissionUpdate(nil), f.verdicts...),
		append([]Outcome(nil), f.results...)
}

var testLanguages = []api.Language{
	{ID: 71, Key: "python", Name: "Python 3"},
	{ID: 62, Key: "java", Name: "Java"},
}

type harness struct {
	s    *Session
	ch   *fakeChannel
	mon  *fakeMonitor
	pres *fakePresenter
	navs chan struct{}
}

func newHarness(t *testing.T, resultDelay time.Duration) *harness {
	t.Helper()
	h := &harness{
		ch:   &fakeChannel{},
		mon:  &fakeMonitor{},
		pres: &fakePresenter{},
		navs: make(chan struct{}, 4),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.s = NewSession(ctx, "alice", 3, testLanguages, h.ch, h.mon, h.pres,
		resultDelay, func() { h.navs <- struct{}{} }, zap.NewNop())
	t.Cleanup(h.s.Teardown)
	return h
}

func (h *harness) state(t *testing.T) State {
	t.Helper()
	reply := make(chan State, 1)
	h.s.Inbox() <- GetState{Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for state")
		return State{}
	}
}

func TestSubmit_EmptyCodeRejectedLocally(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Submit("   \n\t", "python")

	require.Eventually(t, func() bool {
		alerts, _, _, _ := h.pres.snapshot()
		return len(alerts) == 1
	}, time.Second, 5*time.Millisecond)

	require.Empty(t, h.ch.sends(), "validation failure must not reach the network")
	require.Equal(t, SubmissionNone, h.state(t).Submission)
}

func TestSubmit_UnknownLanguageRejectedLocally(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Submit("print(1)", "cobol")

	require.Eventually(t, func() bool {
		alerts, _, _, _ := h.pres.snapshot()
		return len(alerts) == 1 && alerts[0] == "Language not supported"
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, h.ch.sends())
}

func TestSubmit_SendsAndBlocksConcurrentAttempts(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Submit("print(1)", "python")
	require.Eventually(t, func() bool {
		return h.state(t).Submission == SubmissionPending
	}, time.Second, 5*time.Millisecond)

	// Second submit while pending is dropped before the network.
	h.s.Submit("print(2)", "python")
	time.Sleep(30 * time.Millisecond)

	sends := h.ch.sends()
	require.Len(t, sends, 1)
	sc, ok := sends[0].(protocol.SubmitCode)
	require.True(t, ok)
	require.Equal(t, 71, sc.LanguageID)
	require.Equal(t, 3, sc.ProblemID)
	require.False(t, h.state(t).SubmitEnabled())
}

func TestVerdict_OpponentResultIgnored(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Submit("print(1)", "python")
	require.Eventually(t, func() bool {
		return h.state(t).Submission == SubmissionPending
	}, time.Second, 5*time.Millisecond)

	h.s.Inbox() <- FromChannel{Event: protocol.SubmissionUpdate{Username: "bob", Status: "ACCEPTED"}}
	time.Sleep(30 * time.Millisecond)

	_, _, verdicts, _ := h.pres.snapshot()
	require.Empty(t, verdicts, "opponent verdict must not render locally")
	require.Equal(t, SubmissionPending, h.state(t).Submission)
}

func TestVerdict_TerminalRearmsSubmit(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Submit("print(1)", "python")
	require.Eventually(t, func() bool {
		return h.state(t).Submission == SubmissionPending
	}, time.Second, 5*time.Millisecond)

	h.s.Inbox() <- FromChannel{Event: protocol.SubmissionUpdate{
		Username: "alice", Status: "WRONG_ANSWER",
		DetailedResults: []protocol.TestCaseResult{{Status: "ACCEPTED"}, {Status: "WRONG_ANSWER"}},
	}}

	require.Eventually(t, func() bool {
		return h.state(t).Submission == SubmissionJudged
	}, time.Second, 5*time.Millisecond)
	require.True(t, h.state(t).SubmitEnabled())

	// Resubmission re-arms to pending.
	h.s.Submit("print(3)", "python")
	require.Eventually(t, func() bool {
		return h.state(t).Submission == SubmissionPending
	}, time.Second, 5*time.Millisecond)
	require.Len(t, h.ch.sends(), 2)
}

func TestOpponentSubmitted_InformationalOnly(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Inbox() <- FromChannel{Event: protocol.OpponentSubmitted{Username: "bob"}}

	require.Eventually(t, func() bool {
		_, notices, _, _ := h.pres.snapshot()
		return len(notices) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, SubmissionNone, h.state(t).Submission)
	require.Equal(t, MatchActive, h.state(t).Match)
}

func TestMatchEnd_RendersOnceAndExits(t *testing.T) {
	h := newHarness(t, 50*time.Millisecond)

	end := protocol.MatchEnd{WinnerUsername: "alice"}
	h.s.Inbox() <- FromChannel{Event: end}
	h.s.Inbox() <- FromChannel{Event: end} // redelivery

	require.Eventually(t, func() bool {
		return h.state(t).Match == MatchFinished
	}, time.Second, 5*time.Millisecond)

	select {
	case <-h.navs:
	case <-time.After(2 * time.Second):
		t.Fatal("expected navigation back to dashboard")
	}

	_, _, _, results := h.pres.snapshot()
	require.Len(t, results, 1, "overlay must render exactly once")
	require.Equal(t, OutcomeWin, results[0])
	require.Equal(t, 1, h.ch.closeCount())
	require.Equal(t, 1, h.mon.disableCount())
}

func TestMatchEnd_DisablesSubmission(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Inbox() <- FromChannel{Event: protocol.MatchEnd{WinnerUsername: "bob"}}
	require.Eventually(t, func() bool {
		return h.state(t).Match == MatchFinished
	}, time.Second, 5*time.Millisecond)
	require.False(t, h.state(t).SubmitEnabled())

	h.s.Submit("print(1)", "python")
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, h.ch.sends())
}

func TestTeardown_Idempotent(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.s.Teardown()
	h.s.Teardown()

	require.Equal(t, 1, h.ch.closeCount())
	require.Equal(t, 1, h.mon.disableCount())
	require.Empty(t, h.navs, "plain teardown must not navigate")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		end  protocol.MatchEnd
		want Outcome
	}{
		{"win", protocol.MatchEnd{WinnerUsername: "alice"}, OutcomeWin},
		{"loss", protocol.MatchEnd{WinnerUsername: "bob"}, OutcomeLoss},
		{"draw", protocol.MatchEnd{}, OutcomeDraw},
		{"forfeit loss", protocol.MatchEnd{LoserUsername: "alice", LoserReason: "cheating"}, OutcomeForfeitLoss},
		{"forfeit win", protocol.MatchEnd{LoserUsername: "bob", LoserReason: "cheating"}, OutcomeForfeitWin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, classify("alice", tc.end))
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	require.Equal(t, "00:00", formatElapsed(0))
	require.Equal(t, "00:59", formatElapsed(59*time.Second))
	require.Equal(t, "01:05", formatElapsed(65*time.Second))
	require.Equal(t, "12:34", formatElapsed(12*time.Minute+34*time.Second))
}
