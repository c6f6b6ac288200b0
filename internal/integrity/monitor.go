// Package integrity implements the local anti-cheat heuristics: paste,
// tab-switch, large selection, large edit delta, implausible typing
// cadence. Every signal is a fire-and-forget report; the client only
// warns locally, the forfeiture verdict always arrives later from the
// backend as a normal match_end.
package integrity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Log types, as the backend records them.
const (
	KindPaste       = "PASTE_ACTION"
	KindSnapshot    = "CODE_SNAPSHOT"
	KindTypingSpeed = "SUSPICIOUS_TYPING_SPEED"
	KindSelection   = "CODE_SELECTION"
	KindTabSwitch   = "TAB_SWITCH"
)

const (
	snapshotDelta   = 20 // chars changed before a code snapshot is reported
	selectionMin    = 20 // selected chars before a selection is reported
	snapshotMax     = 3000
	minKeystrokeGap = 15 * time.Millisecond
)

// Reporter delivers one signal upstream. *api.Client satisfies it.
type Reporter interface {
	LogIntegrity(ctx context.Context, matchID, kind, details string)
}

// Hooks are the local reactions; the first paste also resets the
// editor.
type Hooks struct {
	Warn        func(text string)
	ResetEditor func()
}

type Monitor struct {
	reporter Reporter
	log      *zap.Logger

	mu             sync.Mutex
	enabled        bool
	matchID        string
	username       string
	pasteCount     int
	tabSwitchCount int
	lastSnapshot   string
	lastKeystroke  time.Time
	hooks          Hooks

	// now is swappable for cadence tests.
	now func() time.Time
}

func NewMonitor(reporter Reporter, log *zap.Logger) *Monitor {
	return &Monitor{reporter: reporter, log: log, now: time.Now}
}

// Enable arms the monitor for one match and resets all rolling
// counters from any previous session.
func (m *Monitor) Enable(matchID, username string, hooks Hooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
	m.matchID = matchID
	m.username = username
	m.pasteCount = 0
	m.tabSwitchCount = 0
	m.lastSnapshot = ""
	m.lastKeystroke = time.Time{}
	m.hooks = hooks
	m.log.Info("integrity monitoring enabled", zap.String("match_id", matchID))
}

// Disable detaches the monitor. Idempotent.
func (m *Monitor) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}
	m.enabled = false
	m.hooks = Hooks{}
	m.log.Info("integrity monitoring disabled")
}

// RecordPaste handles one paste action. First paste clears the editor
// and warns; every further paste escalates. The backend owns the
// forfeiture decision either way.
func (m *Monitor) RecordPaste() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	m.pasteCount++
	count := m.pasteCount
	hooks := m.hooks
	matchID, user := m.matchID, m.username
	m.mu.Unlock()

	if count == 1 {
		m.report(matchID, KindPaste, user+" pasted once")
		if hooks.ResetEditor != nil {
			hooks.ResetEditor()
		}
		m.warn(hooks, "WARNING: Paste detected! Your editor was reset.")
		return
	}
	m.report(matchID, KindPaste, user+" pasted twice")
	m.warn(hooks, "You pasted again! The match may be forfeited.")
}

// RecordInput tracks edit size and typing cadence for one editor
// change.
func (m *Monitor) RecordInput(code string) {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	now := m.now()
	var gap time.Duration
	suspicious := false
	if !m.lastKeystroke.IsZero() {
		gap = now.Sub(m.lastKeystroke)
		suspicious = gap < minKeystrokeGap
	}
	m.lastKeystroke = now

	snapshot := ""
	if abs(len(code)-len(m.lastSnapshot)) > snapshotDelta {
		snapshot = code
		if len(snapshot) > snapshotMax {
			snapshot = snapshot[:snapshotMax]
		}
		m.lastSnapshot = code
	}
	matchID := m.matchID
	m.mu.Unlock()

	if snapshot != "" {
		m.report(matchID, KindSnapshot, snapshot)
	}
	if suspicious {
		m.report(matchID, KindTypingSpeed, fmt.Sprintf("Typing interval: %dms", gap.Milliseconds()))
	}
}

// RecordSelection reports selections above the threshold.
func (m *Monitor) RecordSelection(length int) {
	m.mu.Lock()
	if !m.enabled || length <= selectionMin {
		m.mu.Unlock()
		return
	}
	matchID := m.matchID
	m.mu.Unlock()
	m.report(matchID, KindSelection, fmt.Sprintf("Selected %d chars", length))
}

// RecordVisibilityLoss counts tab/window switches, warning on the
// first and escalating from the second on.
func (m *Monitor) RecordVisibilityLoss() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	m.tabSwitchCount++
	count := m.tabSwitchCount
	hooks := m.hooks
	matchID := m.matchID
	m.mu.Unlock()

	m.report(matchID, KindTabSwitch, fmt.Sprintf("Switched tabs (%d times)", count))
	if count == 1 {
		m.warn(hooks, "WARNING: Switching tabs is not allowed!")
		return
	}
	m.warn(hooks, "You switched tabs too many times! The match may be forfeited.")
}

func (m *Monitor) report(matchID, kind, details string) {
	// Fire-and-forget: never block the caller on the network.
	go m.reporter.LogIntegrity(context.Background(), matchID, kind, details)
}

func (m *Monitor) warn(hooks Hooks, text string) {
	if hooks.Warn != nil {
		hooks.Warn(text)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
