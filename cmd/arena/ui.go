package main

import (
	"fmt"

	"github.com/codeduel-live/arena-client/internal/api"
	"github.com/codeduel-live/arena-client/internal/battle"
	"github.com/codeduel-live/arena-client/internal/coordinator"
	"github.com/codeduel-live/arena-client/internal/protocol"
)

// termUI prints everything the pages render. One line per event keeps
// the REPL readable.
type termUI struct{}

func (termUI) DashboardData(profile api.Profile, stats api.Stats, leaderboard, online []api.Player) {
	fmt.Printf("\n== %s (rating %d) ==\n", profile.Username, profile.Rating)
	fmt.Printf("battles: %d  win rate: %.0f%%  streak: %d\n",
		stats.TotalBattles, stats.WinRate*100, stats.CurrentStreak)
	if len(leaderboard) > 0 {
		fmt.Println("leaderboard:")
		for i, p := range leaderboard {
			if i == 5 {
				break
			}
			fmt.Printf("  %d. %s (%d)\n", i+1, p.Username, p.Rating)
		}
	}
	termUI{}.PlayerList(online)
}

func (termUI) PlayerList(players []api.Player) {
	if len(players) == 0 {
		fmt.Println("online: nobody else right now")
		return
	}
	fmt.Print("online:")
	for _, p := range players {
		fmt.Printf(" %s(#%d)", p.Username, p.ID)
	}
	fmt.Println()
}

func (termUI) ChallengePrompt(ch protocol.Player) {
	fmt.Printf("\n%s (#%d) challenged you! type 'accept' or 'decline'\n", ch.Username, ch.ID)
}

func (termUI) ChallengeState(s coordinator.State) {
	switch s.Phase {
	case coordinator.PhaseChallengeSent:
		fmt.Println("challenge sent, waiting for a response...")
	case coordinator.PhaseCountdownToMatch:
		fmt.Println("match starting!")
	}
}

func (termUI) StateChanged(s battle.State) {
	if !s.SubmitEnabled() {
		return
	}
	fmt.Println("editor ready, submit with: submit <language> <code>")
}

func (termUI) Status(text string) { fmt.Println(text) }
func (termUI) Notice(text string) { fmt.Println(text) }
func (termUI) Alert(text string)  { fmt.Println("! " + text) }
func (termUI) Clock(string)       {}
func (termUI) ClearEditor()       { fmt.Println("editor cleared") }
func (termUI) ClearOverlay()      {}

func (termUI) Verdict(update protocol.SubmissionUpdate) {
	fmt.Printf("verdict: %s (%.3fs, %d KB)\n", update.Status, update.ExecutionTime, update.MemoryUsed)
	for _, tc := range update.DetailedResults {
		if tc.Status != "passed" {
			fmt.Printf("  failed: %s -> %s\n", tc.Input, tc.Output)
		}
	}
}

func (termUI) Result(outcome battle.Outcome) {
	switch outcome {
	case battle.OutcomeWin:
		fmt.Println("\n*** VICTORY ***")
	case battle.OutcomeForfeitWin:
		fmt.Println("\nopponent forfeited, you win")
	case battle.OutcomeLoss, battle.OutcomeForfeitLoss:
		fmt.Println("\nyou lost this one")
	case battle.OutcomeDraw:
		fmt.Println("\ndraw")
	}
}
