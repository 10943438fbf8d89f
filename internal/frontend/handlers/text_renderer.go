// Package handlers implements the Telnet conversation with a player: joining
// the lobby under a name, relaying game events as colored text, and running
// the command loop.
package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/imposter/internal/frontend/telnet"
	"github.com/cory-johannsen/imposter/internal/game/session"
	"github.com/cory-johannsen/imposter/internal/gameserver"
)

// RenderEvent formats an event as Telnet text. Multi-line output is joined
// with CR LF and carries no trailing line terminator.
func RenderEvent(ev gameserver.Event) string {
	switch ev.Kind {
	case gameserver.KindState:
		return RenderState(ev.State)
	case gameserver.KindTurn:
		if ev.YourTurn {
			return telnet.Colorf(telnet.BrightGreen, "It's your turn! You have %ds. Give your clue with 'say <clue>'.", ev.TimeLimitMillis/1000)
		}
		return telnet.Colorize(telnet.Dim, "Your turn is over.")
	case gameserver.KindChat:
		return telnet.Colorize(telnet.BrightWhite, ev.Speaker) + ": " + ev.Message
	case gameserver.KindWord:
		return renderAssignment(ev.Assignment)
	case gameserver.KindResult:
		return renderResult(ev)
	case gameserver.KindPlayers:
		return RenderPlayers(ev.Players)
	case gameserver.KindStatus:
		if ev.Status == nil {
			return ""
		}
		return RenderStatus(*ev.Status)
	case gameserver.KindInfo:
		return telnet.Colorize(telnet.White, ev.Message)
	case gameserver.KindError:
		return telnet.Colorize(telnet.Red, ev.Message)
	default:
		return ""
	}
}

// RenderState describes a phase change.
func RenderState(s session.State) string {
	if n := s.Round(); n > 0 {
		return telnet.Colorf(telnet.BrightYellow, "=== Round %d of %d ===", n, session.Rounds)
	}
	switch s {
	case session.StateWaitingForPlayers:
		return telnet.Colorize(telnet.Cyan, "Waiting for players. Type 'start' when everyone has joined.")
	case session.StateStarting:
		return telnet.Colorize(telnet.Cyan, "The game is starting!")
	case session.StateWordDistribution:
		return telnet.Colorize(telnet.Cyan, "Words have been handed out. Round 1 begins shortly.")
	case session.StateVoting:
		return telnet.Colorize(telnet.BrightMagenta, "Voting is open! Use 'vote <name>' to accuse the imposter.")
	case session.StateResult:
		return telnet.Colorize(telnet.Cyan, "Counting the votes...")
	case session.StateGameOver:
		return telnet.Colorize(telnet.Cyan, "Game over. Type 'replay' to play again.")
	default:
		return string(s)
	}
}

func renderAssignment(a *session.PlayerAssignment) string {
	if a == nil {
		return ""
	}
	if a.IsImposter {
		return telnet.Colorize(telnet.BrightRed, "You are the IMPOSTER!") + " " +
			telnet.Colorize(telnet.Yellow, a.Hint) + "\r\n" +
			telnet.Colorize(telnet.Dim, "Blend in: nobody will tell you the word.")
	}
	return telnet.Colorf(telnet.BrightGreen, "Your secret word is '%s'", a.Word) +
		telnet.Colorf(telnet.Dim, " (category: %s)", a.Hint)
}

func renderResult(ev gameserver.Event) string {
	line := telnet.Colorf(telnet.BrightWhite, "The imposter was %s.", ev.Imposter)
	if ev.YourSideWon == nil {
		return line
	}
	if *ev.YourSideWon {
		return line + " " + telnet.Colorize(telnet.BrightGreen, "Your side won!")
	}
	return line + " " + telnet.Colorize(telnet.BrightRed, "Your side lost.")
}

// RenderPlayers lists the roster in turn order. Imposter flags and vote
// counts are shown when present.
func RenderPlayers(players []session.Player) string {
	if len(players) == 0 {
		return telnet.Colorize(telnet.Dim, "Nobody has joined yet.")
	}
	lines := make([]string, 0, len(players)+1)
	lines = append(lines, telnet.Colorf(telnet.Cyan, "Players (%d):", len(players)))
	for i, p := range players {
		line := fmt.Sprintf("  %d. %s", i+1, p.Name)
		if p.Votes > 0 {
			line += fmt.Sprintf(" (votes: %d)", p.Votes)
		}
		if p.IsImposter {
			line += " " + telnet.Colorize(telnet.Red, "[imposter]")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\r\n")
}

// RenderStatus summarizes the session on one line.
func RenderStatus(st session.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s", st.State)
	if st.Round > 0 {
		fmt.Fprintf(&b, "  Round: %d/%d", st.Round, session.Rounds)
	}
	if st.ActivePlayer != "" {
		fmt.Fprintf(&b, "  Turn: %s", st.ActivePlayer)
	}
	fmt.Fprintf(&b, "  Players: %d/%d", st.Players, st.Capacity)
	return telnet.Colorize(telnet.Cyan, b.String())
}

// Prompt returns the input prompt for the named player.
func Prompt(name string) string {
	return telnet.Colorf(telnet.BrightCyan, "[%s]> ", name)
}
