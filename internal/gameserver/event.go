// Package gameserver adapts the game session to player connections: it turns
// session notifications into transport-neutral events and player input into
// session operations.
package gameserver

import (
	"time"

	"github.com/cory-johannsen/imposter/internal/game/session"
)

// EventKind identifies the payload carried by an Event.
type EventKind string

const (
	KindState   EventKind = "state"
	KindTurn    EventKind = "turn"
	KindChat    EventKind = "chat"
	KindWord    EventKind = "word"
	KindResult  EventKind = "result"
	KindPlayers EventKind = "players"
	KindStatus  EventKind = "status"
	KindInfo    EventKind = "info"
	KindError   EventKind = "error"
)

// Event is a single message for one player. Only the fields relevant to Kind
// are set; the rest are omitted from the JSON form.
type Event struct {
	Kind EventKind `json:"kind"`

	State session.State `json:"state,omitempty"`

	YourTurn        bool  `json:"your_turn,omitempty"`
	TimeLimitMillis int64 `json:"time_limit_ms,omitempty"`

	Speaker string `json:"speaker,omitempty"`
	Message string `json:"message,omitempty"`

	Assignment *session.PlayerAssignment `json:"assignment,omitempty"`

	Imposter    string `json:"imposter,omitempty"`
	YourSideWon *bool  `json:"your_side_won,omitempty"`

	Players []session.Player `json:"players,omitempty"`
	Status  *session.Status  `json:"status,omitempty"`
}

// StateEvent announces a phase change.
func StateEvent(s session.State) Event {
	return Event{Kind: KindState, State: s}
}

// TurnEvent announces the start (yourTurn) or end of the recipient's turn.
func TurnEvent(yourTurn bool, limit time.Duration) Event {
	return Event{Kind: KindTurn, YourTurn: yourTurn, TimeLimitMillis: limit.Milliseconds()}
}

// ChatEvent relays a clue to every player.
func ChatEvent(speaker, message string) Event {
	return Event{Kind: KindChat, Speaker: speaker, Message: message}
}

// WordEvent carries the recipient's private assignment.
func WordEvent(a session.PlayerAssignment) Event {
	return Event{Kind: KindWord, Assignment: &a}
}

// ResultEvent reveals the imposter and whether the recipient's side won.
func ResultEvent(imposter string, yourSideWon bool) Event {
	return Event{Kind: KindResult, Imposter: imposter, YourSideWon: &yourSideWon}
}

// PlayersEvent lists the roster.
func PlayersEvent(players []session.Player) Event {
	return Event{Kind: KindPlayers, Players: players}
}

// StatusEvent carries a session status summary.
func StatusEvent(st session.Status) Event {
	return Event{Kind: KindStatus, Status: &st}
}

// InfoEvent is a plain message for the recipient.
func InfoEvent(msg string) Event {
	return Event{Kind: KindInfo, Message: msg}
}

// ErrorEvent reports a rejected command to the recipient.
func ErrorEvent(msg string) Event {
	return Event{Kind: KindError, Message: msg}
}

// PublicRoster returns the roster as other players may see it. Roles, words,
// and hints stay hidden until the game is over.
func PublicRoster(players []session.Player, state session.State) []session.Player {
	out := make([]session.Player, len(players))
	for i, p := range players {
		if state == session.StateGameOver {
			out[i] = p
		} else {
			out[i] = p.Redacted()
		}
	}
	return out
}
