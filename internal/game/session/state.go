// Package session implements the authoritative imposter game session: player
// registration, imposter and word assignment, timed turn rotation, voting,
// result computation, and replay.
package session

// State is a phase of the game session.
type State string

const (
	StateWaitingForPlayers State = "WAITING_FOR_PLAYERS"
	StateStarting          State = "STARTING"
	StateWordDistribution  State = "WORD_DISTRIBUTION"
	StateRound1            State = "ROUND_1"
	StateRound2            State = "ROUND_2"
	StateRound3            State = "ROUND_3"
	StateVoting            State = "VOTING"
	StateResult            State = "RESULT"
	StateGameOver          State = "GAME_OVER"
)

// Rounds is the number of clue rounds in every game.
const Rounds = 3

var roundStates = [...]State{StateRound1, StateRound2, StateRound3}

// String returns the wire name of the state.
func (s State) String() string {
	return string(s)
}

// Round returns the 1-based round number for a round state, or 0.
func (s State) Round() int {
	for i, rs := range roundStates {
		if s == rs {
			return i + 1
		}
	}
	return 0
}

// IsRound reports whether s is one of the clue-round states.
func (s State) IsRound() bool {
	return s.Round() > 0
}

// roundState returns the state for round n.
//
// Precondition: 1 <= n <= Rounds.
func roundState(n int) State {
	return roundStates[n-1]
}
