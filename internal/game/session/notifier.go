package session

import "time"

// PlayerAssignment is the targeted payload each player receives at Start.
type PlayerAssignment struct {
	// Word is the shared word, or empty for the imposter.
	Word string `json:"word,omitempty"`
	// IsImposter tells the receiving player their role.
	IsImposter bool `json:"is_imposter"`
	// Hint is the category; the imposter's is prefixed with "Hint: ".
	Hint string `json:"hint"`
}

// Notifier delivers session events to one player. The session calls it while
// holding its lock, so implementations must return promptly and must not call
// back into the Session; a returned error is logged and otherwise ignored.
type Notifier interface {
	// TurnChanged tells the player whether it is now their turn and for how long.
	TurnChanged(isYourTurn bool, timeLimit time.Duration) error
	// Chat relays a clue given by speaker.
	Chat(speaker, message string) error
	// WordAssigned delivers the player's word, role, and hint.
	WordAssigned(a PlayerAssignment) error
	// VotingResult reveals the imposter and whether the player's side won.
	VotingResult(imposterName string, yourSideWon bool) error
	// StateChanged announces a new session phase.
	StateChanged(state State) error
}
