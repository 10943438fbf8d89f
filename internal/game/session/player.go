package session

// Player is the per-game view of a registered participant.
type Player struct {
	// Name is the unique display name; immutable after registration.
	Name string `json:"name"`
	// IsImposter is set once per game at Start.
	IsImposter bool `json:"is_imposter"`
	// Word is the shared secret word; always empty for the imposter.
	Word string `json:"word,omitempty"`
	// Hint is the category clue.
	Hint string `json:"hint,omitempty"`
	// Alive is reserved for elimination variants and is always true.
	Alive bool `json:"alive"`
	// Votes is the number of votes received in the current voting phase.
	Votes int `json:"votes"`
}

func newPlayer(name string) *Player {
	return &Player{Name: name, Alive: true}
}

// reset clears everything assigned during a game, keeping the name.
func (p *Player) reset() {
	p.IsImposter = false
	p.Word = ""
	p.Hint = ""
	p.Votes = 0
	p.Alive = true
}

// Redacted returns a copy with the secret fields (imposter flag, word, hint)
// cleared, suitable for showing to other players while a game is running.
func (p Player) Redacted() Player {
	p.IsImposter = false
	p.Word = ""
	p.Hint = ""
	return p
}
