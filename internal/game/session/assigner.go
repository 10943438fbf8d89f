package session

import (
	"fmt"

	"github.com/cory-johannsen/imposter/internal/game/random"
	"github.com/cory-johannsen/imposter/internal/game/words"
)

// ImposterHintPrefix marks the imposter's hint so it reads as a bare category.
const ImposterHintPrefix = "Hint: "

// Assignment is the outcome of one round assignment: who the imposter is and
// what every other player is told.
type Assignment struct {
	ImposterName string
	SharedWord   string
	Category     string
	// ImposterHint is what the imposter sees instead of the word.
	ImposterHint string
	// PlayerHint is the plain category shown to everyone else.
	PlayerHint string
}

// For returns the targeted payload for the named player. The imposter's
// payload never carries the shared word.
func (a Assignment) For(name string) PlayerAssignment {
	if name == a.ImposterName {
		return PlayerAssignment{IsImposter: true, Hint: a.ImposterHint}
	}
	return PlayerAssignment{Word: a.SharedWord, Hint: a.PlayerHint}
}

// Assigner picks the imposter and the shared word for a game.
type Assigner struct {
	picker     *random.Picker
	table      *words.Table
	minPlayers int
}

// NewAssigner creates an Assigner drawing from table with picker.
//
// Precondition: picker and table must be non-nil.
func NewAssigner(picker *random.Picker, table *words.Table) *Assigner {
	if picker == nil || table == nil {
		panic("session.NewAssigner: picker and table must be non-nil")
	}
	return &Assigner{picker: picker, table: table, minPlayers: 3}
}

// Assign selects the imposter uniformly from names and, independently, one
// word entry uniformly from the table.
//
// Precondition: len(names) >= 3.
// Postcondition: ImposterName is one of names; SharedWord and Category come from the same entry.
func (a *Assigner) Assign(names []string) (Assignment, error) {
	if len(names) < a.minPlayers {
		return Assignment{}, fmt.Errorf("assigning %d players: %w", len(names), ErrInsufficientPlayers)
	}
	imposter := names[a.picker.Index("imposter", len(names))]
	entry := a.table.At(a.picker.Index("word", a.table.Len()))
	return Assignment{
		ImposterName: imposter,
		SharedWord:   entry.Word,
		Category:     entry.Category,
		ImposterHint: ImposterHintPrefix + entry.Category,
		PlayerHint:   entry.Category,
	}, nil
}
