package gameserver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/imposter/internal/game/session"
)

// DefaultOutboxSize is the queue length used when NewOutbox is given a non-positive size.
const DefaultOutboxSize = 64

var (
	// ErrOutboxClosed is returned by Push after Close.
	ErrOutboxClosed = errors.New("outbox closed")
	// ErrOutboxFull is returned by Push when the reader has fallen behind.
	ErrOutboxFull = errors.New("outbox full")
)

// Outbox queues events for one connected player. It implements
// session.Notifier without ever blocking the session: when the queue is full
// or closed the event is dropped and an error returned.
type Outbox struct {
	id     string
	player string
	events chan Event
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the named player.
//
// Postcondition: Returns an open Outbox with a fresh connection ID.
func NewOutbox(player string, size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{
		id:     uuid.NewString(),
		player: player,
		events: make(chan Event, size),
	}
}

// ID returns the connection identifier.
func (o *Outbox) ID() string {
	return o.id
}

// Player returns the player name the outbox delivers to.
func (o *Outbox) Player() string {
	return o.player
}

// Push enqueues ev.
//
// Postcondition: ev is queued, or ErrOutboxClosed / ErrOutboxFull is returned and ev is dropped.
func (o *Outbox) Push(ev Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s (%s): %w", o.id, o.player, ErrOutboxClosed)
	}
	select {
	case o.events <- ev:
		return nil
	default:
		return fmt.Errorf("outbox %s (%s): %w", o.id, o.player, ErrOutboxFull)
	}
}

// Events returns the receive side of the queue. It is closed by Close.
func (o *Outbox) Events() <-chan Event {
	return o.events
}

// Close stops accepting events and closes the Events channel. It is idempotent.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.events)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// TurnChanged implements session.Notifier.
func (o *Outbox) TurnChanged(isYourTurn bool, timeLimit time.Duration) error {
	return o.Push(TurnEvent(isYourTurn, timeLimit))
}

// Chat implements session.Notifier.
func (o *Outbox) Chat(speaker, message string) error {
	return o.Push(ChatEvent(speaker, message))
}

// WordAssigned implements session.Notifier.
func (o *Outbox) WordAssigned(a session.PlayerAssignment) error {
	return o.Push(WordEvent(a))
}

// VotingResult implements session.Notifier.
func (o *Outbox) VotingResult(imposterName string, yourSideWon bool) error {
	return o.Push(ResultEvent(imposterName, yourSideWon))
}

// StateChanged implements session.Notifier.
func (o *Outbox) StateChanged(state session.State) error {
	return o.Push(StateEvent(state))
}

var _ session.Notifier = (*Outbox)(nil)
