package session

import (
	"fmt"
	"strings"
)

// registry tracks registered players in registration order together with the
// notification target for each name. It performs no locking; the owning
// Session serialises access.
type registry struct {
	capacity int
	players  []*Player
	targets  map[string]Notifier
}

func newRegistry(capacity int) *registry {
	return &registry{
		capacity: capacity,
		targets:  make(map[string]Notifier),
	}
}

// add appends a new player. The caller is responsible for the phase check.
//
// Postcondition: on success the player is last in turn order and its target is stored.
func (r *registry) add(name string, target Notifier) (*Player, error) {
	if len(r.players) >= r.capacity {
		return nil, fmt.Errorf("registering %q (%d/%d players): %w", name, len(r.players), r.capacity, ErrCapacityExceeded)
	}
	if _, idx := r.find(name); idx >= 0 {
		return nil, fmt.Errorf("registering %q: %w", name, ErrNameTaken)
	}
	p := newPlayer(name)
	r.players = append(r.players, p)
	r.targets[name] = target
	return p, nil
}

// remove deletes the named player, preserving the order of the rest.
func (r *registry) remove(name string) bool {
	_, idx := r.find(name)
	if idx < 0 {
		return false
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.targets, name)
	return true
}

// find returns the named player and its index, or (nil, -1).
func (r *registry) find(name string) (*Player, int) {
	for i, p := range r.players {
		if p.Name == name {
			return p, i
		}
	}
	return nil, -1
}

func (r *registry) len() int {
	return len(r.players)
}

func (r *registry) at(i int) *Player {
	return r.players[i]
}

func (r *registry) target(name string) Notifier {
	return r.targets[name]
}

// names returns player names in turn order.
func (r *registry) names() []string {
	out := make([]string, len(r.players))
	for i, p := range r.players {
		out[i] = p.Name
	}
	return out
}

// snapshot returns value copies of every player in turn order.
func (r *registry) snapshot() []Player {
	out := make([]Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

// normalizeName trims surrounding whitespace and rejects empty names.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}
