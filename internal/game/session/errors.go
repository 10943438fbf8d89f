package session

import "errors"

// ErrRegistration is the category every registration failure wraps.
var ErrRegistration = errors.New("registration rejected")

var (
	// ErrCapacityExceeded is returned when the roster is already full.
	ErrCapacityExceeded = registrationError("session is full")
	// ErrNotAcceptingPlayers is returned when registration is attempted after the game started.
	ErrNotAcceptingPlayers = registrationError("session is not accepting players")
	// ErrNameTaken is returned when another player already uses the name.
	ErrNameTaken = registrationError("name already taken")
	// ErrInvalidName is returned for empty names.
	ErrInvalidName = registrationError("name must not be empty")
)

// ErrInvalidTransition is returned by Start when the session is not waiting for players.
var ErrInvalidTransition = errors.New("invalid transition for current state")

// ErrInsufficientPlayers is returned by Start with fewer than the minimum number of players.
var ErrInsufficientPlayers = errors.New("not enough players to start")

// ErrNotificationDelivery wraps failures reported by a Notifier. It is only
// ever logged; delivery failures never abort a transition.
var ErrNotificationDelivery = errors.New("notification delivery failed")

// registrationKind is a registration failure that also matches ErrRegistration.
type registrationKind struct {
	msg string
}

func registrationError(msg string) error {
	return &registrationKind{msg: msg}
}

func (e *registrationKind) Error() string {
	return e.msg
}

// Is lets errors.Is(err, ErrRegistration) match every registration kind.
func (e *registrationKind) Is(target error) bool {
	return target == ErrRegistration
}
