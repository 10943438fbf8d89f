package session

import (
	"time"

	"go.uber.org/zap"
)

// timerKind identifies a logical countdown. At most one timer of each kind is
// outstanding at any time.
type timerKind int

const (
	// timerAdvance covers the grace delays before round 1 and between rounds.
	timerAdvance timerKind = iota
	timerTurn
	timerVoting
)

func (k timerKind) String() string {
	switch k {
	case timerAdvance:
		return "advance"
	case timerTurn:
		return "turn"
	case timerVoting:
		return "voting"
	default:
		return "unknown"
	}
}

// armLocked starts a countdown of the given kind, cancelling any previous one.
// When it fires, fire runs under s.mu, but only if no later arm or disarm of
// the same kind has happened in the meantime.
//
// Precondition: s.mu is held.
func (s *Session) armLocked(kind timerKind, d time.Duration, fire func()) {
	s.disarmLocked(kind)
	s.timerSeq++
	token := s.timerSeq
	t := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cur, ok := s.timers[kind]
		if !ok || cur.token != token {
			return
		}
		delete(s.timers, kind)
		fire()
	})
	s.timers[kind] = armedTimer{token: token, timer: t}
	s.logger.Debug("timer armed", zap.Stringer("timer", kind), zap.Duration("after", d))
}

// disarmLocked cancels the countdown of the given kind, if any.
//
// Precondition: s.mu is held.
// Postcondition: a callback of that kind already in flight will be a no-op.
func (s *Session) disarmLocked(kind timerKind) {
	if cur, ok := s.timers[kind]; ok {
		cur.timer.Stop()
		delete(s.timers, kind)
	}
}

// disarmAllLocked cancels every outstanding countdown.
func (s *Session) disarmAllLocked() {
	for kind := range s.timers {
		s.disarmLocked(kind)
	}
}
