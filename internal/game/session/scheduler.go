package session

import (
	"strings"

	"go.uber.org/zap"
)

// enterNextRoundLocked advances to the next clue round, or to voting once
// every round has been played.
//
// Precondition: s.mu is held.
func (s *Session) enterNextRoundLocked() {
	if s.round >= Rounds {
		s.startVotingLocked()
		return
	}
	s.round++
	s.playerIndex = 0
	s.setStateLocked(roundState(s.round))
	s.beginTurnLocked()
}

// beginTurnLocked starts the turn of the player at playerIndex, or schedules
// the next round when every player has had their turn.
//
// Precondition: s.mu is held; state is a round state.
// Postcondition: exactly one of the turn countdown or the round-gap timer is armed.
func (s *Session) beginTurnLocked() {
	if s.playerIndex >= s.registry.len() {
		s.logger.Debug("round complete", zap.Int("round", s.round))
		s.armLocked(timerAdvance, s.opts.RoundDelay, s.enterNextRoundLocked)
		return
	}
	active := s.registry.at(s.playerIndex).Name
	s.logger.Debug("turn started",
		zap.Int("round", s.round),
		zap.Int("index", s.playerIndex),
		zap.String("player", active),
	)
	limit := s.opts.TurnLimit
	s.notifyLocked(active, "turn_start", func(n Notifier) error {
		return n.TurnChanged(true, limit)
	})
	s.armLocked(timerTurn, limit, s.turnTimedOutLocked)
}

// turnTimedOutLocked is the turn countdown's expiry transition.
//
// Precondition: s.mu is held; the countdown was still current.
func (s *Session) turnTimedOutLocked() {
	if !s.state.IsRound() || s.playerIndex >= s.registry.len() {
		return
	}
	former := s.registry.at(s.playerIndex).Name
	s.logger.Info("turn timed out", zap.Int("round", s.round), zap.String("player", former))
	s.notifyLocked(former, "turn_end", func(n Notifier) error {
		return n.TurnChanged(false, 0)
	})
	s.playerIndex++
	s.beginTurnLocked()
}

// submitTurnActionLocked ends the active player's turn with a clue.
//
// Precondition: s.mu is held.
// Postcondition: returns false and changes nothing unless playerName is the active player.
func (s *Session) submitTurnActionLocked(playerName, message string) bool {
	if !s.state.IsRound() || s.playerIndex >= s.registry.len() {
		s.logger.Debug("turn action ignored outside a turn",
			zap.String("player", playerName),
			zap.Stringer("state", s.state),
		)
		return false
	}
	if s.registry.at(s.playerIndex).Name != playerName {
		s.logger.Debug("off-turn action ignored", zap.String("player", playerName))
		return false
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}

	s.disarmLocked(timerTurn)
	for _, name := range s.registry.names() {
		s.notifyLocked(name, "chat", func(n Notifier) error {
			return n.Chat(playerName, message)
		})
	}
	s.notifyLocked(playerName, "turn_end", func(n Notifier) error {
		return n.TurnChanged(false, 0)
	})
	s.logger.Info("clue given", zap.Int("round", s.round), zap.String("player", playerName))
	s.playerIndex++
	s.beginTurnLocked()
	return true
}
