package session

import "go.uber.org/zap"

// Outcome is the result of a closed voting phase.
type Outcome struct {
	// Accused is the player with the most votes (earliest registered on ties).
	Accused string `json:"accused"`
	// Imposter is the actual imposter, revealed to everyone.
	Imposter string `json:"imposter"`
	// Caught reports whether the accused player is the imposter.
	Caught bool `json:"caught"`
	// Votes maps each player name to the votes they received.
	Votes map[string]int `json:"votes"`
}

// SideWon reports whether p's side won: everyone but the imposter wins when
// the imposter is caught, and the imposter wins otherwise.
func (o Outcome) SideWon(p Player) bool {
	if o.Caught {
		return !p.IsImposter
	}
	return p.IsImposter
}

// Tally returns the player with the strictly highest vote count. Players are
// examined in order, so a tie goes to the first tied player, and with no votes
// at all the first player is accused. ok is false only for an empty slice.
func Tally(players []Player) (accused string, ok bool) {
	best := -1
	for _, p := range players {
		if p.Votes > best {
			best = p.Votes
			accused = p.Name
			ok = true
		}
	}
	return accused, ok
}

// ballotBox records which voters have voted when one vote per player is enforced.
type ballotBox struct {
	oneVotePerPlayer bool
	cast             map[string]string // voter → target
}

func newBallotBox(oneVotePerPlayer bool) *ballotBox {
	return &ballotBox{oneVotePerPlayer: oneVotePerPlayer, cast: make(map[string]string)}
}

func (b *ballotBox) reset() {
	b.cast = make(map[string]string)
}

// startVotingLocked opens the voting phase.
//
// Precondition: s.mu is held; all three rounds are complete.
// Postcondition: every vote count is zero, state is Voting, and the voting countdown is armed.
func (s *Session) startVotingLocked() {
	for _, p := range s.registry.players {
		p.Votes = 0
	}
	s.ballots.reset()
	s.setStateLocked(StateVoting)
	s.armLocked(timerVoting, s.opts.VotingWindow, s.closeVotingLocked)
}

// castVoteLocked applies one vote.
//
// Precondition: s.mu is held.
// Postcondition: returns true and increments the target's count if the vote is accepted.
func (s *Session) castVoteLocked(voter, target string) bool {
	if s.state != StateVoting {
		s.logger.Debug("vote ignored outside voting", zap.String("voter", voter), zap.Stringer("state", s.state))
		return false
	}
	tp, _ := s.registry.find(target)
	if tp == nil {
		s.logger.Debug("vote for unknown player ignored", zap.String("voter", voter), zap.String("target", target))
		return false
	}
	if s.ballots.oneVotePerPlayer {
		if vp, _ := s.registry.find(voter); vp == nil {
			s.logger.Debug("vote from unknown player ignored", zap.String("voter", voter))
			return false
		}
		if prev, voted := s.ballots.cast[voter]; voted {
			s.logger.Debug("repeat vote ignored",
				zap.String("voter", voter),
				zap.String("target", target),
				zap.String("previous", prev),
			)
			return false
		}
		s.ballots.cast[voter] = target
	}
	tp.Votes++
	s.logger.Info("vote cast", zap.String("voter", voter), zap.String("target", target))
	return true
}

// closeVotingLocked is the voting countdown's expiry transition.
//
// Precondition: s.mu is held; state is Voting.
// Postcondition: every player has been sent their result and state is GameOver.
func (s *Session) closeVotingLocked() {
	s.state = StateResult
	players := s.registry.snapshot()
	accused, _ := Tally(players)

	votes := make(map[string]int, len(players))
	for _, p := range players {
		votes[p.Name] = p.Votes
	}
	outcome := Outcome{
		Accused:  accused,
		Imposter: s.imposterName,
		Caught:   accused != "" && accused == s.imposterName,
		Votes:    votes,
	}
	s.outcome = &outcome

	s.logger.Info("voting closed",
		zap.String("game_id", s.gameID),
		zap.String("accused", outcome.Accused),
		zap.String("imposter", outcome.Imposter),
		zap.Bool("caught", outcome.Caught),
	)

	for _, p := range players {
		won := outcome.SideWon(p)
		s.notifyLocked(p.Name, "voting_result", func(n Notifier) error {
			return n.VotingResult(outcome.Imposter, won)
		})
	}
	s.setStateLocked(StateGameOver)
}
