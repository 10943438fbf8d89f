package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/imposter/internal/config"
	"github.com/cory-johannsen/imposter/internal/game/clock"
)

// Options holds the timing and rule parameters of a Session.
type Options struct {
	TurnLimit        time.Duration
	VotingWindow     time.Duration
	StartDelay       time.Duration
	RoundDelay       time.Duration
	MinPlayers       int
	MaxPlayers       int
	OneVotePerPlayer bool
}

// DefaultOptions returns the standard rules: 30s turns, a 30s voting window,
// 3s before round 1, 2s between rounds, 3 to 6 players, one vote per player.
func DefaultOptions() Options {
	return Options{
		TurnLimit:        30 * time.Second,
		VotingWindow:     30 * time.Second,
		StartDelay:       3 * time.Second,
		RoundDelay:       2 * time.Second,
		MinPlayers:       3,
		MaxPlayers:       6,
		OneVotePerPlayer: true,
	}
}

// OptionsFromConfig converts the game configuration section into Options.
func OptionsFromConfig(g config.GameConfig) Options {
	return Options{
		TurnLimit:        g.TurnLimit(),
		VotingWindow:     g.VotingWindow(),
		StartDelay:       g.StartDelay(),
		RoundDelay:       g.RoundDelay(),
		MinPlayers:       g.MinPlayers,
		MaxPlayers:       g.MaxPlayers,
		OneVotePerPlayer: g.OneVotePerPlayer,
	}
}

// Status is a point-in-time summary of the session for display.
type Status struct {
	// GameID identifies the current game; empty before the first Start and after Replay.
	GameID string `json:"game_id,omitempty"`
	State  State  `json:"state"`
	// Round is 0 before round 1 and stays at 3 through voting and the result.
	Round int `json:"round"`
	// ActivePlayer is whose turn it is, or empty outside a turn.
	ActivePlayer string        `json:"active_player,omitempty"`
	TurnLimit    time.Duration `json:"turn_limit"`
	Players      int           `json:"players"`
	Capacity     int           `json:"capacity"`
}

type armedTimer struct {
	token uint64
	timer clock.Timer
}

// Session is the authoritative state of one imposter game. All exported
// methods are safe for concurrent use; every mutation, including timer-driven
// transitions, runs under a single mutex.
type Session struct {
	opts     Options
	assigner *Assigner
	clock    clock.Clock
	logger   *zap.Logger

	mu           sync.Mutex
	state        State
	registry     *registry
	ballots      *ballotBox
	round        int
	playerIndex  int
	imposterName string
	gameID       string
	outcome      *Outcome
	timers       map[timerKind]armedTimer
	timerSeq     uint64
}

// New creates a Session waiting for players.
//
// Precondition: assigner, clk, and logger must be non-nil; opts.MaxPlayers must be in [opts.MinPlayers, 6].
// Postcondition: Returns a Session in StateWaitingForPlayers with an empty roster.
func New(opts Options, assigner *Assigner, clk clock.Clock, logger *zap.Logger) *Session {
	if assigner == nil || clk == nil || logger == nil {
		panic("session.New: assigner, clock, and logger must be non-nil")
	}
	if opts.MaxPlayers > 6 || opts.MaxPlayers < opts.MinPlayers || opts.MinPlayers < 3 {
		panic(fmt.Sprintf("session.New: invalid player bounds [%d, %d]", opts.MinPlayers, opts.MaxPlayers))
	}
	assigner.minPlayers = opts.MinPlayers
	return &Session{
		opts:     opts,
		assigner: assigner,
		clock:    clk,
		logger:   logger,
		state:    StateWaitingForPlayers,
		registry: newRegistry(opts.MaxPlayers),
		ballots:  newBallotBox(opts.OneVotePerPlayer),
		timers:   make(map[timerKind]armedTimer),
	}
}

// Register adds a player and their notification target to the roster.
//
// Postcondition: Returns nil and broadcasts the state on success; otherwise
// returns an error wrapping ErrRegistration and leaves the roster unchanged.
func (s *Session) Register(name string, target Notifier) error {
	if target == nil {
		return fmt.Errorf("registering %q: nil notifier: %w", name, ErrInvalidName)
	}
	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry.len() >= s.opts.MaxPlayers {
		return fmt.Errorf("registering %q: %w", name, ErrCapacityExceeded)
	}
	if s.state != StateWaitingForPlayers {
		return fmt.Errorf("registering %q in state %s: %w", name, s.state, ErrNotAcceptingPlayers)
	}
	if _, err := s.registry.add(name, target); err != nil {
		return err
	}
	s.logger.Info("player registered",
		zap.String("player", name),
		zap.Int("players", s.registry.len()),
	)
	s.broadcastStateLocked()
	return nil
}

// Unregister removes a player from the lobby. It only succeeds while the
// session is waiting for players; once a game starts the roster is fixed.
func (s *Session) Unregister(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWaitingForPlayers {
		return false
	}
	if !s.registry.remove(name) {
		return false
	}
	s.logger.Info("player left lobby", zap.String("player", name), zap.Int("players", s.registry.len()))
	s.broadcastStateLocked()
	return true
}

// Start assigns roles and words and schedules round 1.
//
// Precondition: state is WaitingForPlayers with at least MinPlayers players.
// Postcondition: on success exactly one player is the imposter, every player
// has been sent their assignment, and state is WordDistribution.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWaitingForPlayers {
		return fmt.Errorf("starting in state %s: %w", s.state, ErrInvalidTransition)
	}
	if n := s.registry.len(); n < s.opts.MinPlayers {
		return fmt.Errorf("starting with %d of %d players: %w", n, s.opts.MinPlayers, ErrInsufficientPlayers)
	}

	s.setStateLocked(StateStarting)
	assignment, err := s.assigner.Assign(s.registry.names())
	if err != nil {
		s.setStateLocked(StateWaitingForPlayers)
		return fmt.Errorf("assigning roles: %w", err)
	}

	s.gameID = uuid.NewString()
	s.imposterName = assignment.ImposterName
	s.round = 0
	s.playerIndex = 0
	s.outcome = nil
	for _, p := range s.registry.players {
		pa := assignment.For(p.Name)
		p.IsImposter = pa.IsImposter
		p.Word = pa.Word
		p.Hint = pa.Hint
		s.notifyLocked(p.Name, "word_assignment", func(n Notifier) error {
			return n.WordAssigned(pa)
		})
	}
	s.logger.Info("game started",
		zap.String("game_id", s.gameID),
		zap.Int("players", s.registry.len()),
		zap.String("category", assignment.Category),
	)

	s.setStateLocked(StateWordDistribution)
	s.armLocked(timerAdvance, s.opts.StartDelay, s.enterNextRoundLocked)
	return nil
}

// SubmitTurnAction delivers a clue from playerName. It reports whether the
// clue was accepted; anything other than a non-empty clue from the active
// player during a round is ignored.
func (s *Session) SubmitTurnAction(playerName, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitTurnActionLocked(playerName, message)
}

// SubmitVote records voterName's vote for targetName and reports whether it
// was counted. Votes outside the voting phase or for unknown players are
// ignored, as are repeat votes when one vote per player is enforced.
func (s *Session) SubmitVote(voterName, targetName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.castVoteLocked(voterName, targetName)
}

// Replay resets the session for a new game with the same roster. It is
// accepted in any state and cancels every outstanding countdown.
//
// Postcondition: state is WaitingForPlayers, the roster is unchanged, and no
// player has a role, word, hint, or votes.
func (s *Session) Replay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmAllLocked()
	previous := s.gameID
	s.round = 0
	s.playerIndex = 0
	s.imposterName = ""
	s.gameID = ""
	s.outcome = nil
	s.ballots.reset()
	for _, p := range s.registry.players {
		p.reset()
	}
	s.logger.Info("session reset for replay",
		zap.String("previous_game_id", previous),
		zap.Stringer("from_state", s.state),
	)
	s.setStateLocked(StateWaitingForPlayers)
}

// Close cancels every pending countdown. Called on shutdown after the
// frontends have stopped, so no further input can re-arm a timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmAllLocked()
	s.logger.Info("session closed", zap.Stringer("state", s.state))
}

// Players returns a copy of the roster in registration order.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.snapshot()
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a summary of the current phase and turn.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		GameID:    s.gameID,
		State:     s.state,
		Round:     s.round,
		TurnLimit: s.opts.TurnLimit,
		Players:   s.registry.len(),
		Capacity:  s.opts.MaxPlayers,
	}
	if s.state.IsRound() && s.playerIndex < s.registry.len() {
		st.ActivePlayer = s.registry.at(s.playerIndex).Name
	}
	return st
}

// Outcome returns the result of the most recent voting phase, if the current
// game has reached one.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	out := *s.outcome
	out.Votes = make(map[string]int, len(s.outcome.Votes))
	for k, v := range s.outcome.Votes {
		out.Votes[k] = v
	}
	return out, true
}

// setStateLocked changes the phase and broadcasts it.
//
// Precondition: s.mu is held.
func (s *Session) setStateLocked(state State) {
	s.logger.Info("state changed",
		zap.Stringer("from", s.state),
		zap.Stringer("to", state),
		zap.String("game_id", s.gameID),
	)
	s.state = state
	s.broadcastStateLocked()
}

// broadcastStateLocked sends the current phase to every registered player.
func (s *Session) broadcastStateLocked() {
	state := s.state
	for _, name := range s.registry.names() {
		s.notifyLocked(name, "state_changed", func(n Notifier) error {
			return n.StateChanged(state)
		})
	}
}

// notifyLocked delivers one notification to the named player. A failing or
// panicking target is logged and skipped.
//
// Precondition: s.mu is held.
func (s *Session) notifyLocked(name, event string, deliver func(Notifier) error) {
	target := s.registry.target(name)
	if target == nil {
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("notifier panic: %v", r)
			}
		}()
		return deliver(target)
	}()
	if err != nil {
		s.logger.Warn("notification failed",
			zap.String("player", name),
			zap.String("event", event),
			zap.Error(fmt.Errorf("%w: %w", ErrNotificationDelivery, err)),
		)
	}
}
