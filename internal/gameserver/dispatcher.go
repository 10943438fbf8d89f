package gameserver

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/imposter/internal/game/command"
	"github.com/cory-johannsen/imposter/internal/game/session"
)

// Game is the subset of the session that player commands drive.
type Game interface {
	Start() error
	SubmitTurnAction(playerName, message string) bool
	SubmitVote(voterName, targetName string) bool
	Replay()
	Players() []session.Player
	Status() session.Status
}

// Reply is what the issuing player gets back from a command. Broadcast
// effects (state changes, clues) arrive separately through the outboxes.
type Reply struct {
	Events []Event
	// Quit asks the transport to close the connection.
	Quit bool
}

func reply(evs ...Event) Reply {
	return Reply{Events: evs}
}

// categoryOrder fixes the order of sections in help output.
var categoryOrder = []string{command.CategoryGame, command.CategoryCommunication, command.CategorySystem}

// Dispatcher parses player input and applies it to the game.
type Dispatcher struct {
	game     Game
	registry *command.Registry
	logger   *zap.Logger
	help     string
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: game, registry, and logger must be non-nil.
func NewDispatcher(game Game, registry *command.Registry, logger *zap.Logger) *Dispatcher {
	if game == nil || registry == nil || logger == nil {
		panic("gameserver.NewDispatcher: game, registry, and logger must be non-nil")
	}
	return &Dispatcher{
		game:     game,
		registry: registry,
		logger:   logger,
		help:     renderHelp(registry),
	}
}

// Dispatch runs one line of input from player.
func (d *Dispatcher) Dispatch(player, line string) Reply {
	parsed := command.Parse(line)
	if parsed.Command == "" {
		return Reply{}
	}
	cmd, ok := d.registry.Resolve(parsed.Command)
	if !ok {
		return reply(ErrorEvent(fmt.Sprintf("Unknown command %q. Type 'help' for a list of commands.", parsed.Command)))
	}
	if len(parsed.Args) < cmd.MinArgs {
		return reply(ErrorEvent("Usage: " + cmd.Usage))
	}
	d.logger.Debug("dispatching command",
		zap.String("player", player),
		zap.String("command", cmd.Name),
	)

	switch cmd.Handler {
	case command.HandlerStart:
		return d.start(player)
	case command.HandlerClue:
		return d.clue(player, parsed.RawArgs)
	case command.HandlerVote:
		return d.vote(player, parsed.RawArgs)
	case command.HandlerReplay:
		d.game.Replay()
		return Reply{}
	case command.HandlerWho:
		st := d.game.Status()
		return reply(PlayersEvent(PublicRoster(d.game.Players(), st.State)))
	case command.HandlerStatus:
		return reply(StatusEvent(d.game.Status()))
	case command.HandlerHelp:
		return reply(InfoEvent(d.help))
	case command.HandlerQuit:
		return Reply{Events: []Event{InfoEvent("Goodbye.")}, Quit: true}
	default:
		d.logger.Error("command has no handler", zap.String("command", cmd.Name), zap.String("handler", cmd.Handler))
		return reply(ErrorEvent("That command is not available."))
	}
}

func (d *Dispatcher) start(player string) Reply {
	err := d.game.Start()
	switch {
	case err == nil:
		d.logger.Info("game started by player", zap.String("player", player))
		return Reply{}
	case errors.Is(err, session.ErrInsufficientPlayers):
		st := d.game.Status()
		return reply(ErrorEvent(fmt.Sprintf("Not enough players to start (%d joined).", st.Players)))
	case errors.Is(err, session.ErrInvalidTransition):
		return reply(ErrorEvent("The game has already started."))
	default:
		d.logger.Warn("start failed", zap.String("player", player), zap.Error(err))
		return reply(ErrorEvent("The game could not be started."))
	}
}

func (d *Dispatcher) clue(player, text string) Reply {
	if d.game.SubmitTurnAction(player, text) {
		return Reply{}
	}
	st := d.game.Status()
	if !st.State.IsRound() {
		return reply(ErrorEvent("Clues can only be given during a round."))
	}
	return reply(ErrorEvent("It is not your turn."))
}

func (d *Dispatcher) vote(player, target string) Reply {
	target = strings.TrimSpace(target)
	if name, ok := d.lookup(target); ok {
		target = name
	} else {
		return reply(ErrorEvent(fmt.Sprintf("There is no player named %q.", target)))
	}
	if d.game.SubmitVote(player, target) {
		return reply(InfoEvent(fmt.Sprintf("Your vote for %s has been recorded.", target)))
	}
	if d.game.Status().State != session.StateVoting {
		return reply(ErrorEvent("Voting is not open."))
	}
	return reply(ErrorEvent("You have already voted."))
}

// lookup resolves a player name case-insensitively, preferring an exact match.
func (d *Dispatcher) lookup(name string) (string, bool) {
	var folded string
	for _, p := range d.game.Players() {
		if p.Name == name {
			return p.Name, true
		}
		if folded == "" && strings.EqualFold(p.Name, name) {
			folded = p.Name
		}
	}
	return folded, folded != ""
}

func renderHelp(r *command.Registry) string {
	var b strings.Builder
	b.WriteString("Commands:")
	byCat := r.CommandsByCategory()
	for _, cat := range categoryOrder {
		cmds := byCat[cat]
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n  [%s]", cat)
		for _, c := range cmds {
			fmt.Fprintf(&b, "\n    %-14s %s", c.Usage, c.Help)
		}
	}
	return b.String()
}

// Lobby is the session surface a player connection needs: joining, leaving,
// and everything player commands drive.
type Lobby interface {
	Game
	Register(name string, target session.Notifier) error
	Unregister(name string) bool
}
