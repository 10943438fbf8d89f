// Package command provides the command registry, parser, and built-in
// command definitions shared by every player frontend.
package command

// Categories for organizing commands in help output.
const (
	CategoryGame          = "game"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
)

// Handler identifiers mapping commands to session operations.
const (
	HandlerStart  = "start"
	HandlerClue   = "clue"
	HandlerVote   = "vote"
	HandlerReplay = "replay"
	HandlerWho    = "who"
	HandlerStatus = "status"
	HandlerHelp   = "help"
	HandlerQuit   = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "vote <name>".
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command for help output.
	Category string
	// Handler selects the session operation the command maps to.
	Handler string
	// MinArgs is the number of arguments the command requires.
	MinArgs int
}

// BuiltinCommands returns all built-in commands for the game.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "start", Aliases: []string{"begin"}, Usage: "start", Help: "Start the game once enough players have joined", Category: CategoryGame, Handler: HandlerStart},
		{Name: "vote", Aliases: []string{"v", "accuse"}, Usage: "vote <name>", Help: "Vote for the player you think is the imposter", Category: CategoryGame, Handler: HandlerVote, MinArgs: 1},
		{Name: "replay", Aliases: []string{"again"}, Usage: "replay", Help: "Reset the game and play again with the same players", Category: CategoryGame, Handler: HandlerReplay},
		{Name: "status", Aliases: []string{"st"}, Usage: "status", Help: "Show the current phase, round, and whose turn it is", Category: CategoryGame, Handler: HandlerStatus},

		{Name: "say", Aliases: []string{"clue", "'"}, Usage: "say <text>", Help: "Give your clue when it is your turn", Category: CategoryCommunication, Handler: HandlerClue, MinArgs: 1},
		{Name: "who", Aliases: []string{"players"}, Usage: "who", Help: "List the players in registration order", Category: CategoryCommunication, Handler: HandlerWho},

		{Name: "help", Aliases: []string{"?", "commands"}, Usage: "help", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit", "q"}, Usage: "quit", Help: "Leave the game", Category: CategorySystem, Handler: HandlerQuit},
	}
}
