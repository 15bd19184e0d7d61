// Package command provides the command registry, parser, and built-in command definitions.
package command

// Categories for organizing commands.
const (
	CategoryGame   = "game"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to session handler actions.
const (
	HandlerHelp      = "help"
	HandlerStats     = "stats"
	HandlerTop       = "top"
	HandlerNextPrime = "nextprime"
	HandlerWho       = "who"
	HandlerQuit      = "quit"
)

// Command defines a user-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to users.
	Help string
	// Category groups the command (game, system).
	Category string
	// Handler maps to the session handler action.
	Handler string
}

// BuiltinCommands returns all built-in commands for the counting server.
func BuiltinCommands() []Command {
	return []Command{
		// Game commands
		{Name: "stats", Aliases: []string{"st"}, Help: "Show counting stats (stats [nick])", Category: CategoryGame, Handler: HandlerStats},
		{Name: "top", Aliases: []string{"leaderboard", "lb"}, Help: "Show the leaderboard (top [successes|primes|fails])", Category: CategoryGame, Handler: HandlerTop},
		{Name: "primes", Aliases: nil, Help: "Show the primes leaderboard", Category: CategoryGame, Handler: HandlerTop},
		{Name: "fails", Aliases: nil, Help: "Show the fails leaderboard", Category: CategoryGame, Handler: HandlerTop},
		{Name: "nextprime", Aliases: []string{"np"}, Help: "Show the next prime at or above the expected count", Category: CategoryGame, Handler: HandlerNextPrime},

		// System commands
		{Name: "who", Aliases: nil, Help: "List users in the room", Category: CategorySystem, Handler: HandlerWho},
		{Name: "quit", Aliases: []string{"exit"}, Help: "Disconnect from the server", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}
