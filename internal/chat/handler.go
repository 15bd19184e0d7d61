package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/countbot/internal/frontend/telnet"
	"github.com/cory-johannsen/countbot/internal/game/command"
	"github.com/cory-johannsen/countbot/internal/game/count"
)

const welcomeBanner = `
` + telnet.Bold + telnet.BrightCyan + `
   ██████╗ ██████╗ ██╗   ██╗███╗   ██╗████████╗
  ██╔════╝██╔═══██╗██║   ██║████╗  ██║╚══██╔══╝
  ██║     ██║   ██║██║   ██║██╔██╗ ██║   ██║
  ██║     ██║   ██║██║   ██║██║╚██╗██║   ██║
  ╚██████╗╚██████╔╝╚██████╔╝██║ ╚████║   ██║
   ╚═════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═══╝   ╚═╝` + telnet.Reset + `

` + telnet.BrightYellow + `  The counting room. One number per message, no counting twice in a row.` + telnet.Reset + `

  Type the next number to count. Arithmetic works too: ` + telnet.Green + `2+2` + telnet.Reset + `, ` + telnet.Green + `sqrt(25)` + telnet.Reset + `, ` + telnet.Green + `six` + telnet.Reset + `.
  Type ` + telnet.Green + `/help` + telnet.Reset + ` for commands, ` + telnet.Green + `/quit` + telnet.Reset + ` to leave.
`

// Handler implements telnet.SessionHandler: it runs the nickname prompt,
// joins the user to the counting room, and processes chat, counting
// submissions, and slash commands until the session ends.
type Handler struct {
	rooms      *Manager
	game       *count.Service
	registry   *command.Registry
	logger     *zap.Logger
	room       string
	boardLimit int
}

// NewHandler creates a Handler.
//
// Precondition: rooms, game, registry, and logger must be non-nil; room
// must be non-empty; boardLimit must be positive.
// Postcondition: Returns a Handler ready to handle sessions.
func NewHandler(rooms *Manager, game *count.Service, registry *command.Registry, logger *zap.Logger, room string, boardLimit int) *Handler {
	return &Handler{
		rooms:      rooms,
		game:       game,
		registry:   registry,
		logger:     logger,
		room:       room,
		boardLimit: boardLimit,
	}
}

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: Returns nil on clean quit, or an error if the session
// ended abnormally. The session is always removed from the room.
func (h *Handler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	sess, err := h.login(ctx, conn)
	if err != nil {
		return err
	}
	if sess == nil {
		// The user quit at the nickname prompt.
		return nil
	}
	// Writer goroutine: drains the outbox so broadcasts from other
	// sessions reach this client. Leave closes the outbox, which ends the
	// goroutine; the defers below run in reverse order so the drain wait
	// happens after Leave.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for line := range sess.Outbox.Lines() {
			if err := conn.WriteLine(line); err != nil {
				return
			}
		}
	}()
	defer func() { <-writeDone }()
	defer func() {
		_ = h.rooms.Leave(sess.UID)
		h.rooms.Broadcast(sess.Room, telnet.Colorf(telnet.Dim, "* %s left the room", sess.Nick))
		h.logger.Info("chat session ended",
			zap.String("remote_addr", addr),
			zap.String("nick", sess.Nick),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	h.rooms.Broadcast(sess.Room, telnet.Colorf(telnet.Dim, "* %s joined the room", sess.Nick))

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := h.dispatch(ctx, conn, sess, line[1:])
			if err != nil {
				return err
			}
			if quit {
				_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Goodbye!"))
				return nil
			}
			continue
		}

		if err := h.submit(ctx, conn, sess, line); err != nil {
			return err
		}
	}
}

// login runs the nickname prompt until the user picks an available nick
// or quits. Returns (nil, nil) on quit.
func (h *Handler) login(ctx context.Context, conn *telnet.Conn) (*Session, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "Nickname: ")); err != nil {
			return nil, fmt.Errorf("writing prompt: %w", err)
		}

		nick, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("reading nickname: %w", err)
		}

		nick = strings.TrimSpace(nick)
		switch {
		case nick == "":
			continue
		case strings.EqualFold(nick, "quit"):
			return nil, nil
		case !validNick(nick):
			_ = conn.WriteLine(telnet.Colorize(telnet.Red,
				"Nicknames are 2-24 letters, digits, '-' or '_'."))
			continue
		}

		sess, err := h.rooms.Join(uuid.NewString(), nick, h.room)
		if err != nil {
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "That nickname is taken: %v", err))
			continue
		}

		_ = conn.WriteLine(telnet.Colorf(telnet.Green, "Welcome, %s! You are counting in #%s.", nick, h.room))
		return sess, nil
	}
}

// submit runs one chat line through the counting game and renders the
// verdict to the room.
func (h *Handler) submit(ctx context.Context, conn *telnet.Conn, sess *Session, line string) error {
	verdict, err := h.game.Process(ctx, line, sess.Room, userID(sess.Nick))
	if err != nil {
		h.logger.Error("processing submission",
			zap.String("nick", sess.Nick),
			zap.Error(err),
		)
		// The state did not change; the user may safely retry.
		return conn.WriteLine(telnet.Colorize(telnet.Red,
			"Something went wrong saving the count. Try again."))
	}

	switch verdict.Kind {
	case count.VerdictNotANumber:
		h.rooms.Broadcast(sess.Room, fmt.Sprintf("[%s] %s", sess.Nick, line))

	case count.VerdictAccepted:
		msg := telnet.Colorf(telnet.Green, "[%s] %d", sess.Nick, verdict.Value)
		if verdict.Prime {
			msg += telnet.Colorize(telnet.BrightCyan, " (prime!)")
		}
		h.rooms.Broadcast(sess.Room, msg)
		if verdict.Milestone != "" {
			h.rooms.Broadcast(sess.Room, telnet.Colorize(telnet.BrightYellow, verdict.Milestone))
		}

	case count.VerdictRejected:
		var reason string
		if verdict.Value == verdict.Expected {
			reason = "you can't count twice in a row"
		} else {
			reason = fmt.Sprintf("the next number was %d", verdict.Expected)
		}
		h.rooms.Broadcast(sess.Room, telnet.Colorf(telnet.BrightRed,
			"%s RUINED the count at %d (%s). The count resets to 1.",
			sess.Nick, verdict.Value, reason))
	}
	return nil
}

// dispatch resolves and executes one slash command. The bool result
// reports whether the session should end.
func (h *Handler) dispatch(ctx context.Context, conn *telnet.Conn, sess *Session, line string) (bool, error) {
	parsed := command.Parse(line)
	if parsed.Command == "" {
		return false, nil
	}

	cmd, ok := h.registry.Resolve(parsed.Command)
	if !ok {
		return false, conn.WriteLine(telnet.Colorf(telnet.Red,
			"Unknown command %q. Type /help for commands.", parsed.Command))
	}

	switch cmd.Handler {
	case command.HandlerQuit:
		return true, nil
	case command.HandlerHelp:
		return false, h.cmdHelp(conn)
	case command.HandlerWho:
		return false, h.cmdWho(conn, sess)
	case command.HandlerStats:
		return false, h.cmdStats(ctx, conn, sess, parsed.Args)
	case command.HandlerTop:
		args := parsed.Args
		if len(args) == 0 && cmd.Name != "top" {
			// /primes and /fails are category shortcuts.
			args = []string{cmd.Name}
		}
		return false, h.cmdTop(ctx, conn, sess, args)
	case command.HandlerNextPrime:
		return false, h.cmdNextPrime(ctx, conn, sess)
	}
	return false, conn.WriteLine(telnet.Colorf(telnet.Red, "Command %q is not wired up.", cmd.Name))
}

// cmdHelp lists commands grouped by category.
func (h *Handler) cmdHelp(conn *telnet.Conn) error {
	byCategory := h.registry.CommandsByCategory()
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		if err := conn.WriteLine(telnet.Colorf(telnet.Bold, "%s:", cat)); err != nil {
			return err
		}
		cmds := byCategory[cat]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		for _, cmd := range cmds {
			alias := ""
			if len(cmd.Aliases) > 0 {
				alias = " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			if err := conn.WriteLine(fmt.Sprintf("  /%-12s%s %s", cmd.Name, alias, cmd.Help)); err != nil {
				return err
			}
		}
	}
	return nil
}

// cmdWho lists the nicks in the session's room.
func (h *Handler) cmdWho(conn *telnet.Conn, sess *Session) error {
	nicks := h.rooms.NicksInRoom(sess.Room)
	sort.Strings(nicks)
	return conn.WriteLine(telnet.Colorf(telnet.Cyan, "In #%s: %s", sess.Room, strings.Join(nicks, ", ")))
}

// cmdStats shows one user's counting statistics. With no argument it
// shows the caller's own.
func (h *Handler) cmdStats(ctx context.Context, conn *telnet.Conn, sess *Session, args []string) error {
	nick := sess.Nick
	if len(args) > 0 {
		nick = args[0]
	}

	stat, err := h.game.UserStats(ctx, sess.Room, userID(nick))
	if err != nil {
		if errors.Is(err, count.ErrUserNotFound) {
			return conn.WriteLine(telnet.Colorf(telnet.Yellow, "%s has not counted yet.", nick))
		}
		h.logger.Error("querying user stats", zap.String("nick", nick), zap.Error(err))
		return conn.WriteLine(telnet.Colorize(telnet.Red, "Stats are unavailable right now."))
	}

	lines := []string{
		telnet.Colorf(telnet.Bold, "Stats for %s in #%s:", nick, sess.Room),
		fmt.Sprintf("  counts: %d   fails: %d   primes: %d", stat.Successes, stat.Fails, stat.PrimesHit),
		fmt.Sprintf("  high score: %d   last count: %d", stat.PersonalHighScore, stat.LastSuccessValue),
	}
	if !stat.LastFailAt.IsZero() {
		lines = append(lines, fmt.Sprintf("  last ruined at %d on %s",
			stat.LastFailValue, stat.LastFailAt.Format("2006-01-02")))
	}
	for _, l := range lines {
		if err := conn.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

// cmdTop shows the room leaderboard for a category (default successes).
func (h *Handler) cmdTop(ctx context.Context, conn *telnet.Conn, sess *Session, args []string) error {
	category := count.CategorySuccesses
	if len(args) > 0 {
		parsed, err := count.ParseCategory(strings.ToLower(args[0]))
		if err != nil {
			return conn.WriteLine(telnet.Colorize(telnet.Red,
				"Categories are: successes, primes, fails."))
		}
		category = parsed
	}

	entries, err := h.game.Leaderboard(ctx, sess.Room, category, h.boardLimit)
	if err != nil {
		h.logger.Error("querying leaderboard", zap.Error(err))
		return conn.WriteLine(telnet.Colorize(telnet.Red, "The leaderboard is unavailable right now."))
	}
	if len(entries) == 0 {
		return conn.WriteLine(telnet.Colorf(telnet.Yellow, "Nobody has any %s in #%s yet.", category, sess.Room))
	}

	if err := conn.WriteLine(telnet.Colorf(telnet.Bold, "Top %s in #%s:", category, sess.Room)); err != nil {
		return err
	}
	for i, e := range entries {
		if err := conn.WriteLine(fmt.Sprintf("  %2d. %-24s %d", i+1, e.UserID, e.Score)); err != nil {
			return err
		}
	}
	return nil
}

// cmdNextPrime shows the next prime at or above the expected count.
func (h *Handler) cmdNextPrime(ctx context.Context, conn *telnet.Conn, sess *Session) error {
	p, err := h.game.NextPrime(ctx, sess.Room)
	if err != nil {
		h.logger.Error("querying next prime", zap.Error(err))
		return conn.WriteLine(telnet.Colorize(telnet.Red, "The next prime is unavailable right now."))
	}
	return conn.WriteLine(telnet.Colorf(telnet.Cyan, "The next prime is %d.", p))
}

// userID maps a nickname to the stable per-user key used by the store.
func userID(nick string) string {
	return strings.ToLower(nick)
}

// validNick reports whether nick is 2-24 characters of letters, digits,
// hyphen, or underscore.
func validNick(nick string) bool {
	if len(nick) < 2 || len(nick) > 24 {
		return false
	}
	for _, r := range nick {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
