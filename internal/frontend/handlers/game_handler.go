package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/imposter/internal/frontend/telnet"
	"github.com/cory-johannsen/imposter/internal/game/session"
	"github.com/cory-johannsen/imposter/internal/gameserver"
)

const welcomeBanner = "\r\n" +
	"\033[93m  ___                       _\r\n" +
	" |_ _|_ __ ___  _ __   ___  ___| |_ ___ _ __\r\n" +
	"  | || '_ ` _ \\| '_ \\ / _ \\/ __| __/ _ \\ '__|\r\n" +
	"  | || | | | | | |_) | (_) \\__ \\ ||  __/ |\r\n" +
	" |___|_| |_| |_| .__/ \\___/|___/\\__\\___|_|\r\n" +
	"               |_|\033[0m\r\n" +
	"\r\n" +
	"Everyone gets the secret word except one player: the imposter.\r\n" +
	"Give a clue each round, then vote out the imposter.\r\n\r\n"

// maxNameAttempts bounds how many names a client may try before being dropped.
const maxNameAttempts = 5

// GameHandler runs one Telnet player's connection. It implements telnet.Handler.
type GameHandler struct {
	lobby      gameserver.Lobby
	dispatcher *gameserver.Dispatcher
	logger     *zap.Logger
	outboxSize int
}

// NewGameHandler creates a GameHandler.
//
// Precondition: lobby, dispatcher, and logger must be non-nil.
func NewGameHandler(lobby gameserver.Lobby, dispatcher *gameserver.Dispatcher, logger *zap.Logger) *GameHandler {
	if lobby == nil || dispatcher == nil || logger == nil {
		panic("handlers.NewGameHandler: lobby, dispatcher, and logger must be non-nil")
	}
	return &GameHandler{
		lobby:      lobby,
		dispatcher: dispatcher,
		logger:     logger,
		outboxSize: gameserver.DefaultOutboxSize,
	}
}

// HandleConn asks for a name, joins the lobby, and relays events and commands
// until the player quits or the connection drops.
//
// Postcondition: the player's outbox is closed, and the player has left the
// roster if the game had not started.
func (h *GameHandler) HandleConn(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	addr := conn.RemoteAddr().String()

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	name, outbox, err := h.join(conn)
	if err != nil {
		return err
	}
	logger := h.logger.With(zap.String("player", name), zap.String("conn_id", outbox.ID()))
	logger.Info("player joined via telnet", zap.String("remote_addr", addr))

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.forward(ctx, conn, outbox, name)
	}()

	defer func() {
		_ = outbox.Close()
		cancel()
		wg.Wait()
		if h.lobby.Unregister(name) {
			logger.Info("player left lobby")
		}
		logger.Info("telnet session ended", zap.Duration("duration", time.Since(start)))
	}()

	// Registration already queued the lobby state, so the forwarder draws the first prompt.
	return h.commandLoop(ctx, conn, name)
}

// join prompts until a name is accepted.
//
// Postcondition: Returns the registered name and its open outbox, or an error
// after the connection fails, the lobby refuses new players, or too many
// rejected names.
func (h *GameHandler) join(conn *telnet.Conn) (string, *gameserver.Outbox, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "What is your name? ")); err != nil {
			return "", nil, fmt.Errorf("writing name prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That name is too long."))
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("reading name: %w", err)
		}

		name := strings.TrimSpace(line)
		outbox := gameserver.NewOutbox(name, h.outboxSize)
		err = h.lobby.Register(name, outbox)
		switch {
		case err == nil:
			return outbox.Player(), outbox, nil
		case errors.Is(err, session.ErrNameTaken):
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That name is already taken."))
		case errors.Is(err, session.ErrInvalidName):
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Please enter a name."))
		case errors.Is(err, session.ErrCapacityExceeded):
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Sorry, the game is full."))
			return "", nil, err
		case errors.Is(err, session.ErrNotAcceptingPlayers):
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "A game is already in progress. Try again later."))
			return "", nil, err
		default:
			return "", nil, fmt.Errorf("registering player: %w", err)
		}
	}
	_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Too many attempts. Goodbye."))
	return "", nil, errors.New("too many rejected names")
}

// commandLoop reads lines and dispatches them until quit or a read error.
func (h *GameHandler) commandLoop(ctx context.Context, conn *telnet.Conn, name string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That line is too long."))
			_ = conn.WritePrompt(Prompt(name))
			continue
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		reply := h.dispatcher.Dispatch(name, line)
		for _, ev := range reply.Events {
			if text := RenderEvent(ev); text != "" {
				_ = conn.WriteLine(text)
			}
		}
		if reply.Quit {
			return nil
		}
		_ = conn.WritePrompt(Prompt(name))
	}
}

// forward writes queued game events to the connection, re-drawing the prompt
// after each one.
func (h *GameHandler) forward(ctx context.Context, conn *telnet.Conn, outbox *gameserver.Outbox, name string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-outbox.Events():
			if !ok {
				return
			}
			text := RenderEvent(ev)
			if text == "" {
				continue
			}
			if err := conn.WriteLine("\r\n" + text); err != nil {
				return
			}
			_ = conn.WritePrompt(Prompt(name))
		}
	}
}
