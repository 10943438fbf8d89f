package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/cory-johannsen/imposter/internal/game/session"
	"github.com/cory-johannsen/imposter/internal/gameserver"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// Inbound is the message a websocket client sends: one command line, in the
// same syntax the Telnet frontend accepts.
type Inbound struct {
	Command string `json:"command"`
}

// client is one connected websocket player.
type client struct {
	name   string
	conn   *websocket.Conn
	outbox *gameserver.Outbox
	logger *zap.Logger

	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// serveWS registers the player named by the "name" query parameter, then
// upgrades to a websocket. Registration happens first so a refusal can be
// reported with a plain HTTP status.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	outbox := gameserver.NewOutbox(name, gameserver.DefaultOutboxSize)
	if err := s.lobby.Register(name, outbox); err != nil {
		_ = outbox.Close()
		http.Error(w, registrationMessage(err), registrationStatus(err))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("player", name), zap.Error(err))
		_ = outbox.Close()
		s.lobby.Unregister(name)
		return
	}

	c := &client{
		name:   name,
		conn:   conn,
		outbox: outbox,
		logger: s.logger.With(zap.String("player", name), zap.String("remote_addr", r.RemoteAddr)),
	}
	if !s.track(c) {
		c.close()
		_ = outbox.Close()
		s.lobby.Unregister(name)
		return
	}
	defer s.untrack(c)

	c.logger.Info("websocket player joined")
	start := time.Now()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	quit := s.readPump(c)
	if !quit {
		c.close()
	}
	_ = outbox.Close()
	<-writerDone
	c.close()

	if s.lobby.Unregister(name) {
		c.logger.Info("player left lobby")
	}
	c.logger.Info("websocket session ended", zap.Duration("duration", time.Since(start)))
}

func (s *Server) track(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.wg.Done()
}

// readPump dispatches inbound commands until the client disconnects or quits.
//
// Postcondition: Returns true only when the player issued quit; replies are
// queued on the client's outbox so the write pump stays the sole writer.
func (s *Server) readPump(c *client) bool {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return false
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.push(gameserver.ErrorEvent(`Messages must look like {"command": "say hello"}.`))
			continue
		}

		reply := s.dispatcher.Dispatch(c.name, msg.Command)
		for _, ev := range reply.Events {
			c.push(ev)
		}
		if reply.Quit {
			return true
		}
	}
}

func (c *client) push(ev gameserver.Event) {
	if err := c.outbox.Push(ev); err != nil {
		c.logger.Warn("dropping reply", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

// writePump sends queued events as JSON and keeps the connection alive with
// pings. It drains the outbox after Close and then sends a close frame.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.outbox.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "goodbye"))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func registrationStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, session.ErrCapacityExceeded), errors.Is(err, session.ErrNotAcceptingPlayers):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func registrationMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidName):
		return "a name is required"
	case errors.Is(err, session.ErrNameTaken):
		return "that name is already taken"
	case errors.Is(err, session.ErrCapacityExceeded):
		return "the game is full"
	case errors.Is(err, session.ErrNotAcceptingPlayers):
		return "a game is already in progress"
	default:
		return "registration failed"
	}
}
