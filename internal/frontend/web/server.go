// Package web serves the game over HTTP: a JSON websocket for players plus
// small read-only endpoints for lobby screens and health checks.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/cory-johannsen/imposter/internal/config"
	"github.com/cory-johannsen/imposter/internal/game/session"
	"github.com/cory-johannsen/imposter/internal/gameserver"
)

const (
	httpTimeout = 10 * time.Second
	qrSize      = 320
)

// Server is the HTTP and websocket frontend.
type Server struct {
	cfg        config.WebConfig
	lobby      gameserver.Lobby
	dispatcher *gameserver.Dispatcher
	version    string
	logger     *zap.Logger

	router   *httprouter.Router
	srv      *http.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	clients  map[*client]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// NewServer creates a Server and registers its routes under cfg.Prefix.
//
// Precondition: lobby, dispatcher, and logger must be non-nil.
func NewServer(cfg config.WebConfig, lobby gameserver.Lobby, dispatcher *gameserver.Dispatcher, version string, logger *zap.Logger) *Server {
	if lobby == nil || dispatcher == nil || logger == nil {
		panic("web.NewServer: lobby, dispatcher, and logger must be non-nil")
	}
	s := &Server{
		cfg:        cfg,
		lobby:      lobby,
		dispatcher: dispatcher,
		version:    version,
		logger:     logger,
		router:     httprouter.New(),
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	prefix := strings.TrimSuffix(cfg.Prefix, "/")
	s.router.GET(prefix+"/ws", s.serveWS)
	s.router.GET(prefix+"/players", s.servePlayers)
	s.router.GET(prefix+"/state", s.serveState)
	s.router.GET(prefix+"/qr", s.serveQR)
	s.router.GET(prefix+"/healthz", s.serveHealth)
	s.router.GET(prefix+"/version", s.serveVersion)
	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.logger.Error("http handler panic", zap.String("path", r.URL.Path), zap.Any("panic", v))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	s.srv = &http.Server{
		Handler:           s.router,
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: httpTimeout,
	}
	return s
}

// Handler returns the router, for mounting or testing without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. Port 0 picks a free port; see Addr.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("web server listening", zap.String("addr", ln.Addr().String()), zap.String("prefix", s.cfg.Prefix))
	return nil
}

// Serve handles requests until Shutdown.
//
// Precondition: Listen has succeeded.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("web server: Serve called before Listen")
	}
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests, disconnects every websocket client, and
// waits for their handlers to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)

	s.mu.Lock()
	s.closing = true
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	s.logger.Info("web server stopped")
	return err
}

// playersResponse is the body of GET /players.
type playersResponse struct {
	State   session.State    `json:"state"`
	Players []session.Player `json:"players"`
}

func (s *Server) servePlayers(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	st := s.lobby.Status()
	writeJSON(w, playersResponse{
		State:   st.State,
		Players: gameserver.PublicRoster(s.lobby.Players(), st.State),
	})
}

func (s *Server) serveState(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, s.lobby.Status())
}

// serveQR renders a PNG QR code linking to this server's root, so players in
// the room can join from their phones.
func (s *Server) serveQR(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	link := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr") + "/"

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("qr generation failed", zap.String("link", link), zap.Error(err))
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Ok\n"))
}

func (s *Server) serveVersion(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("imposter v" + s.version + "\n"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
