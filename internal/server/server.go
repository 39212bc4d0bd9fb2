// Package server runs the poker room: a websocket endpoint where clients
// queue for tables by the game they want, and the tables that seat them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/internal/randutil"
)

const shutdownTimeout = 5 * time.Second

// Server represents the WebSocket server
type Server struct {
	cfg      *Config
	upgrader websocket.Upgrader
	lobby    *Lobby
	logger   *log.Logger
	clock    quartz.Clock
	rng      *rand.Rand

	mu          sync.Mutex
	connections map[*Connection]struct{}
}

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock used for decision timeouts
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithRand sets the generator that seeds every table
func WithRand(rng *rand.Rand) Option {
	return func(s *Server) { s.rng = rng }
}

// NewServer creates a new WebSocket server
func NewServer(cfg *Config, logger *log.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			// Origins are enforced by the CORS layer
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.rng == nil {
		if cfg.Lobby.Seed != 0 {
			s.rng = randutil.New(cfg.Lobby.Seed)
		} else {
			s.rng = randutil.NewFromTime()
		}
	}

	lobby, err := NewLobby(cfg.Lobby, s.clock, s.rng, logger)
	if err != nil {
		return nil, err
	}
	s.lobby = lobby
	return s, nil
}

// Lobby returns the server's lobby
func (s *Server) Lobby() *Lobby { return s.lobby }

// Handler returns the server's HTTP routes wrapped in CORS, access logging
// and panic recovery.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(s.handleWebSocket)
	r.Methods(http.MethodGet).Path("/health").HandlerFunc(s.handleHealth)
	r.Methods(http.MethodGet).Path("/tables").HandlerFunc(s.handleTables)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})

	accessLog := s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}).Writer()
	errorLog := s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel})

	var h http.Handler = c.Handler(r)
	h = handlers.CombinedLoggingHandler(accessLog, h)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(errorLog), handlers.PrintRecoveryStack(true))(h)
}

// Run serves until ctx is cancelled, then shuts down the listener, the
// lobby and every open connection.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Stop()
		return err
	})
	return g.Wait()
}

// Stop closes the lobby and every open connection
func (s *Server) Stop() {
	s.lobby.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.lobby, s.logger)
	s.mu.Lock()
	s.connections[client] = struct{}{}
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)

	client.Start()

	go func() {
		<-client.Done()
		s.mu.Lock()
		delete(s.connections, client)
		total := len(s.connections)
		s.mu.Unlock()
		s.logger.Info("Client disconnected", "total", total)
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// handleTables lists the running tables as JSON
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.lobby.Tables()); err != nil {
		s.logger.Error("Failed to encode tables", "error", err)
	}
}
