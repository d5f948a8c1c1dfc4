// Package server exposes the agent over HTTP and WebSocket: a small
// JSON API for one-shot questions and session management, plus a
// streaming chat endpoint that relays reasoning-loop events as they
// happen.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marquee-ai/marquee/internal/agent"
	"github.com/marquee-ai/marquee/internal/config"
	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/memory"
	"github.com/marquee-ai/marquee/internal/search"
	"github.com/marquee-ai/marquee/internal/store"
)

const (
	// maxBodyBytes bounds request bodies and WebSocket frames.
	maxBodyBytes = 1 << 20

	// runTimeout is the maximum duration for one agent run.
	runTimeout = 5 * time.Minute

	// healthTimeout bounds the collaborator probes in the health check.
	healthTimeout = 5 * time.Second

	// drainTimeout is how long in-flight requests get to finish on shutdown.
	drainTimeout = 10 * time.Second
)

// Server is the marquee HTTP + WebSocket API server.
type Server struct {
	cfg    config.ServerConfig
	agent  *agent.Orchestrator
	memory memory.Store
	log    *logging.Logger

	// Health collaborators. Any left nil is skipped by the probe.
	movies    store.MovieStore
	index     search.Index
	providers []string

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// Option configures the server.
type Option func(*Server)

// WithMovieStore sets the dataset store probed by the health endpoint.
func WithMovieStore(ms store.MovieStore) Option {
	return func(s *Server) { s.movies = ms }
}

// WithIndex sets the vector index probed by the health endpoint.
func WithIndex(idx search.Index) Option {
	return func(s *Server) { s.index = idx }
}

// WithProviders sets the reasoning provider names reported by the
// health endpoint.
func WithProviders(names []string) Option {
	return func(s *Server) { s.providers = names }
}

// New creates an API server around an orchestrator and its session store.
func New(cfg config.ServerConfig, orch *agent.Orchestrator, mem memory.Store, log *logging.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		agent:  orch,
		memory: mem,
		log:    log.Sub("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fully wrapped HTTP handler: routes, bearer auth,
// then the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = withAuth(h, s.cfg.AuthToken)
	return withMiddleware(h, s.log)
}

// Start begins listening for HTTP and WebSocket connections. It blocks
// until the context is cancelled or an error occurs; cancellation
// triggers a graceful drain.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Listen
	if addr == "" {
		addr = "127.0.0.1:8763"
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Bool("auth", s.cfg.AuthToken != "").
		Msg("api server listening")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
