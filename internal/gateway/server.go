// Package gateway serves the assistant over HTTP and WebSocket.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fixter/internal/gateway/handlers"
	"fixter/internal/gateway/middleware"
	"fixter/internal/gateway/websocket"
	"fixter/internal/metrics"
	"fixter/pkg/logger"
)

// VarStore is the variable store used by the vars routes and for query
// interpolation.
type VarStore interface {
	handlers.VarStore
	handlers.Interpolator
}

// Deps are the components served by the gateway. Jobs and WatchPaths are
// optional.
type Deps struct {
	Assistant handlers.Asker
	Sessions  handlers.SessionStore
	Vars      VarStore
	Jobs      handlers.JobRunner
	Hub       *websocket.Hub

	Version  string
	Provider string
	Model    string

	RateLimit  middleware.RateLimiterConfig
	WatchPaths []string
}

// Server represents the HTTP gateway server.
type Server struct {
	addr       string
	httpServer *http.Server
	router     *mux.Router
	hub        *websocket.Hub
	watcher    *Watcher
	deps       Deps

	hubCtx    context.Context
	hubCancel context.CancelFunc
}

// NewServer creates a gateway listening on addr.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Assistant == nil || deps.Sessions == nil || deps.Vars == nil {
		return nil, errors.New("gateway: assistant, sessions and vars are required")
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub()
	}
	if deps.RateLimit.RequestsPerMinute == 0 {
		deps.RateLimit = middleware.DefaultRateLimiterConfig()
	}

	s := &Server{
		addr:   addr,
		router: mux.NewRouter(),
		hub:    deps.Hub,
		deps:   deps,
	}
	s.hubCtx, s.hubCancel = context.WithCancel(context.Background())
	s.setupRoutes()

	// RequestID -> Recovery -> Logging -> CORS -> router
	handler := middleware.RequestID(
		middleware.Recovery(
			middleware.Logging(
				middleware.CORS(s.router),
			),
		),
	)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// an ask runs a whole agent loop; no write timeout
		IdleTimeout: 120 * time.Second,
	}

	s.hub.SetAskHandler(func(ctx context.Context, sessionID, query string) (string, string, error) {
		if expanded, err := deps.Vars.Interpolate(query); err == nil {
			query = expanded
		}
		res, err := deps.Assistant.Process(ctx, query, sessionID)
		return res.Answer, res.Loop, err
	})

	if len(deps.WatchPaths) > 0 {
		w, err := NewWatcher(s.hub, deps.WatchPaths...)
		if err != nil {
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		s.watcher = w
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", handlers.HealthHandler(s.deps.Version, s.deps.Provider, s.deps.Model)).
		Methods(http.MethodGet)

	limiter := middleware.NewRateLimiter(s.deps.RateLimit)
	handlers.NewAskHandler(s.deps.Assistant, s.deps.Vars).RegisterRoutes(s.router, limiter.RateLimit)
	handlers.NewSessionsHandler(s.deps.Sessions).RegisterRoutes(s.router)
	handlers.NewVarsHandler(s.deps.Vars).RegisterRoutes(s.router)
	if s.deps.Jobs != nil {
		handlers.NewJobsHandler(s.deps.Jobs).RegisterRoutes(s.router)
	}

	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWs(s.hub, w, r)
	})

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.SendError(w, http.StatusNotFound, handlers.ErrCodeNotFound, "no route for "+r.URL.Path)
	})
}

// Start runs the hub and watcher and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	handlers.InitStartTime()

	go s.hub.Run(s.hubCtx)

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start workspace watcher")
		}
	}

	logger.Info().Str("addr", ln.Addr().String()).Msg("Starting gateway server")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info().Msg("Shutting down gateway server")

	if s.watcher != nil {
		s.watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)

	s.hubCancel()
	if err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// Handler returns the full middleware chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}
