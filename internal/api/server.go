// Package api is the HTTP transport: routing, middleware, the
// fixed-window rate limiter, and the streaming response assembler.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/salmanfarse/folio/internal/chat"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/session"
)

// ServerConfig carries the server's collaborators and knobs.
type ServerConfig struct {
	Logger       log.Logger
	Orchestrator *chat.Orchestrator
	Store        session.Store
	RateLimit    int           // requests per client per window
	RateWindow   time.Duration // fixed rate-limit window
	CORSOrigins  []string
	TrustProxy   bool
}

// Server is the chat API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires routes and the middleware stack. Order, outermost
// first: recovery, request id, logging, CORS, rate limit, routes.
// CORS sits outside the limiter so preflights carry proper headers.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 20
	}
	window := cfg.RateWindow
	if window <= 0 {
		window = time.Minute
	}

	ch := &chatHandler{
		orchestrator: cfg.Orchestrator,
		assembler:    &assembler{store: cfg.Store, logger: logger.With("component", "stream")},
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.handle)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(NewRateLimiter(limit, window), cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", health(logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
