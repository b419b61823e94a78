// Package server exposes the scheduling engine over HTTP with dual
// authentication: a shared service secret for service-to-service calls and
// bearer-token verification for delegated user identity.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/homedeskhq/homedesk/internal/service"
	"github.com/homedeskhq/homedesk/pkg/auth"
)

// Config holds the server's listen address and auth material.
type Config struct {
	Addr string

	// ServiceSecret is the expected x-service-secret header. Empty
	// disables the header check.
	ServiceSecret string
}

// Server is the scheduling HTTP server.
type Server struct {
	cfg       Config
	mux       *http.ServeMux
	httpSrv   *http.Server
	logger    *slog.Logger
	engine    *service.Scheduler
	auth      *Authenticator
	startTime time.Time
}

// New creates a Server around the given engine and token manager.
func New(cfg Config, engine *service.Scheduler, tokens *auth.TokenManager, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		engine:    engine,
		auth:      NewAuthenticator(cfg.ServiceSecret, tokens),
		startTime: time.Now(),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.registerRoutes()
	return s
}

// Handler returns the composed handler, useful in tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins listening. It blocks until the server stops; after Stop it
// returns http.ErrServerClosed like the underlying http.Server.
func (s *Server) Start() error {
	s.logger.Info("server listening", slog.String("addr", s.cfg.Addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("POST /recurring-tasks", s.auth.Middleware(http.HandlerFunc(s.handleRecurringTasks)))
}

// response is the uniform JSON envelope.
type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{OK: false, Error: msg})
}
