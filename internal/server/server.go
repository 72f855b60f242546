package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cardmeta/bindex/internal/auth"
	"github.com/cardmeta/bindex/internal/service/directory"
	"github.com/cardmeta/bindex/internal/storage"
	"github.com/cardmeta/bindex/internal/web"
)

// Server is the bindex HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. Sessions, AdminUser and AdminPasswordHash may be left zero; the
// admin UI is then disabled.
type ServerConfig struct {
	Store     storage.Store
	Directory *directory.Service
	Renderer  *web.Renderer
	Sessions  *auth.SessionManager
	Logger    *slog.Logger

	APIKey            string
	AdminUser         string
	AdminPasswordHash string

	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := &Handlers{
		dir:       cfg.Directory,
		store:     cfg.Store,
		sessions:  cfg.Sessions,
		renderer:  cfg.Renderer,
		adminUser: cfg.AdminUser,
		adminHash: cfg.AdminPasswordHash,
		logger:    cfg.Logger,
		version:   cfg.Version,
	}

	// The report endpoint stays open so anyone can file a correction; the
	// rest of the API subtree follows the key policy.
	policy := auth.Policy{
		Key:            cfg.APIKey,
		PublicPrefixes: []string{"/api/report/"},
	}
	keyed := func(next http.HandlerFunc) http.Handler {
		return keyPolicyMiddleware(policy, next)
	}

	mux := http.NewServeMux()

	// JSON API.
	mux.Handle("GET /api/bin/{code}", keyed(h.HandleGetBin))
	mux.Handle("POST /api/bin", keyed(h.HandleCreateBin))
	mux.Handle("PUT /api/bin/{code}", keyed(h.HandleUpdateBin))
	mux.Handle("DELETE /api/bin/{code}", keyed(h.HandleDeleteBin))
	mux.Handle("POST /api/report/{code}", keyed(h.HandleReport))

	// Health (no auth).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Public pages.
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("POST /{$}", h.HandleIndex)
	mux.HandleFunc("GET /report/{code}", h.HandleReportForm)
	mux.HandleFunc("POST /report/{code}", h.HandleReportSubmit)

	// Admin pages behind the session cookie.
	mux.HandleFunc("GET /admin/login", h.HandleLoginForm)
	mux.HandleFunc("POST /admin/login", h.HandleLogin)
	mux.HandleFunc("GET /admin/logout", h.HandleLogout)

	session := h.sessionMiddleware
	mux.Handle("GET /admin", session(http.HandlerFunc(h.HandleAdmin)))
	mux.Handle("POST /admin", session(http.HandlerFunc(h.HandleAdmin)))
	mux.Handle("GET /admin/submissions", session(http.HandlerFunc(h.HandleSubmissions)))
	mux.Handle("GET /admin/submissions/{id}", session(http.HandlerFunc(h.HandleSubmission)))
	mux.Handle("POST /admin/submissions/{id}", session(http.HandlerFunc(h.HandleSubmissionAction)))

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
