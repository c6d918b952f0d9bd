package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sundayezeilo/linkinbio/internal/admin"
	"github.com/sundayezeilo/linkinbio/internal/auth"
	"github.com/sundayezeilo/linkinbio/internal/config"
	"github.com/sundayezeilo/linkinbio/internal/httpx"
	"github.com/sundayezeilo/linkinbio/internal/links"
	"github.com/sundayezeilo/linkinbio/internal/profiles"
)

// Handlers groups the HTTP handlers the server routes to.
type Handlers struct {
	Links    *links.Handler
	Profiles *profiles.Handler
	Admin    *admin.Handler
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	verifier *auth.Verifier
	handlers Handlers
	db       Pinger
	server   *http.Server
}

// New creates a new Server instance. db may be nil, in which case the
// readiness check always succeeds.
func New(cfg *config.Config, logger *slog.Logger, verifier *auth.Verifier, handlers Handlers, db Pinger) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		verifier: verifier,
		handlers: handlers,
		db:       db,
	}
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start serves HTTP until ctx is cancelled or the listener fails, then
// shuts down within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		s.logger.Info("shutdown requested", "cause", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		// Force close if graceful shutdown fails
		if closeErr := s.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close server: %w", closeErr)
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	authed := auth.Middleware(s.verifier, s.logger)
	adminOnly := httpx.Chain(authed, auth.RequireRole(s.config.Auth.AdminRole))

	mux.HandleFunc("GET /x/health", s.healthCheckHandler)
	mux.HandleFunc("GET /x/ready", s.readinessHandler)

	// Public
	mux.HandleFunc("GET /go/{slug}", s.handlers.Links.OpenLink)
	mux.HandleFunc("POST /go/{slug}/unlock", s.handlers.Links.UnlockLink)
	mux.HandleFunc("GET /api/profiles/{username}", s.handlers.Profiles.GetPublicProfile)

	// Owner
	mux.Handle("POST /api/profile", authed(http.HandlerFunc(s.handlers.Profiles.CreateProfile)))
	mux.Handle("GET /api/profile", authed(http.HandlerFunc(s.handlers.Profiles.GetProfile)))
	mux.Handle("PATCH /api/profile", authed(http.HandlerFunc(s.handlers.Profiles.UpdateProfile)))

	mux.Handle("POST /api/links", authed(http.HandlerFunc(s.handlers.Links.CreateLink)))
	mux.Handle("GET /api/links", authed(http.HandlerFunc(s.handlers.Links.ListLinks)))
	mux.Handle("PUT /api/links/order", authed(http.HandlerFunc(s.handlers.Links.ReorderLinks)))
	mux.Handle("GET /api/links/{id}", authed(http.HandlerFunc(s.handlers.Links.GetLink)))
	mux.Handle("PATCH /api/links/{id}", authed(http.HandlerFunc(s.handlers.Links.UpdateLink)))
	mux.Handle("DELETE /api/links/{id}", authed(http.HandlerFunc(s.handlers.Links.DeleteLink)))

	// Admin
	mux.Handle("GET /api/admin/scheduled-links", adminOnly(http.HandlerFunc(s.handlers.Admin.ScheduledLinks)))
	mux.Handle("PATCH /api/admin/links/{id}", adminOnly(http.HandlerFunc(s.handlers.Admin.SetLinkActive)))

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,
		httpx.Logger(s.logger),
		httpx.CORS(s.config.Server.AllowedOrigins),
	)(handler)
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.config.Service.Name,
		"version": s.config.Service.Version,
	})
}

// readinessHandler reports unavailable while the database cannot be reached.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed",
				"request_id", httpx.GetRequestID(ctx),
				"error", err.Error(),
			)
			httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable", nil)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
