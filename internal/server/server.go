package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/criteo/social-connect/internal/auth"
	"github.com/criteo/social-connect/internal/config"
	"github.com/criteo/social-connect/internal/server/middleware"
	"github.com/criteo/social-connect/internal/storage"
)

// requestsPerMinute is the per-client rate limit
const requestsPerMinute = 100

// HandlerSet contains all HTTP handlers
type HandlerSet struct {
	Health  http.HandlerFunc
	Metrics http.HandlerFunc
	Whoami  http.HandlerFunc

	// Platform handlers
	ListPlatforms  http.HandlerFunc
	ListConnected  http.HandlerFunc
	GetPlatform    http.HandlerFunc
	Connect        http.HandlerFunc
	PutCredentials http.HandlerFunc
	DeletePlatform http.HandlerFunc

	// OAuth callback handlers
	PostCallback     http.HandlerFunc
	GetOAuthCallback http.HandlerFunc
}

// Observer receives request metrics and rejection counts from the middleware
type Observer interface {
	middleware.RequestObserver
	IncrementAuthFailures()
	IncrementRateLimitExceeded()
}

// Server represents the HTTP server
type Server struct {
	config        *config.Config
	logger        *slog.Logger
	store         storage.Store
	authenticator auth.Authenticator
	observer      Observer
	httpServer    *http.Server
	handlers      HandlerSet
}

// NewServer creates a new server instance. observer may be nil.
func NewServer(cfg *config.Config, logger *slog.Logger, store storage.Store, authenticator auth.Authenticator, observer Observer) *Server {
	return &Server{
		config:        cfg,
		logger:        logger,
		store:         store,
		authenticator: authenticator,
		observer:      observer,
	}
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 45 * time.Second, // callbacks wait on the provider token endpoint
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server",
		"address", listener.Addr().String(),
		"storage_uri", s.config.Storage.URI,
		"auth_type", s.config.Auth.Type)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Initiating graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed", "error", err)
		return err
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Storage close failed", "error", err)
		return err
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}

// Router builds the HTTP router with middleware and routes
func (s *Server) Router() http.Handler {
	var (
		requestObserver middleware.RequestObserver
		onAuthFailure   func()
		onRateLimited   func()
	)
	if s.observer != nil {
		requestObserver = s.observer
		onAuthFailure = s.observer.IncrementAuthFailures
		onRateLimited = s.observer.IncrementRateLimitExceeded
	}
	requireAuth := middleware.RequireAuth(s.authenticator, onAuthFailure)

	router := chi.NewRouter()

	// Global middleware (applied to all routes)
	router.Use(middleware.Logging(s.logger, requestObserver))
	router.Use(middleware.NewRateLimiter(requestsPerMinute, s.config.Server.TrustProxy, onRateLimited))
	router.Use(middleware.CORS(s.config.CORS.AllowedOrigin))

	// Loopback redirect target registered with the providers
	if s.handlers.GetOAuthCallback != nil {
		router.Get("/oauth/callback/{platform}", s.handlers.GetOAuthCallback)
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Health and metrics endpoints (no auth required)
		if s.handlers.Health != nil {
			r.Get("/health", s.handlers.Health)
		}
		if s.handlers.Metrics != nil {
			r.Get("/metrics", s.handlers.Metrics)
		}

		// Whoami authenticates on its own
		if s.handlers.Whoami != nil {
			r.Get("/whoami", s.handlers.Whoami)
		}

		if s.handlers.PostCallback != nil {
			r.With(requireAuth).Post("/callback", s.handlers.PostCallback)
		}

		r.Route("/platforms", func(r chi.Router) {
			if s.handlers.ListPlatforms != nil {
				r.Get("/", s.handlers.ListPlatforms)
			}
			if s.handlers.ListConnected != nil {
				r.Get("/connected", s.handlers.ListConnected)
			}

			r.Route("/{platform}", func(r chi.Router) {
				if s.handlers.GetPlatform != nil {
					r.Get("/", s.handlers.GetPlatform)
				}
				if s.handlers.DeletePlatform != nil {
					r.With(requireAuth).Delete("/", s.handlers.DeletePlatform)
				}
				if s.handlers.Connect != nil {
					r.With(requireAuth).Post("/connect", s.handlers.Connect)
				}
				if s.handlers.PutCredentials != nil {
					r.With(requireAuth).Put("/credentials", s.handlers.PutCredentials)
				}
			})
		})
	})

	return router
}

// SetHandlers sets all handlers (called from the cli package to avoid an import cycle)
func (s *Server) SetHandlers(handlers HandlerSet) {
	s.handlers = handlers
}
