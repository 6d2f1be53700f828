// Package http provides the HTTP server and route wiring.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openctemio/teams/internal/config"
	"github.com/openctemio/teams/internal/infra/http/handler"
	"github.com/openctemio/teams/internal/infra/http/middleware"
	"github.com/openctemio/teams/internal/infra/redis"
	"github.com/openctemio/teams/pkg/logger"
)

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Team   *handler.TeamHandler
	Auth   *handler.AuthHandler
	Health *handler.HealthHandler
}

// Server is the HTTP server for the teams API.
type Server struct {
	httpServer   *http.Server
	router       chi.Router
	config       *config.Config
	logger       *logger.Logger
	cleanupFuncs []func()
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithCleanup registers a function to run on shutdown.
func WithCleanup(fn func()) ServerOption {
	return func(s *Server) {
		s.cleanupFuncs = append(s.cleanupFuncs, fn)
	}
}

// NewServer creates the HTTP server with the standard middleware chain
// and routes mounted.
func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	auth *middleware.Authenticator,
	limiter *redis.RateLimiter,
	handlers Handlers,
	opts ...ServerOption,
) *Server {
	router := chi.NewRouter()

	s := &Server{
		router: router,
		config: cfg,
		logger: log.With("component", "http"),
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	// Order matters: recovery outermost, then request identity, policy
	// and observability before any handler runs.
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.SecurityHeaders)
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodySize))
	if cfg.RateLimit.Enabled && limiter != nil {
		router.Use(middleware.RateLimit(limiter, log))
	}
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	router.Use(middleware.Metrics())
	router.Use(middleware.LoggerWithConfig(log, middleware.LoggerConfig{
		SkipPaths:            skipLogPaths(cfg),
		SlowRequestThreshold: time.Duration(cfg.Log.SlowRequestSeconds) * time.Second,
	}))

	s.registerRoutes(auth, handlers)
	return s
}

func skipLogPaths(cfg *config.Config) []string {
	if !cfg.Log.SkipHealthLogs {
		return nil
	}
	return []string{"/healthz", "/readyz", "/metrics"}
}

func (s *Server) registerRoutes(auth *middleware.Authenticator, h Handlers) {
	s.router.Get("/healthz", h.Health.Health)
	s.router.Get("/readyz", h.Health.Ready)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())

			r.Get("/me", h.Auth.Me)

			r.Route("/teams", func(r chi.Router) {
				r.Post("/", h.Team.Create)
				r.Get("/", h.Team.List)

				r.Route("/{teamID}", func(r chi.Router) {
					r.Get("/", h.Team.Get)
					r.Patch("/", h.Team.Update)
					r.Delete("/", h.Team.Delete)

					r.Route("/members", func(r chi.Router) {
						r.Get("/", h.Team.SearchMembers)
						r.Post("/", h.Team.AddMember)
						r.Put("/{userID}", h.Team.UpdateMemberRole)
						r.Delete("/{userID}", h.Team.RemoveMember)
					})
				})
			})
		})
	})
}

// Start begins serving requests and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server and runs registered cleanups.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")

	err := s.httpServer.Shutdown(ctx)
	for _, fn := range s.cleanupFuncs {
		fn()
	}
	return err
}

// Router exposes the router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}
