// Package web serves the import API and the HTMX report fragments.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/listings/internal/config"
	"github.com/JonMunkholm/listings/internal/core"
	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/store"
	"github.com/JonMunkholm/listings/internal/web/middleware"
)

// Service is what the handlers need from core.Service.
type Service interface {
	Preview(ctx context.Context, fileName string, r io.Reader) (*core.ImportReport, error)
	Import(ctx context.Context, fileName string, r io.Reader) (*core.ImportReport, error)
	ListBuildings(ctx context.Context) ([]listing.Building, error)
	GetBuilding(ctx context.Context, id string) (listing.Building, error)
	ListImports(ctx context.Context, limit int) ([]store.ImportRecord, error)
	LimiterStatus() core.LimiterStatus
}

// HealthChecker reports whether a dependency is reachable. *pgxpool.Pool
// satisfies it through Ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server.
type Server struct {
	service Service
	health  HealthChecker
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer wires routes and middleware. health may be nil.
func NewServer(service Service, health HealthChecker, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		health:  health,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))
	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).Handler)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(middleware.NewRateLimiter(s.cfg.Rate.ImportLimit, time.Minute).Handler)
			}
			r.Post("/import/preview", s.handlePreview)
			r.Post("/import", s.handleImport)
		})

		r.Get("/imports", s.handleListImports)
		r.Get("/buildings", s.handleListBuildings)
		r.Get("/buildings/{id}", s.handleGetBuilding)
	})
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
