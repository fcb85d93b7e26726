// Package server wires the application together: database, services,
// handlers, middleware, and routes. This is the composition root; every
// dependency is assembled here and nowhere else, so main.go stays minimal
// and tests can stand up the full API without opening a listener.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/biobank/internal/auth"
	"github.com/sakif/biobank/internal/handler"
	"github.com/sakif/biobank/internal/middleware"
	sqliteRepo "github.com/sakif/biobank/internal/repository/sqlite"
	"github.com/sakif/biobank/internal/service"
)

// apiVersion is reported by GET /api/v1/status.
const apiVersion = "1.0.0"

// Config holds server configuration. JWTSecret has no default; a missing
// or short secret fails startup rather than running with a guessable key.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// PasswordCost overrides the bcrypt work factor. Zero selects the
	// production default; tests pass bcrypt.MinCost.
	PasswordCost int
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the dependency chain: repositories,
// token and password services, business services, handlers, and routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the assembled router. Tests drive the full API through
// this without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection. Start does this itself on
// shutdown; Close exists for callers that never Start, such as tests.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures middleware, builds the services and handlers, and
// declares every route.
//
// ROUTE TABLE:
//
//	GET    /health                             → liveness probe
//	GET    /api/v1/status                      → service info
//	POST   /api/v1/auth/register               → create account
//	POST   /api/v1/auth/login                  → issue access token
//	POST   /api/v1/auth/refresh                → reissue token          (auth)
//	GET    /api/v1/auth/me                     → current user           (auth)
//	POST   /api/v1/samples                     → create sample          (auth)
//	GET    /api/v1/samples                     → list samples           (auth)
//	GET    /api/v1/samples/statistics          → aggregate counts       (auth)
//	GET    /api/v1/samples/subject/{subjectID} → samples for a subject  (auth)
//	GET    /api/v1/samples/{id}                → fetch sample           (auth)
//	PUT    /api/v1/samples/{id}                → update sample          (auth)
//	DELETE /api/v1/samples/{id}                → delete sample          (auth)
//
// Static segments win over parameters in chi, so /samples/statistics and
// /samples/subject/... are matched before /samples/{id}.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()
	if s.config.PasswordCost != 0 {
		passwords = auth.NewPasswordServiceWithCost(s.config.PasswordCost)
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	sampleService := service.NewSampleService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	sampleHandler := handler.NewSampleHandler(sampleService, s.logger)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"service":"biobank","version":%q,"status":"ok"}`, apiVersion)
		})

		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authService))

			r.Post("/auth/refresh", authHandler.HandleRefresh)
			r.Get("/auth/me", authHandler.HandleMe)

			r.Route("/samples", func(r chi.Router) {
				r.Post("/", sampleHandler.HandleCreate)
				r.Get("/", sampleHandler.HandleList)
				r.Get("/statistics", sampleHandler.HandleStatistics)
				r.Get("/subject/{subjectID}", sampleHandler.HandleBySubject)
				r.Get("/{id}", sampleHandler.HandleGet)
				r.Put("/{id}", sampleHandler.HandleUpdate)
				r.Delete("/{id}", sampleHandler.HandleDelete)
			})
		})
	})

	return nil
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
