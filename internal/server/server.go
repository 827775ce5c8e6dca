// Package server wires the daemon: router, middleware, handlers, storage,
// and graceful shutdown.
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

	"github.com/ourobouros/samlocal/internal/auth"
	"github.com/ourobouros/samlocal/internal/handler"
	"github.com/ourobouros/samlocal/internal/middleware"
	"github.com/ourobouros/samlocal/internal/orchestrator"
	"github.com/ourobouros/samlocal/internal/repository"
	sqliteRepo "github.com/ourobouros/samlocal/internal/repository/sqlite"
	"github.com/ourobouros/samlocal/internal/service"
)

// Config holds daemon configuration.
type Config struct {
	Port int
	// DBPath is the run-history database. Empty disables history.
	DBPath string
	// JWTSecret enables bearer-token auth on the API when set.
	JWTSecret string
}

// Server is the HTTP daemon and its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB // nil when history is disabled
}

// New assembles the daemon: storage, service, handlers, routes.
func New(cfg Config, logger *slog.Logger, orch *orchestrator.Orchestrator) (*Server, error) {
	var db *sqliteRepo.DB
	var repo repository.RunRepository
	if cfg.DBPath != "" {
		var err error
		db, err = sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		repo = db
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(orch, repo); err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(orch *orchestrator.Orchestrator, repo repository.RunRepository) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	invokeService := service.NewInvokeService(orch, repo, s.logger)
	invokeHandler := handler.NewInvokeHandler(invokeService, s.logger)

	var requireAuth func(http.Handler) http.Handler
	if s.config.JWTSecret != "" {
		tokens, err := auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		requireAuth = auth.RequireAuth(tokens)
	}

	s.router.Route("/api", func(r chi.Router) {
		if requireAuth != nil {
			r.Use(requireAuth)
		}
		r.Post("/invoke", invokeHandler.HandleInvoke)
		r.Get("/runs", invokeHandler.HandleListRuns)
		r.Get("/runs/{id}", invokeHandler.HandleGetRun)
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM and shuts down
// gracefully, closing the run-history database last.
func (s *Server) Start() error {
	if s.db != nil {
		defer s.db.Close()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
		// Invocations block for up to the invoke timeout, so the write
		// timeout has to outlast it.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("daemon starting",
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	s.logger.Info("daemon stopped")
	return nil
}
