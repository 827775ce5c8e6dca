// Command samlocald is the local invoke daemon: it exposes the orchestrator
// over HTTP with a run-history store.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ourobouros/samlocal/internal/launcher"
	dockerlauncher "github.com/ourobouros/samlocal/internal/launcher/docker"
	"github.com/ourobouros/samlocal/internal/orchestrator"
	"github.com/ourobouros/samlocal/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// DB_PATH overrides the run-history location; empty keeps the default.
	dbPath := "data/samlocal.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if dbPath != ":memory:" {
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// JWT_SECRET protects the API; without it the daemon is open, which is
	// acceptable only on a loopback-only setup.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set — API authentication is disabled")
	}

	// SAMLOCAL_USE_CONTAINER=1 runs the CLI inside pre-warmed containers
	// instead of as a direct subprocess.
	var l launcher.Launcher = launcher.NewCLILauncher(logger)
	if os.Getenv("SAMLOCAL_USE_CONTAINER") == "1" {
		dl, err := dockerlauncher.New(dockerlauncher.DefaultConfig(), logger)
		if err != nil {
			logger.Error("containerized launcher unavailable", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer dl.Close()
		l = dl
	}

	orch := orchestrator.New(l, logger)

	srv, err := server.New(server.Config{
		Port:      port,
		DBPath:    dbPath,
		JWTSecret: jwtSecret,
	}, logger, orch)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
