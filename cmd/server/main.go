// Package main implements the entry point for the DPMS API server,
// which tracks data-operations tasks and the Q-point incentive ledger
// behind them.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/SemenBogdanov/dpms-system/internal/config"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(context.Background(), router); err != nil {
		app.logger.Error("Server exited with error", "error", err)
		app.cleanup()
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging, connects to the
// database, runs migrations and assembles the dependency graph.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, appLogger); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("Failed to close database connection", "error", closeErr)
		}
		return nil, err
	}

	app, err := newApplication(cfg, db, appLogger)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("Failed to close database connection", "error", closeErr)
		}
		return nil, err
	}

	return app, nil
}
