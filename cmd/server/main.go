// Package main implements the entry point for the task manager API server,
// which serves the task REST API backed by MongoDB and the bundled
// single-page front end.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/phrazzld/task-manager-api/internal/config"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
)

// main loads configuration, sets up logging, wires the application and
// serves HTTP until a termination signal arrives.
func main() {
	cfg, err := loadAppConfig()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	os.Exit(app.Run(context.Background()))
}

// loadAppConfig loads the configuration from files and the environment.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
