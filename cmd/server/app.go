package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/task-manager-api/internal/config"
	"github.com/phrazzld/task-manager-api/internal/events"
	"github.com/phrazzld/task-manager-api/internal/platform/mongodb"
	"github.com/phrazzld/task-manager-api/internal/redact"
	"github.com/phrazzld/task-manager-api/internal/service"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Event system
	eventEmitter *events.InMemoryEventEmitter

	// Database connection and the store built on it
	db        *mongodb.Manager
	taskStore *mongodb.MongoTaskStore

	taskService service.TaskService
}

// newApplication creates a new application instance with all dependencies
// initialized. It does not touch the network: the database connection is
// established later by connectDatabase.
func newApplication(cfg *config.Config, logger *slog.Logger, opts ...mongodb.ManagerOption) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	logger.Info("Server configuration loaded",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"environment", cfg.Server.Environment)
	logger.Debug("Database configuration",
		"uri", redact.String(cfg.Database.URI),
		"database", cfg.Database.Name,
		"collection", cfg.Database.Collection,
		"max_attempts", cfg.Database.MaxAttempts)

	// Connection events are logged; further handlers can be registered here
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewLogHandler(logger))

	opts = append([]mongodb.ManagerOption{mongodb.WithLogger(logger)}, opts...)
	app.db = mongodb.NewManager(cfg.Database, app.eventEmitter, opts...)
	app.taskStore = mongodb.NewMongoTaskStore(app.db, cfg.Database.Collection)

	var err error
	app.taskService, err = service.NewTaskService(app.taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// connectDatabase establishes the database connection and ensures the task
// indexes exist. Failure leaves the server running in degraded mode, where
// the health probe still answers and task endpoints fail with 500.
func (app *application) connectDatabase(ctx context.Context) error {
	if _, err := app.db.Connect(ctx); err != nil {
		app.logger.ErrorContext(ctx, "Database unavailable, serving in degraded mode",
			"error", redact.Error(err))
		return err
	}

	if err := app.taskStore.EnsureIndexes(ctx); err != nil {
		app.logger.WarnContext(ctx, "Failed to ensure task indexes", "error", redact.Error(err))
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup(ctx context.Context) error {
	if app.db != nil {
		if err := app.db.Close(ctx); err != nil {
			app.logger.Error("Error closing database connection", "error", redact.Error(err))
			return err
		}
	}

	app.logger.Info("Application shutdown completed")
	return nil
}
