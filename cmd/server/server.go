package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/phrazzld/task-manager-api/internal/redact"
)

// readHeaderTimeout bounds how long a client may take to send request headers.
const readHeaderTimeout = 10 * time.Second

// newHTTPServer configures the HTTP server for the given handler.
func (app *application) newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(app.config.Server.Host, strconv.Itoa(app.config.Server.Port)),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Run serves HTTP until a termination signal arrives, then stops accepting
// requests, drains in-flight ones and closes the database connection.
// The database connects in the background so the listener is up at once.
// It returns the process exit code.
func (app *application) Run(ctx context.Context) int {
	server := app.newHTTPServer(app.setupRouter())

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	connectCtx, cancelConnect := context.WithCancel(ctx)
	defer cancelConnect()
	go func() {
		_ = app.connectDatabase(connectCtx)
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		app.config.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				app.logger.Info("Shutting down server...")
				cancelConnect()
				return app.shutdown(ctx, server)
			},
		},
	)

	select {
	case exitCode := <-wait:
		app.logger.Info("Server shutdown completed", "exit_code", exitCode)
		return exitCode
	case err := <-serverErr:
		app.logger.Error("Server failed", "error", redact.Error(err))
		cancelConnect()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		_ = app.cleanup(shutdownCtx)
		return 1
	}
}

// shutdown drains the HTTP server, then releases application resources.
func (app *application) shutdown(ctx context.Context, server *http.Server) error {
	serverErr := server.Shutdown(ctx)
	if serverErr != nil {
		app.logger.Error("Server shutdown failed", "error", redact.Error(serverErr))
	}
	return errors.Join(serverErr, app.cleanup(ctx))
}
