package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phrazzld/task-manager-api/internal/api"
	apiMiddleware "github.com/phrazzld/task-manager-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
// Everything outside /api falls through to the static front end.
func (app *application) setupRouter() http.Handler {
	dev := app.config.Server.IsDevelopment()

	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.NewRecoverer(dev))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestSize(app.config.Server.BodyLimitBytes))

	taskHandler := api.NewTaskHandler(app.taskService, app.logger, dev)
	healthHandler := api.NewHealthHandler(app.db, app.config.Server.Environment)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(api.RouteNotFound)
		r.MethodNotAllowed(api.RouteNotFound)

		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Get("/stats/summary", taskHandler.GetStats)

			r.Get("/{id}", taskHandler.GetTask)
			r.Put("/{id}", taskHandler.UpdateTask)
			r.Delete("/{id}", taskHandler.DeleteTask)
			r.Patch("/{id}/status", taskHandler.UpdateTaskStatus)
		})
	})

	static := api.NewStaticHandler(app.config.Server.StaticDir)
	r.NotFound(static.ServeHTTP)
	r.MethodNotAllowed(static.ServeHTTP)

	return r
}
