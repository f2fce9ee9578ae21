package api

import (
	"net/http"
	"time"

	"github.com/phrazzld/task-manager-api/internal/api/shared"
)

// StateReporter reports the database connection state.
type StateReporter interface {
	State() string
}

// HealthHandler answers the liveness probe. It always returns 200, even
// while the database is unreachable.
type HealthHandler struct {
	db          StateReporter
	environment string
	now         func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db StateReporter, environment string) *HealthHandler {
	return &HealthHandler{
		db:          db,
		environment: environment,
		now:         time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := "unknown"
	if h.db != nil {
		state = h.db.State()
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Success:     true,
		Message:     "Task Manager API is running",
		Timestamp:   h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Environment: h.environment,
		Database:    state,
	})
}
