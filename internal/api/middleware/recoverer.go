package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/phrazzld/task-manager-api/internal/api/shared"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
)

// NewRecoverer turns a panic in a later handler into the generic 500
// envelope. With exposeDetail the panic value is returned in "error".
func NewRecoverer(exposeDetail bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// ALLOW-PANIC: net/http relies on this sentinel to abort the response
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				logger.FromContextOrDefault(r.Context(), nil).Error("recovered from panic",
					"error", err,
					"stack", string(debug.Stack()))

				var opts []shared.ResponseOption
				if exposeDetail {
					opts = append(opts, shared.WithErrorDetail(err.Error()))
				}
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
					"Internal server error", err, opts...)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
