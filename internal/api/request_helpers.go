package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/service"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// getPathID extracts the raw task id from the URL path. Its format is left
// to the store, which reports malformed ids as not found.
func getPathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// parseListParams reads filters and pagination from the query string.
// Missing page/limit fall back to the service defaults; anything that is
// not a positive integer is a validation error.
func parseListParams(r *http.Request) (service.ListParams, error) {
	q := r.URL.Query()
	params := service.ListParams{
		Filter: store.TaskFilter{
			Status:   q.Get("status"),
			Priority: q.Get("priority"),
			Category: q.Get("category"),
		},
		Page:  service.DefaultPage,
		Limit: service.DefaultLimit,
	}

	vErr := &domain.ValidationError{}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			vErr.Add("limit must be a positive integer")
		}
		params.Limit = n
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			vErr.Add("page must be a positive integer")
		}
		params.Page = n
	}
	if vErr.HasErrors() {
		return service.ListParams{}, vErr
	}
	return params, nil
}

// formatRate renders a completion rate with one decimal place.
func formatRate(rate float64) string {
	return fmt.Sprintf("%.1f", rate)
}
