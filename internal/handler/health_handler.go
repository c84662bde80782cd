package handler

import (
	"context"
	"net/http"
	"sort"
)

// HealthCheck checks one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// HealthHandler reports the state of the service's dependencies.
type HealthHandler struct {
	names  []string
	checks map[string]HealthCheck
}

// NewHealthHandler creates a health handler running checks by name.
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return &HealthHandler{names: names, checks: checks}
}

// Health handles GET /health. Any failing check turns the status to
// "degraded" and the response code to 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Services: make(map[string]string, len(h.names)),
	}

	for _, name := range h.names {
		if err := h.checks[name](r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Services[name] = "unhealthy: " + err.Error()
		} else {
			resp.Services[name] = "healthy"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
