package api

import (
	"context"
	"net/http"
)

// ReadinessChecker reports whether the backing store is reachable.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checker ReadinessChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// HandleHealth handles GET /healthz requests. It answers 503 while the store
// cannot be reached.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if err := h.checker.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrUnavailable.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
