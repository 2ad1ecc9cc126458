package handlers

import (
	"net/http"
	"time"
)

// Health reports service liveness and storage reachability
// @Summary Health check
// @Description Returns 200 when the service and its storage are healthy, 503 otherwise.
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "Storage unreachable"
// @Router /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := h.storage.Health(); err != nil {
		status = "storage unavailable"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
