package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/services/status"
)

// StatusHandler serves the application status endpoint
type StatusHandler struct {
	statusService *status.Service
	logger        arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(statusService *status.Service, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		logger:        logger,
	}
}

// GetStatusHandler handles GET /api/status. The payload carries the
// derived app state (idle/evaluating) plus last-run metadata.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, h.statusService.GetStatus())
}
