package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/interfaces"
)

// DashboardHandler serves the live dashboard payload.
type DashboardHandler struct {
	dashboardService interfaces.DashboardService
	logger           arbor.ILogger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService interfaces.DashboardService, logger arbor.ILogger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// GetDashboardHandler handles GET /api/dashboard. Builds the snapshot
// on demand so the payload always reflects current storage.
func (h *DashboardHandler) GetDashboardHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	dashboard, err := h.dashboardService.Snapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build dashboard snapshot")
		WriteError(w, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	WriteJSON(w, http.StatusOK, dashboard)
}
