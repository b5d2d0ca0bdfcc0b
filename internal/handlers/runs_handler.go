package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// RunsHandler serves evaluation run metadata and captured logs.
type RunsHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewRunsHandler creates a new RunsHandler
func NewRunsHandler(storage interfaces.StorageManager, logger arbor.ILogger) *RunsHandler {
	return &RunsHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListRunsHandler handles GET /api/runs. Run IDs come back newest first.
func (h *RunsHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 20, 100)
	runIDs, err := h.storage.RunLogStorage().ListRunIDs(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	if runIDs == nil {
		runIDs = []string{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runIDs),
		"runs":  runIDs,
	})
}

// RunLogsHandler handles GET /api/runs/{id}/logs. The min_level query
// accepts level words (debug/info/warn/error) or 3-letter codes.
func (h *RunsHandler) RunLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/logs")
	runID := extractIDFromPath(path, "/api/runs/")
	if runID == "" {
		WriteError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	minLevel := ""
	if raw := r.URL.Query().Get("min_level"); raw != "" {
		minLevel = models.LevelCode(raw)
		if minLevel == "" {
			WriteError(w, http.StatusBadRequest, "Invalid min_level: "+raw)
			return
		}
	}

	entries, err := h.storage.RunLogStorage().GetEntries(r.Context(), runID, minLevel)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to load run logs")
		WriteError(w, http.StatusInternalServerError, "Failed to load run logs")
		return
	}

	if entries == nil {
		entries = []models.RunLogEntry{}
	}

	WriteJSON(w, http.StatusOK, models.RunLogBatch{
		RunID:   runID,
		Entries: entries,
	})
}
