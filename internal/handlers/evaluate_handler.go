package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// EvaluateHandler triggers evaluation runs over HTTP.
type EvaluateHandler struct {
	evaluatorService interfaces.EvaluatorService
	logger           arbor.ILogger
}

// NewEvaluateHandler creates a new EvaluateHandler
func NewEvaluateHandler(evaluatorService interfaces.EvaluatorService, logger arbor.ILogger) *EvaluateHandler {
	return &EvaluateHandler{
		evaluatorService: evaluatorService,
		logger:           logger,
	}
}

// TriggerEvaluationHandler handles POST /api/evaluate. The batch runs in
// the background; the response carries the run ID for log retrieval.
func (h *EvaluateHandler) TriggerEvaluationHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	runID, err := h.evaluatorService.Start()
	if err != nil {
		if strings.Contains(err.Error(), "already running") {
			WriteError(w, http.StatusConflict, "Evaluation batch already running")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to start evaluation")
		WriteError(w, http.StatusInternalServerError, "Failed to start evaluation")
		return
	}

	h.logger.Info().Str("run_id", runID).Msg("Evaluation batch started via API")
	WriteStarted(w, runID)
}

// EvaluateCompanyHandler handles POST /api/companies/{ticker}/evaluate.
// Runs the pipeline for one company synchronously and returns its outcome.
func (h *EvaluateHandler) EvaluateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/evaluate")
	ticker := extractIDFromPath(path, "/api/companies/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	result, err := h.evaluatorService.EvaluateCompany(r.Context(), models.NormalizeTicker(ticker))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, "Company not found: "+ticker)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Company evaluation failed")
		WriteError(w, http.StatusInternalServerError, "Evaluation failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
