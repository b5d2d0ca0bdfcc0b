package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// CompanyHandler serves the watch-list endpoints.
type CompanyHandler struct {
	watchlistService interfaces.WatchlistService
	storage          interfaces.StorageManager
	edgarService     interfaces.EdgarService
	logger           arbor.ILogger
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(watchlistService interfaces.WatchlistService, storage interfaces.StorageManager, edgarService interfaces.EdgarService, logger arbor.ILogger) *CompanyHandler {
	return &CompanyHandler{
		watchlistService: watchlistService,
		storage:          storage,
		edgarService:     edgarService,
		logger:           logger,
	}
}

// AddCompanyRequest is the POST /api/companies payload. CIK is optional;
// when absent the ticker is resolved against the EDGAR company map.
type AddCompanyRequest struct {
	Ticker  string `json:"ticker"`
	CIK     string `json:"cik,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
	InScope *bool  `json:"in_scope,omitempty"`
}

// ListCompaniesHandler handles GET /api/companies
func (h *CompanyHandler) ListCompaniesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	companies, err := h.storage.CompanyStorage().List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list companies")
		WriteError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}

	sort.Slice(companies, func(i, j int) bool {
		return companies[i].ID < companies[j].ID
	})

	if companies == nil {
		companies = []*models.Company{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(companies),
		"companies": companies,
	})
}

// AddCompanyHandler handles POST /api/companies
func (h *CompanyHandler) AddCompanyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req AddCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ticker := models.NormalizeTicker(req.Ticker)
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	cik := req.CIK
	if cik == "" {
		resolved, err := h.resolveCIK(r, ticker)
		if err != nil {
			h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to resolve CIK")
			WriteError(w, http.StatusBadGateway, "Failed to resolve CIK from EDGAR")
			return
		}
		if resolved == "" {
			WriteError(w, http.StatusBadRequest, "Unknown ticker: "+ticker)
			return
		}
		cik = resolved
	}

	company := &models.Company{
		Ticker:  ticker,
		CIK:     cik,
		Bucket:  req.Bucket,
		InScope: true,
	}
	if req.InScope != nil {
		company.InScope = *req.InScope
	}

	if err := h.watchlistService.Add(r.Context(), company); err != nil {
		h.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to add company")
		WriteError(w, http.StatusBadRequest, "Failed to add company: "+err.Error())
		return
	}

	h.logger.Info().Str("ticker", company.Ticker).Str("cik", company.CIK).Msg("Company added to watch-list")
	WriteJSON(w, http.StatusCreated, company)
}

// DeleteCompanyHandler handles DELETE /api/companies/{ticker}
func (h *CompanyHandler) DeleteCompanyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	ticker := extractIDFromPath(r.URL.Path, "/api/companies/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	if err := h.watchlistService.Remove(r.Context(), ticker); err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, "Company not found: "+ticker)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to remove company")
		WriteError(w, http.StatusInternalServerError, "Failed to remove company")
		return
	}

	h.logger.Info().Str("ticker", ticker).Msg("Company removed from watch-list")
	WriteSuccess(w, "Company removed: "+models.NormalizeTicker(ticker))
}

// GetCompanyHandler handles GET /api/companies/{ticker}. The response
// bundles the company with its latest persisted state, when one exists.
func (h *CompanyHandler) GetCompanyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ticker := extractIDFromPath(r.URL.Path, "/api/companies/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	company, err := h.storage.CompanyStorage().Get(r.Context(), models.NormalizeTicker(ticker))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, "Company not found: "+ticker)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to get company")
		WriteError(w, http.StatusInternalServerError, "Failed to get company")
		return
	}

	response := map[string]interface{}{
		"company": company,
	}
	if record, err := h.storage.StateStorage().LatestState(r.Context(), company.ID); err == nil && record != nil {
		response["latest_state"] = record
	}

	WriteJSON(w, http.StatusOK, response)
}

// HistoryHandler handles GET /api/companies/{ticker}/history
func (h *CompanyHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/history")
	ticker := extractIDFromPath(path, "/api/companies/")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	companyID := models.NormalizeTicker(ticker)
	if _, err := h.storage.CompanyStorage().Get(r.Context(), companyID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, "Company not found: "+ticker)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to get company")
		WriteError(w, http.StatusInternalServerError, "Failed to get company")
		return
	}

	limit := GetLimitParam(r, 20, 200)
	records, err := h.storage.StateStorage().History(r.Context(), companyID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to load state history")
		WriteError(w, http.StatusInternalServerError, "Failed to load state history")
		return
	}

	if records == nil {
		records = []*models.StateRecord{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"company_id": companyID,
		"count":      len(records),
		"history":    records,
	})
}

// resolveCIK looks the ticker up in the EDGAR company map. Returns the
// zero-padded CIK, or empty when the ticker is not listed.
func (h *CompanyHandler) resolveCIK(r *http.Request, ticker string) (string, error) {
	tickerMap, err := h.edgarService.TickerMap(r.Context())
	if err != nil {
		return "", err
	}
	return tickerMap[ticker], nil
}
