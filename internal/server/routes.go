// -----------------------------------------------------------------------
// Last Modified: Tuesday, 18th August 2026 9:42:17 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Everything outside the API surface is a JSON 404
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	// Health and system
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler) // GET - application status

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Watch-list
	mux.HandleFunc("/api/companies", s.handleCompaniesRoute) // GET (list), POST (add)
	mux.HandleFunc("/api/companies/", s.handleCompanyRoutes) // GET/DELETE /{ticker} and subpaths

	// API routes - Evaluation
	mux.HandleFunc("/api/evaluate", s.app.EvaluateHandler.TriggerEvaluationHandler) // POST - start a batch run

	// API routes - Runs and their logs
	mux.HandleFunc("/api/runs", s.app.RunsHandler.ListRunsHandler)
	mux.HandleFunc("/api/runs/", s.handleRunRoutes) // GET /{id}/logs

	// API routes - State events and dashboard
	mux.HandleFunc("/api/events", s.app.EventsHandler.ListEventsHandler)
	mux.HandleFunc("/api/dashboard", s.app.DashboardHandler.GetDashboardHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleCompaniesRoute routes /api/companies requests (list and add)
func (s *Server) handleCompaniesRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.CompanyHandler.ListCompaniesHandler,
		s.app.CompanyHandler.AddCompanyHandler)
}

// handleCompanyRoutes routes /api/companies/{ticker} requests and subpaths.
// Suffix routes are matched first so /history and /evaluate never fall
// through to the item handlers.
func (s *Server) handleCompanyRoutes(w http.ResponseWriter, r *http.Request) {
	matched := RouteByPathSuffix(w, r, "/api/companies/", []PathSuffixRouter{
		{Suffix: "/history", Handler: s.app.CompanyHandler.HistoryHandler},
		{Suffix: "/evaluate", Handler: s.app.EvaluateHandler.EvaluateCompanyHandler},
	})
	if matched {
		return
	}

	RouteResourceItem(w, r,
		s.app.CompanyHandler.GetCompanyHandler,
		s.app.CompanyHandler.DeleteCompanyHandler)
}

// handleRunRoutes routes /api/runs/{id} subpaths
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	matched := RouteByPathSuffix(w, r, "/api/runs/", []PathSuffixRouter{
		{Suffix: "/logs", Handler: s.app.RunsHandler.RunLogsHandler},
	})
	if matched {
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
