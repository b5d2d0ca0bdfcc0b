package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// EventsHandler serves the escalation event feed.
type EventsHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(storage interfaces.StorageManager, logger arbor.ILogger) *EventsHandler {
	return &EventsHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListEventsHandler handles GET /api/events. Events come back newest
// first; an optional ticker query narrows the feed to one company.
func (h *EventsHandler) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 50, 500)

	var (
		events []*models.StateEvent
		err    error
	)
	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		events, err = h.storage.EventStorage().EventsForCompany(r.Context(), models.NormalizeTicker(ticker), limit)
	} else {
		events, err = h.storage.EventStorage().RecentEvents(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list events")
		WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	if events == nil {
		events = []*models.StateEvent{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}
