package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
)

// AppState represents the application state
type AppState string

const (
	StateIdle       AppState = "idle"
	StateEvaluating AppState = "evaluating"
	StateOffline    AppState = "offline"
)

// Service manages application status
type Service struct {
	state        AppState
	mu           sync.RWMutex
	eventService interfaces.EventService
	logger       arbor.ILogger
	metadata     map[string]interface{}
}

// NewService creates a new StatusService
func NewService(eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		state:        StateIdle,
		eventService: eventService,
		logger:       logger,
		metadata:     make(map[string]interface{}),
	}
}

// GetState returns the current application state (thread-safe)
func (s *Service) GetState() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState updates the application state and broadcasts the change
func (s *Service) SetState(state AppState, metadata map[string]interface{}) {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	if metadata != nil {
		s.metadata = metadata
	} else {
		s.metadata = make(map[string]interface{})
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("old_state", string(oldState)).
		Str("new_state", string(state)).
		Msg("Application state changed")

	payload := map[string]interface{}{
		"state":     string(state),
		"metadata":  metadata,
		"timestamp": time.Now(),
	}
	event := interfaces.Event{
		Type:    interfaces.EventAppStatus,
		Payload: payload,
	}
	s.eventService.Publish(context.Background(), event)
}

// GetStatus returns the full status including state, metadata, and timestamp
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Deep copy metadata to avoid concurrent modification
	metadataCopy := make(map[string]interface{})
	for k, v := range s.metadata {
		metadataCopy[k] = v
	}

	return map[string]interface{}{
		"state":     string(s.state),
		"metadata":  metadataCopy,
		"timestamp": time.Now(),
	}
}

// SubscribeToRunEvents derives the app state from evaluation run
// events: evaluating while a batch is in flight, back to idle with the
// last run's summary kept in metadata so /api/status can report it.
func (s *Service) SubscribeToRunEvents() {
	s.eventService.Subscribe(interfaces.EventRunStarted, func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			return nil
		}

		metadata := map[string]interface{}{}
		if runID, ok := payload["run_id"].(string); ok {
			metadata["active_run_id"] = runID
		}
		if asOf, ok := payload["as_of"].(string); ok {
			metadata["as_of"] = asOf
		}
		if companies, ok := payload["companies"].(int); ok {
			metadata["companies"] = companies
		}
		s.SetState(StateEvaluating, metadata)

		return nil
	})

	s.eventService.Subscribe(interfaces.EventRunCompleted, func(ctx context.Context, event interfaces.Event) error {
		metadata := map[string]interface{}{}
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			metadata["last_run"] = payload
		}
		s.SetState(StateIdle, metadata)

		return nil
	})

	s.logger.Info().Msg("StatusService subscribed to run events")
}
