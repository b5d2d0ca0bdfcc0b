package handlers

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// EventSubscriber bridges the event bus onto the websocket. Filtering is
// config driven: AllowedEvents whitelists message types (empty = allow
// all) and MinLevel gates log_entry pushes.
type EventSubscriber struct {
	handler       *WebSocketHandler
	eventService  interfaces.EventService
	logger        arbor.ILogger
	allowedEvents map[string]bool
	minLogLevel   string // 3-letter code, "" = no log filtering
}

// NewEventSubscriber creates the subscriber and registers it for every
// broadcastable event type.
func NewEventSubscriber(handler *WebSocketHandler, eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *EventSubscriber {
	s := &EventSubscriber{
		handler:       handler,
		eventService:  eventService,
		logger:        logger,
		allowedEvents: make(map[string]bool),
	}

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			s.allowedEvents[eventType] = true
		}
		s.minLogLevel = models.LevelCode(config.MinLevel)
	}

	if eventService == nil {
		logger.Warn().Msg("EventSubscriber created with nil eventService - subscriptions will be skipped")
		return s
	}

	s.SubscribeAll()

	return s
}

// SubscribeAll registers subscriptions for every pushed event type
func (s *EventSubscriber) SubscribeAll() {
	if s.eventService == nil {
		s.logger.Warn().Msg("Cannot subscribe to events - eventService is nil")
		return
	}

	s.eventService.Subscribe(interfaces.EventStateChanged, s.handleStateChanged)
	s.eventService.Subscribe(interfaces.EventRunStarted, s.handleRunStarted)
	s.eventService.Subscribe(interfaces.EventRunCompleted, s.handleRunCompleted)
	s.eventService.Subscribe(interfaces.EventLogEntry, s.handleLogEntry)
	s.eventService.Subscribe(interfaces.EventAppStatus, s.handleAppStatus)

	s.logger.Info().Msg("EventSubscriber registered for state, run, log and app status events")
}

// shouldBroadcastEvent checks the configured whitelist. An empty
// whitelist allows every event type.
func (s *EventSubscriber) shouldBroadcastEvent(eventType string) bool {
	if len(s.allowedEvents) > 0 && !s.allowedEvents[eventType] {
		return false
	}
	return true
}

func (s *EventSubscriber) handleStateChanged(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent("state_changed") {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid state change event payload type")
		return nil
	}

	s.handler.BroadcastStateChange(StateChangeUpdate{
		CompanyID:  getString(payload, "company_id"),
		Ticker:     getString(payload, "ticker"),
		AsOf:       getString(payload, "as_of"),
		PrevState:  getString(payload, "prev_state"),
		NewState:   getString(payload, "new_state"),
		Condition1: getBool(payload, "condition_1"),
		Condition2: getBool(payload, "condition_2"),
		Condition3: getBool(payload, "condition_3"),
		Condition4: getBool(payload, "condition_4"),
		Timestamp:  getTimestamp(payload),
	})
	return nil
}

func (s *EventSubscriber) handleRunStarted(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent("run_started") {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid run started event payload type")
		return nil
	}

	s.handler.BroadcastRunStarted(RunStartedUpdate{
		RunID:     getString(payload, "run_id"),
		AsOf:      getString(payload, "as_of"),
		Companies: getInt(payload, "companies"),
		Timestamp: getTimestamp(payload),
	})
	return nil
}

func (s *EventSubscriber) handleRunCompleted(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent("run_completed") {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid run completed event payload type")
		return nil
	}

	s.handler.BroadcastRunCompleted(RunCompletedUpdate{
		RunID:     getString(payload, "run_id"),
		AsOf:      getString(payload, "as_of"),
		Evaluated: getInt(payload, "evaluated"),
		Skipped:   getInt(payload, "skipped"),
		Failed:    getInt(payload, "failed"),
		Changed:   getInt(payload, "changed"),
		Timestamp: getTimestamp(payload),
	})
	return nil
}

// handleLogEntry pushes captured run log lines. Levels below the
// configured minimum are skipped so debug noise stays off the wire.
func (s *EventSubscriber) handleLogEntry(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent("log_entry") {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid log event payload type")
		return nil
	}

	level := getString(payload, "level")
	if !models.LevelAtLeast(level, s.minLogLevel) {
		return nil
	}

	s.handler.BroadcastLogEntry(LogUpdate{
		RunID:     getString(payload, "run_id"),
		Level:     level,
		Message:   getString(payload, "message"),
		Timestamp: getString(payload, "timestamp"),
	})
	return nil
}

func (s *EventSubscriber) handleAppStatus(ctx context.Context, event interfaces.Event) error {
	if !s.shouldBroadcastEvent("app_status") {
		return nil
	}

	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		s.logger.Warn().Msg("Invalid app status event payload type")
		return nil
	}

	metadata, _ := payload["metadata"].(map[string]interface{})
	s.handler.BroadcastAppStatus(AppStatusUpdate{
		State:     getString(payload, "state"),
		Metadata:  metadata,
		Timestamp: getTimestamp(payload),
	})
	return nil
}
