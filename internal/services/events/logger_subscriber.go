package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		// Extract common fields from payload if available
		var runID, companyID, state string
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["run_id"].(string); ok {
				runID = id
			}
			if id, ok := payload["company_id"].(string); ok {
				companyID = id
			}
			if s, ok := payload["state"].(string); ok {
				state = s
			}
		}

		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if runID != "" {
			logEvent = logEvent.Str("run_id", runID)
		}
		if companyID != "" {
			logEvent = logEvent.Str("company_id", companyID)
		}
		if state != "" {
			logEvent = logEvent.Str("state", state)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to every event type
// except log entries, which would just echo lines the logger already
// wrote.
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventStateChanged,
		interfaces.EventRunStarted,
		interfaces.EventRunCompleted,
		interfaces.EventAppStatus,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
