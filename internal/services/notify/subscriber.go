package notify

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// SubscribeToStateChanges registers the notifier on state_changed
// events, so every transition reaches the webhook regardless of which
// path produced it. Handler errors surface through the event bus log,
// never back to the publisher.
func SubscribeToStateChanges(eventService interfaces.EventService, notifier interfaces.NotifyService, logger arbor.ILogger) error {
	handler := func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			return nil
		}

		stateEvent := &models.StateEvent{}
		if v, ok := payload["company_id"].(string); ok {
			stateEvent.CompanyID = v
		}
		if v, ok := payload["ticker"].(string); ok {
			stateEvent.Ticker = v
		}
		if v, ok := payload["as_of"].(string); ok {
			stateEvent.AsOf = v
		}
		if v, ok := payload["prev_state"].(string); ok {
			stateEvent.PrevState = models.State(v)
		}
		if v, ok := payload["new_state"].(string); ok {
			stateEvent.NewState = models.State(v)
		}

		if stateEvent.Ticker == "" || stateEvent.NewState == "" {
			logger.Debug().
				Str("event_type", string(event.Type)).
				Msg("Skipping notification for incomplete state change payload")
			return nil
		}

		var flags models.ConditionFlags
		if v, ok := payload["condition_1"].(bool); ok {
			flags.Condition1 = v
		}
		if v, ok := payload["condition_2"].(bool); ok {
			flags.Condition2 = v
		}
		if v, ok := payload["condition_3"].(bool); ok {
			flags.Condition3 = v
		}
		if v, ok := payload["condition_4"].(bool); ok {
			flags.Condition4 = v
		}

		return notifier.NotifyStateChange(ctx, stateEvent, flags)
	}

	return eventService.Subscribe(interfaces.EventStateChanged, handler)
}
