package status

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/services/events"
)

func newTestStatus() (*Service, interfaces.EventService) {
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	return NewService(eventService, logger), eventService
}

func TestSetStateAndGetStatus(t *testing.T) {
	svc, _ := newTestStatus()

	if svc.GetState() != StateIdle {
		t.Errorf("Initial state = %q, want idle", svc.GetState())
	}

	svc.SetState(StateEvaluating, map[string]interface{}{"active_run_id": "run-1"})

	if svc.GetState() != StateEvaluating {
		t.Errorf("State = %q, want evaluating", svc.GetState())
	}

	state := svc.GetStatus()
	if state["state"] != "evaluating" {
		t.Errorf("Status state = %v", state["state"])
	}
	metadata, ok := state["metadata"].(map[string]interface{})
	if !ok || metadata["active_run_id"] != "run-1" {
		t.Errorf("Status metadata = %v", state["metadata"])
	}

	// Mutating the returned copy must not leak back into the service
	metadata["active_run_id"] = "tampered"
	again := svc.GetStatus()
	if again["metadata"].(map[string]interface{})["active_run_id"] != "run-1" {
		t.Error("GetStatus should return a copy of metadata")
	}
}

func TestSetStateNilMetadataResets(t *testing.T) {
	svc, _ := newTestStatus()

	svc.SetState(StateEvaluating, map[string]interface{}{"active_run_id": "run-1"})
	svc.SetState(StateIdle, nil)

	metadata := svc.GetStatus()["metadata"].(map[string]interface{})
	if len(metadata) != 0 {
		t.Errorf("Metadata should reset on nil, got %v", metadata)
	}
}

func TestSubscribeToRunEventsDrivesState(t *testing.T) {
	svc, eventService := newTestStatus()
	svc.SubscribeToRunEvents()

	err := eventService.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventRunStarted,
		Payload: map[string]interface{}{
			"run_id": "run-42",
			"as_of":  "2024-03-15",
		},
	})
	if err != nil {
		t.Fatalf("PublishSync(run_started) failed: %v", err)
	}

	if svc.GetState() != StateEvaluating {
		t.Fatalf("State after run_started = %q, want evaluating", svc.GetState())
	}
	metadata := svc.GetStatus()["metadata"].(map[string]interface{})
	if metadata["active_run_id"] != "run-42" {
		t.Errorf("Run metadata = %v", metadata)
	}

	err = eventService.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventRunCompleted,
		Payload: map[string]interface{}{
			"run_id":    "run-42",
			"evaluated": 3,
		},
	})
	if err != nil {
		t.Fatalf("PublishSync(run_completed) failed: %v", err)
	}

	if svc.GetState() != StateIdle {
		t.Fatalf("State after run_completed = %q, want idle", svc.GetState())
	}
	lastRun, ok := svc.GetStatus()["metadata"].(map[string]interface{})["last_run"].(map[string]interface{})
	if !ok || lastRun["run_id"] != "run-42" {
		t.Errorf("Last run summary should be retained, got %v", svc.GetStatus()["metadata"])
	}
}
