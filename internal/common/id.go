package common

import (
	"github.com/google/uuid"
)

// NewEventID generates a unique state-event ID with the "evt_" prefix
// Format: evt_<uuid>
func NewEventID() string {
	return "evt_" + uuid.New().String()
}

// NewRunID generates a unique evaluation-run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}
