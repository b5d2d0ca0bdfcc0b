package interfaces

import (
	"context"

	"github.com/ternarybob/caveo/internal/models"
)

// EvaluatorService runs the quarterly-disclosure evaluation pipeline
// across the watch-list and persists the resulting state transitions.
type EvaluatorService interface {
	// EvaluateAll runs one batch over every company in storage and
	// returns the per-company outcomes. Only one batch runs at a time;
	// a second call while one is in flight returns an error.
	EvaluateAll(ctx context.Context) (*models.BatchReport, error)

	// Start begins a batch in the background and returns its run ID
	// immediately. The batch runs on a background context so it
	// outlives the caller. Fails when a batch is already in flight.
	Start() (string, error)

	// EvaluateCompany runs the pipeline for a single company by ID.
	EvaluateCompany(ctx context.Context, companyID string) (*models.EntityResult, error)

	// IsRunning reports whether a batch is currently in flight.
	IsRunning() bool
}
