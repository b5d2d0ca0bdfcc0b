// -----------------------------------------------------------------------
// Last Modified: Tuesday, 18th August 2026 9:42:17 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/caveo/internal/models"
)

// CompanyStorage - interface for watch-list company persistence
type CompanyStorage interface {
	Upsert(ctx context.Context, company *models.Company) error
	Get(ctx context.Context, id string) (*models.Company, error)
	List(ctx context.Context) ([]*models.Company, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// StateStorage - interface for escalation state history
type StateStorage interface {
	// SaveRecord upserts one evaluation outcome keyed by company + as-of date.
	SaveRecord(ctx context.Context, record *models.StateRecord) error

	// LatestState returns the most recent record for a company, or
	// (nil, nil) when the company has no history yet.
	LatestState(ctx context.Context, companyID string) (*models.StateRecord, error)

	// History returns records for a company, newest first.
	History(ctx context.Context, companyID string, limit int) ([]*models.StateRecord, error)

	// LatestAll returns the newest record per company across the store.
	LatestAll(ctx context.Context) (map[string]*models.StateRecord, error)

	Count(ctx context.Context) (int, error)
}

// EventStorage - interface for the state-transition event log
type EventStorage interface {
	SaveEvent(ctx context.Context, event *models.StateEvent) error
	RecentEvents(ctx context.Context, limit int) ([]*models.StateEvent, error)
	EventsForCompany(ctx context.Context, companyID string, limit int) ([]*models.StateEvent, error)
	Count(ctx context.Context) (int, error)
}

// RunLogStorage - interface for per-run log capture
type RunLogStorage interface {
	// AppendEntry stores a single log line under its run ID.
	AppendEntry(ctx context.Context, runID string, entry models.RunLogEntry) error

	// GetEntries returns the stored lines for a run in insertion order,
	// filtered to minLevel and above ("" means no filter).
	GetEntries(ctx context.Context, runID string, minLevel string) ([]models.RunLogEntry, error)

	// ListRunIDs returns known run IDs, newest first.
	ListRunIDs(ctx context.Context, limit int) ([]string, error)

	// DeleteRun removes all lines for a run.
	DeleteRun(ctx context.Context, runID string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	CompanyStorage() CompanyStorage
	StateStorage() StateStorage
	EventStorage() EventStorage
	RunLogStorage() RunLogStorage
	DB() interface{}
	Close() error
}
