package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// StateStorage implements the StateStorage interface for Badger
type StateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStateStorage creates a new StateStorage instance
func NewStateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StateStorage {
	return &StateStorage{
		db:     db,
		logger: logger,
	}
}

func (s *StateStorage) SaveRecord(ctx context.Context, record *models.StateRecord) error {
	if record.CompanyID == "" {
		return fmt.Errorf("state record company ID is required")
	}
	if record.AsOf == "" {
		return fmt.Errorf("state record as-of date is required")
	}
	if !record.State.IsValid() {
		return fmt.Errorf("state record has invalid state: %s", record.State)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	// Keyed by company + as-of so re-evaluating the same date overwrites
	// rather than duplicating.
	if err := s.db.Store().Upsert(record.Key(), record); err != nil {
		return fmt.Errorf("failed to save state record: %w", err)
	}
	return nil
}

func (s *StateStorage) LatestState(ctx context.Context, companyID string) (*models.StateRecord, error) {
	var records []models.StateRecord
	query := badgerhold.Where("CompanyID").Eq(companyID).SortBy("AsOf").Reverse().Limit(1)
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to get latest state: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *StateStorage) History(ctx context.Context, companyID string, limit int) ([]*models.StateRecord, error) {
	var records []models.StateRecord
	query := badgerhold.Where("CompanyID").Eq(companyID).SortBy("AsOf").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to get state history: %w", err)
	}

	result := make([]*models.StateRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// LatestAll reduces the full record set in memory. The store holds one
// row per company per as-of date, so at watch-list scale this stays
// small; revisit if the history grows unbounded.
func (s *StateStorage) LatestAll(ctx context.Context) (map[string]*models.StateRecord, error) {
	var records []models.StateRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to scan state records: %w", err)
	}

	latest := make(map[string]*models.StateRecord)
	for i := range records {
		r := &records[i]
		cur, ok := latest[r.CompanyID]
		if !ok || r.AsOf > cur.AsOf {
			latest[r.CompanyID] = r
		}
	}
	return latest, nil
}

func (s *StateStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.StateRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count state records: %w", err)
	}
	return int(count), nil
}
