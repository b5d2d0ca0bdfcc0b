package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EventStorage implements the EventStorage interface for Badger
type EventStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEventStorage creates a new EventStorage instance
func NewEventStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EventStorage {
	return &EventStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EventStorage) SaveEvent(ctx context.Context, event *models.StateEvent) error {
	if event.CompanyID == "" {
		return fmt.Errorf("event company ID is required")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(event.ID, event); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *EventStorage) RecentEvents(ctx context.Context, limit int) ([]*models.StateEvent, error) {
	var events []models.StateEvent
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&events, query); err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}

	result := make([]*models.StateEvent, len(events))
	for i := range events {
		result[i] = &events[i]
	}
	return result, nil
}

func (s *EventStorage) EventsForCompany(ctx context.Context, companyID string, limit int) ([]*models.StateEvent, error) {
	var events []models.StateEvent
	query := badgerhold.Where("CompanyID").Eq(companyID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&events, query); err != nil {
		return nil, fmt.Errorf("failed to get events for company: %w", err)
	}

	result := make([]*models.StateEvent, len(events))
	for i := range events {
		result[i] = &events[i]
	}
	return result, nil
}

func (s *EventStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.StateEvent{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return int(count), nil
}
