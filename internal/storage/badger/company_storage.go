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

// CompanyStorage implements the CompanyStorage interface for Badger
type CompanyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCompanyStorage creates a new CompanyStorage instance
func NewCompanyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CompanyStorage {
	return &CompanyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CompanyStorage) Upsert(ctx context.Context, company *models.Company) error {
	company.Normalize()
	if company.ID == "" {
		return fmt.Errorf("company ID is required")
	}

	now := time.Now()
	if company.AddedAt.IsZero() {
		company.AddedAt = now
	}
	company.UpdatedAt = now

	if err := s.db.Store().Upsert(company.ID, company); err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

func (s *CompanyStorage) Get(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := s.db.Store().Get(models.NormalizeTicker(id), &company); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("company not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func (s *CompanyStorage) List(ctx context.Context) ([]*models.Company, error) {
	var companies []models.Company
	if err := s.db.Store().Find(&companies, badgerhold.Where("ID").Ne("").SortBy("ID")); err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	result := make([]*models.Company, len(companies))
	for i := range companies {
		result[i] = &companies[i]
	}
	return result, nil
}

func (s *CompanyStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(models.NormalizeTicker(id), &models.Company{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return nil
}

func (s *CompanyStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Company{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return int(count), nil
}
