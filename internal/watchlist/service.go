package watchlist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk watch-list document.
type File struct {
	Companies []Entry `yaml:"companies"`
}

// Entry is one company row in the watch-list file. InScope is a
// pointer so an absent key defaults to true rather than false.
type Entry struct {
	CompanyID string `yaml:"company_id,omitempty"`
	Ticker    string `yaml:"ticker"`
	CIK       string `yaml:"cik"`
	Bucket    string `yaml:"bucket,omitempty"`
	InScope   *bool  `yaml:"in_scope"`
}

func (e Entry) toCompany() *models.Company {
	inScope := true
	if e.InScope != nil {
		inScope = *e.InScope
	}
	return &models.Company{
		ID:      e.CompanyID,
		Ticker:  e.Ticker,
		CIK:     e.CIK,
		Bucket:  e.Bucket,
		InScope: inScope,
	}
}

// Service owns the companies file. The file is the source of truth for
// scope membership; storage is a synced copy the evaluator reads.
type Service struct {
	path     string
	storage  interfaces.CompanyStorage
	validate *validator.Validate
	logger   arbor.ILogger
	mu       sync.Mutex // serializes file rewrites
}

var _ interfaces.WatchlistService = (*Service)(nil)

// NewService creates a watchlist service backed by the file at path.
func NewService(path string, storage interfaces.CompanyStorage, logger arbor.ILogger) *Service {
	return &Service{
		path:     path,
		storage:  storage,
		validate: validator.New(),
		logger:   logger,
	}
}

// Load parses and validates the watch-list file without touching
// storage. Duplicate tickers keep the first occurrence.
func (s *Service) Load() ([]*models.Company, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist %s: %w", s.path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist %s: %w", s.path, err)
	}

	companies := make([]*models.Company, 0, len(file.Companies))
	seen := make(map[string]bool)
	for i, entry := range file.Companies {
		company := entry.toCompany()
		company.Normalize()

		if err := s.validate.Struct(company); err != nil {
			return nil, fmt.Errorf("invalid watchlist entry %d (ticker %q): %w", i, entry.Ticker, err)
		}

		if seen[company.ID] {
			s.logger.Warn().
				Str("ticker", company.Ticker).
				Msg("Duplicate watchlist entry skipped")
			continue
		}
		seen[company.ID] = true
		companies = append(companies, company)
	}

	return companies, nil
}

// Save rewrites the watch-list file atomically (temp file + rename).
// CIKs are written zero-padded to ten digits, the form the upstream
// endpoints use.
func (s *Service) Save(companies []*models.Company) error {
	file := File{Companies: make([]Entry, 0, len(companies))}
	for _, c := range companies {
		inScope := c.InScope
		file.Companies = append(file.Companies, Entry{
			CompanyID: c.ID,
			Ticker:    c.Ticker,
			CIK:       models.PadCIK(c.CIK),
			Bucket:    c.Bucket,
			InScope:   &inScope,
		})
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create watchlist directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".companies-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp watchlist: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp watchlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp watchlist: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace watchlist: %w", err)
	}

	return nil
}

// Sync upserts the file contents into company storage and returns the
// number of companies written. Companies removed from the file are not
// deleted here; Remove handles explicit removal.
func (s *Service) Sync(ctx context.Context) (int, error) {
	companies, err := s.Load()
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, company := range companies {
		if err := s.storage.Upsert(ctx, company); err != nil {
			return synced, fmt.Errorf("failed to sync company %s: %w", company.Ticker, err)
		}
		synced++
	}

	s.logger.Info().
		Int("count", synced).
		Str("path", s.path).
		Msg("Watchlist synced to storage")

	return synced, nil
}

// Add validates a company, writes it to the file (replacing any entry
// with the same ticker), and upserts it into storage.
func (s *Service) Add(ctx context.Context, company *models.Company) error {
	if company == nil {
		return fmt.Errorf("nil company")
	}

	company.Normalize()
	if err := s.validate.Struct(company); err != nil {
		return fmt.Errorf("invalid company: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Load()
	if err != nil {
		// A missing file means an empty watchlist; anything else is real
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		existing = nil
	}

	replaced := false
	for i, c := range existing {
		if c.ID == company.ID {
			existing[i] = company
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, company)
	}

	if err := s.Save(existing); err != nil {
		return err
	}

	if err := s.storage.Upsert(ctx, company); err != nil {
		return fmt.Errorf("failed to store company %s: %w", company.Ticker, err)
	}

	s.logger.Info().
		Str("ticker", company.Ticker).
		Str("cik", company.CIK).
		Bool("replaced", replaced).
		Msg("Watchlist company added")

	return nil
}

// Remove drops a company from the file and from storage. Removing an
// unknown ticker is an error so API callers get a 404.
func (s *Service) Remove(ctx context.Context, ticker string) error {
	id := models.NormalizeTicker(ticker)
	if id == "" {
		return fmt.Errorf("empty ticker")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Load()
	if err != nil {
		return err
	}

	kept := make([]*models.Company, 0, len(existing))
	found := false
	for _, c := range existing {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("company not found: %s", id)
	}

	if err := s.Save(kept); err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete company %s: %w", id, err)
	}

	s.logger.Info().
		Str("ticker", id).
		Msg("Watchlist company removed")

	return nil
}
