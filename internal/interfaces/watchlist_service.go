package interfaces

import (
	"context"

	"github.com/ternarybob/caveo/internal/models"
)

// WatchlistService loads the companies file and syncs it into storage
type WatchlistService interface {
	// Load parses and validates the watch-list file without touching
	// storage.
	Load() ([]*models.Company, error)

	// Sync upserts the file contents into company storage and returns
	// the number of companies written.
	Sync(ctx context.Context) (int, error)

	// Add validates a company, writes it to the file (replacing any
	// entry with the same ticker), and upserts it into storage.
	Add(ctx context.Context, company *models.Company) error

	// Remove drops a company from the file and from storage. Removing
	// an unknown ticker is an error.
	Remove(ctx context.Context, ticker string) error
}
