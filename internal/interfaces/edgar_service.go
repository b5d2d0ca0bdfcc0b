package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/caveo/internal/models"
)

// EdgarService is the EDGAR surface the evaluator and handlers consume:
// quarterly facts, recent filings, filing bodies, and the ticker map.
type EdgarService interface {
	// CompanyFacts fetches the companyfacts document for a CIK.
	CompanyFacts(ctx context.Context, cik string) (*models.CompanyFacts, error)

	// RecentFilings lists filings of one form type filed on or after
	// since, newest first, capped at limit.
	RecentFilings(ctx context.Context, cik, form string, since time.Time, limit int) ([]models.Filing, error)

	// FilingBody fetches the primary document body for a filing.
	FilingBody(ctx context.Context, cik string, filing models.Filing) (string, error)

	// TickerMap returns the ticker to CIK mapping published by EDGAR.
	TickerMap(ctx context.Context) (map[string]string, error)
}
