package models

import (
	"fmt"
	"strings"
	"time"
)

// Company is a watch-list entry. Ticker and CIK identify the filer;
// Bucket is a free-form grouping label from the watchlist file; InScope
// controls whether the evaluator classifies the company or parks it in
// IGNORE without fetching anything.
type Company struct {
	ID        string    `json:"id"` // normalized ticker
	Ticker    string    `json:"ticker" validate:"required,min=1,max=10"`
	CIK       string    `json:"cik" validate:"required,numeric,max=10"`
	Bucket    string    `json:"bucket,omitempty"`
	InScope   bool      `json:"in_scope"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NormalizeCIK strips leading zeros from a CIK so that equivalent
// representations ("0000320193" and "320193") collapse to one form.
func NormalizeCIK(cik string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(cik), "0")
	if trimmed == "" && cik != "" {
		return "0"
	}
	return trimmed
}

// PadCIK zero-pads a CIK to the 10 digits the submissions and
// companyfacts endpoints require.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", NormalizeCIK(cik))
}

// Normalize canonicalizes the ticker and CIK and derives the ID.
func (c *Company) Normalize() {
	c.Ticker = NormalizeTicker(c.Ticker)
	c.CIK = NormalizeCIK(c.CIK)
	if c.ID == "" {
		c.ID = c.Ticker
	}
}
