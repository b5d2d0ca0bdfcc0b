// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/quotes"
)

// PriceDataProvider supplies the one-month close history behind the
// dashboard price overlays. Implementations are expected to pace their
// upstream calls; callers treat any error as "no price data" rather
// than failing the snapshot.
type PriceDataProvider interface {
	// History1M returns roughly one month of daily closes for a ticker
	// as of the given date.
	History1M(ctx context.Context, ticker common.Ticker, asOf time.Time) (*quotes.Price1M, error)
}
