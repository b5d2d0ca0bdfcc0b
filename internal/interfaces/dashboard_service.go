package interfaces

import (
	"context"

	pkgmodels "github.com/ternarybob/caveo/pkg/models"
)

// DashboardService assembles the exported dashboard snapshot
type DashboardService interface {
	// Snapshot builds the full dashboard payload from storage,
	// including one-month price enrichment when quotes are enabled.
	Snapshot(ctx context.Context) (*pkgmodels.Dashboard, error)

	// Export writes the snapshot as JSON and returns the output path.
	Export(ctx context.Context) (string, error)
}
