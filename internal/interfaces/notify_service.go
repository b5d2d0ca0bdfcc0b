package interfaces

import (
	"context"

	"github.com/ternarybob/caveo/internal/models"
)

// NotifyService delivers state-change notifications to an external
// webhook. Implementations must be safe to call with notifications
// disabled; NotifyStateChange becomes a no-op.
type NotifyService interface {
	// NotifyStateChange posts a one-line transition summary.
	NotifyStateChange(ctx context.Context, event *models.StateEvent, flags models.ConditionFlags) error

	// Enabled reports whether a webhook destination is configured.
	Enabled() bool
}
