// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"time"
)

// StalenessResult contains the result of a staleness check.
type StalenessResult struct {
	// IsStale indicates whether the persisted evaluation is stale and needs refresh.
	IsStale bool
	// Age is how old the evaluation is relative to now.
	Age time.Duration
	// NextCheckTime is when the evaluation will cross the staleness threshold.
	// Zero when the evaluation is already stale.
	NextCheckTime time.Time
	// Reason provides a human-readable explanation for the staleness decision.
	Reason string
}

// CheckStateStaleness determines whether a persisted evaluation is older
// than the configured freshness window. The dashboard uses this to flag
// companies whose state row predates the last scheduled cycle, which
// usually means the cycle failed for that company.
//
// Parameters:
//   - evaluatedAt: when the state row was written
//   - now: current time (in UTC)
//   - staleAfter: freshness window (e.g. 72h)
func CheckStateStaleness(evaluatedAt, now time.Time, staleAfter time.Duration) StalenessResult {
	now = now.UTC()
	evaluatedAt = evaluatedAt.UTC()

	if evaluatedAt.IsZero() {
		return StalenessResult{
			IsStale: true,
			Reason:  "no evaluation recorded, assuming stale",
		}
	}

	age := now.Sub(evaluatedAt)
	if age > staleAfter {
		return StalenessResult{
			IsStale: true,
			Age:     age,
			Reason: fmt.Sprintf(
				"evaluation from %s is %s old, exceeds freshness window %s",
				evaluatedAt.Format("2006-01-02 15:04 MST"),
				age.Round(time.Minute),
				staleAfter,
			),
		}
	}

	return StalenessResult{
		IsStale:       false,
		Age:           age,
		NextCheckTime: evaluatedAt.Add(staleAfter),
		Reason: fmt.Sprintf(
			"evaluation is fresh (%s old), stale after %s",
			age.Round(time.Minute),
			evaluatedAt.Add(staleAfter).Format("2006-01-02 15:04 MST"),
		),
	}
}

// WithinWindow reports whether t falls inside the trailing window of
// the given number of calendar days ending at asOf. Timestamps after
// asOf are outside the window; the boundary day itself is inside.
// Used to scope the disclosure scan to recent filings.
func WithinWindow(t, asOf time.Time, days int) bool {
	if t.IsZero() || days <= 0 {
		return false
	}
	t = t.UTC()
	asOf = asOf.UTC()
	if t.After(asOf) {
		return false
	}
	cutoff := asOf.AddDate(0, 0, -days)
	return !t.Before(cutoff)
}
