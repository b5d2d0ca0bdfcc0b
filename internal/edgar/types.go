// Package edgar provides a client for the SEC EDGAR data APIs:
// companyfacts, submissions, the filing archive, and the official
// ticker-to-CIK map. This package centralizes all EDGAR interactions
// for the application.
package edgar

import (
	"fmt"
	"time"
)

// APIError represents a non-200 response from an EDGAR endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("SEC EDGAR error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a local rate-limiter interruption.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("SEC EDGAR rate limit exceeded, retry after %v", e.RetryAfter)
}

// MissingUserAgentError is returned by NewClient when no identifying
// User-Agent was supplied. The SEC rejects anonymous traffic, so the
// client refuses to construct rather than fail on first request.
type MissingUserAgentError struct{}

func (e *MissingUserAgentError) Error() string {
	return "SEC EDGAR client requires a User-Agent identifying you (set edgar.user_agent or SEC_USER_AGENT, e.g. \"Name email@example.com\")"
}
