package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/httpclient"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
)

// Service posts state-change summaries to a Slack incoming webhook.
// With no webhook URL configured every call is a silent no-op, so the
// evaluator never needs to know whether notification is on.
type Service struct {
	config     common.NotifyConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ interfaces.NotifyService = (*Service)(nil)

// NewService creates a new notify service
func NewService(config common.NotifyConfig, logger arbor.ILogger) *Service {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		config:     config,
		httpClient: httpclient.NewDefaultHTTPClient(timeout),
		logger:     logger,
	}
}

// Enabled reports whether a webhook destination is configured.
func (s *Service) Enabled() bool {
	return s.config.WebhookURL != ""
}

// NotifyStateChange posts a one-line transition summary.
func (s *Service) NotifyStateChange(ctx context.Context, event *models.StateEvent, flags models.ConditionFlags) error {
	if !s.Enabled() {
		return nil
	}
	if event == nil {
		return fmt.Errorf("nil state event")
	}

	text := FormatTransition(event, flags)

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	s.logger.Info().
		Str("ticker", event.Ticker).
		Str("prev_state", string(event.PrevState)).
		Str("new_state", string(event.NewState)).
		Msg("State change notification sent")

	return nil
}

// FormatTransition renders the notification line, e.g.
// "[caveo] NKLA MONITOR → TRACK (as_of 2026-08-25) | c1=1 c2=1 c3=0 c4=0".
func FormatTransition(event *models.StateEvent, flags models.ConditionFlags) string {
	return fmt.Sprintf("[caveo] %s %s → %s (as_of %s) | c1=%d c2=%d c3=%d c4=%d",
		event.Ticker, event.PrevState, event.NewState, event.AsOf,
		boolToInt(flags.Condition1), boolToInt(flags.Condition2),
		boolToInt(flags.Condition3), boolToInt(flags.Condition4))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
