// Package quotes provides a client for the Stooq daily-price CSV
// endpoint and the derived one-month price metrics used by the
// dashboard overlays.
package quotes

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/caveo/internal/common"
)

const (
	// DefaultBaseURL is the base URL for the Stooq CSV endpoint.
	DefaultBaseURL = "https://stooq.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	// Stooq is a free endpoint; stay polite.
	DefaultRateLimit = 2

	// DefaultWindowDays is the calendar window for the one-month series.
	DefaultWindowDays = 35

	// DefaultFallbackRows is how many trailing trading rows to use when
	// the calendar window holds fewer than two points.
	DefaultFallbackRows = 22
)

// NoDataError means no symbol candidate produced a usable close series.
type NoDataError struct {
	Ticker string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no Stooq price data for %s", e.Ticker)
}

// Client fetches daily closes from Stooq.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       arbor.ILogger
	limiter      *rate.Limiter
	windowDays   int
	fallbackRows int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithWindow sets the calendar window and the trading-row fallback for
// the one-month series.
func WithWindow(days, fallbackRows int) ClientOption {
	return func(c *Client) {
		if days > 0 {
			c.windowDays = days
		}
		if fallbackRows > 0 {
			c.fallbackRows = fallbackRows
		}
	}
}

// NewClient creates a new Stooq client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		windowDays:   DefaultWindowDays,
		fallbackRows: DefaultFallbackRows,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Price1M is the one-month close series for one ticker, shaped for the
// dashboard payload.
type Price1M struct {
	Closes    []float64 `json:"closes"`
	PctChange float64   `json:"pct_change"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Source    string    `json:"source"`
}

// closeRow is one parsed CSV row.
type closeRow struct {
	date  time.Time
	close float64
}

// History1M fetches roughly one month of daily closes for a ticker,
// trying each Stooq symbol candidate in order. Returns *NoDataError
// when no candidate yields at least two usable closes.
func (c *Client) History1M(ctx context.Context, ticker common.Ticker, asOf time.Time) (*Price1M, error) {
	for _, symbol := range ticker.StooqCandidates() {
		csvText, err := c.fetchDailyCSV(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if c.logger != nil {
				c.logger.Debug().
					Str("symbol", symbol).
					Err(err).
					Msg("Stooq fetch failed, trying next candidate")
			}
			continue
		}
		if price := c.parseWindow(csvText, asOf); price != nil {
			return price, nil
		}
	}
	return nil, &NoDataError{Ticker: ticker.Code}
}

// fetchDailyCSV retrieves the raw daily CSV for one symbol.
func (c *Client) fetchDailyCSV(ctx context.Context, symbol string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s/q/d/l/?s=%s&i=d", c.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv,*/*;q=0.8")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", reqURL).
			Msg("Stooq request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stooq returned status %d for %s", resp.StatusCode, symbol)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	text := strings.TrimSpace(string(body))
	if text == "" || strings.Contains(text, "No data") {
		return "", fmt.Errorf("stooq has no data for %s", symbol)
	}
	return text, nil
}

// parseWindow extracts the close series for the trailing calendar
// window, falling back to the last trading rows when the window is too
// sparse. Nil when fewer than two usable closes remain.
func (c *Client) parseWindow(csvText string, asOf time.Time) *Price1M {
	rows := parseDailyCSV(csvText)
	if len(rows) < 2 {
		return nil
	}

	cutoff := asOf.AddDate(0, 0, -c.windowDays)
	var windowed []closeRow
	for _, row := range rows {
		if !row.date.Before(cutoff) {
			windowed = append(windowed, row)
		}
	}
	if len(windowed) < 2 {
		if len(rows) >= c.fallbackRows {
			windowed = rows[len(rows)-c.fallbackRows:]
		} else {
			windowed = rows
		}
	}
	if len(windowed) < 2 {
		return nil
	}

	closes := make([]float64, len(windowed))
	for i, row := range windowed {
		closes[i] = row.close
	}
	start := closes[0]
	if start == 0 {
		return nil
	}

	return &Price1M{
		Closes:    closes,
		PctChange: round2((closes[len(closes)-1] - start) / start * 100),
		Start:     windowed[0].date.Format("2006-01-02"),
		End:       windowed[len(windowed)-1].date.Format("2006-01-02"),
		Source:    "stooq",
	}
}

// parseDailyCSV reads Date/Close pairs from a Stooq daily CSV, dropping
// malformed rows.
func parseDailyCSV(text string) []closeRow {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil || len(records) < 2 {
		return nil
	}

	dateIdx, closeIdx := -1, -1
	for i, col := range records[0] {
		switch strings.TrimSpace(col) {
		case "Date":
			dateIdx = i
		case "Close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil
	}

	var rows []closeRow
	for _, record := range records[1:] {
		if len(record) <= dateIdx || len(record) <= closeIdx {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateIdx]))
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[closeIdx]), 64)
		if err != nil {
			continue
		}
		rows = append(rows, closeRow{date: d, close: v})
	}
	return rows
}
