package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/caveo/internal/models"
)

const (
	// DefaultDataBaseURL serves the companyfacts and submissions JSON APIs.
	DefaultDataBaseURL = "https://data.sec.gov"

	// DefaultArchiveBaseURL serves the filing archive and the ticker map.
	DefaultArchiveBaseURL = "https://www.sec.gov"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	// The SEC allows 10/s; staying well under keeps batch runs polite.
	DefaultRateLimit = 4
)

// Client is a SEC EDGAR client. All requests carry the identifying
// User-Agent the SEC requires and share one rate limiter across both
// hosts.
type Client struct {
	dataBaseURL    string
	archiveBaseURL string
	userAgent      string
	httpClient     *http.Client
	logger         arbor.ILogger
	limiter        *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDataBaseURL sets a custom base URL for the JSON data APIs.
func WithDataBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.dataBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithArchiveBaseURL sets a custom base URL for the filing archive.
func WithArchiveBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.archiveBaseURL = strings.TrimRight(baseURL, "/")
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

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EDGAR client. The userAgent must identify
// the operator ("Name email@example.com"); construction fails without
// one rather than letting the SEC block the traffic later.
func NewClient(userAgent string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, &MissingUserAgentError{}
	}

	c := &Client{
		dataBaseURL:    DefaultDataBaseURL,
		archiveBaseURL: DefaultArchiveBaseURL,
		userAgent:      userAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// fetch performs a rate-limited GET and returns the response body.
func (c *Client) fetch(ctx context.Context, reqURL, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{RetryAfter: time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	if c.logger != nil {
		c.logger.Debug().
			Str("url", reqURL).
			Msg("SEC EDGAR request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncateBody(body),
			Endpoint:   endpoint,
		}
	}

	return body, nil
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, reqURL, endpoint string, result interface{}) error {
	body, err := c.fetch(ctx, reqURL, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CompanyFacts retrieves the full XBRL companyfacts document for a
// filer. The CIK may carry or omit leading zeros.
func (c *Client) CompanyFacts(ctx context.Context, cik string) (*models.CompanyFacts, error) {
	reqURL := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.dataBaseURL, models.PadCIK(cik))

	var result models.CompanyFacts
	if err := c.getJSON(ctx, reqURL, "companyfacts", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Submissions retrieves the filer's submissions index, including the
// column-oriented recent-filings arrays.
func (c *Client) Submissions(ctx context.Context, cik string) (*SubmissionsResponse, error) {
	reqURL := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBaseURL, models.PadCIK(cik))

	var result SubmissionsResponse
	if err := c.getJSON(ctx, reqURL, "submissions", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecentFilings retrieves the filer's filings of one form type filed on
// or after since, scanning at most limit index rows.
func (c *Client) RecentFilings(ctx context.Context, cik, form string, since time.Time, limit int) ([]models.Filing, error) {
	subs, err := c.Submissions(ctx, cik)
	if err != nil {
		return nil, err
	}
	return subs.FilingsSince(form, since, limit), nil
}

// TickerMap retrieves the official ticker-to-CIK map. Keys are
// upper-case tickers, values zero-padded 10-digit CIKs.
func (c *Client) TickerMap(ctx context.Context) (map[string]string, error) {
	reqURL := fmt.Sprintf("%s/files/company_tickers.json", c.archiveBaseURL)

	var rows map[string]tickerRow
	if err := c.getJSON(ctx, reqURL, "company_tickers", &rows); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		ticker := models.NormalizeTicker(row.Ticker)
		if ticker == "" || row.CIK <= 0 {
			continue
		}
		out[ticker] = models.PadCIK(strconv.FormatInt(row.CIK, 10))
	}
	return out, nil
}

// FilingIndex retrieves the index.json listing for one filing's
// archive folder.
func (c *Client) FilingIndex(ctx context.Context, cik, accession string) (*FilingIndex, error) {
	reqURL := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/index.json",
		c.archiveBaseURL, models.NormalizeCIK(cik), accessionFolder(accession))

	var result FilingIndex
	if err := c.getJSON(ctx, reqURL, "filing_index", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FilingBody retrieves the raw body of a filing's main document. The
// document name comes from the submissions index when present, then the
// folder's index.json, then the directory listing page as a last
// resort. The returned string is raw HTML or SGML; callers extract
// plain text themselves.
func (c *Client) FilingBody(ctx context.Context, cik string, filing models.Filing) (string, error) {
	name := filing.PrimaryDocument
	if name == "" {
		index, err := c.FilingIndex(ctx, cik, filing.AccessionNumber)
		if err == nil {
			name = index.PickDocument()
		}
	}
	if name == "" {
		listed, err := c.listDocuments(ctx, cik, filing.AccessionNumber)
		if err != nil {
			return "", err
		}
		name = listed
	}
	if name == "" {
		return "", &APIError{
			StatusCode: http.StatusNotFound,
			Message:    "no document found for accession " + filing.AccessionNumber,
			Endpoint:   "filing_body",
		}
	}

	reqURL := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.archiveBaseURL, models.NormalizeCIK(cik), accessionFolder(filing.AccessionNumber), name)

	body, err := c.fetch(ctx, reqURL, "filing_body")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// listDocuments scrapes the filing folder's directory listing page for
// a usable document name, with the same extension preference as
// FilingIndex.PickDocument.
func (c *Client) listDocuments(ctx context.Context, cik, accession string) (string, error) {
	reqURL := fmt.Sprintf("%s/Archives/edgar/data/%s/%s/",
		c.archiveBaseURL, models.NormalizeCIK(cik), accessionFolder(accession))

	body, err := c.fetch(ctx, reqURL, "filing_listing")
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to parse directory listing: %w", err)
	}

	var names []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.HasSuffix(href, "/") {
			return
		}
		names = append(names, path.Base(href))
	})

	for _, ext := range []string{".txt", ".htm", ".html"} {
		for _, n := range names {
			if strings.HasSuffix(strings.ToLower(n), ext) && !strings.EqualFold(n, "index.htm") {
				return n, nil
			}
		}
	}
	return "", nil
}

// truncateBody bounds an error body; EDGAR serves whole HTML pages on
// failures.
func truncateBody(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
