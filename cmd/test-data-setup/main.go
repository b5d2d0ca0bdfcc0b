package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// TestDataSetup seeds a development watch-list over the HTTP API
type TestDataSetup struct {
	baseURL string
	client  *http.Client
	logger  arbor.ILogger
}

// seedCompany is one watch-list entry to create. CIKs are supplied
// explicitly so seeding works without an EDGAR round trip.
type seedCompany struct {
	Ticker  string
	CIK     string
	Bucket  string
	InScope bool
}

var seedCompanies = []seedCompany{
	{Ticker: "BYND", CIK: "0001655210", Bucket: "consumer", InScope: true},
	{Ticker: "PTON", CIK: "0001639825", Bucket: "consumer", InScope: true},
	{Ticker: "CVNA", CIK: "0001690820", Bucket: "retail", InScope: true},
	{Ticker: "W", CIK: "0001616707", Bucket: "retail", InScope: false},
}

func NewTestDataSetup(baseURL string, logger arbor.ILogger) *TestDataSetup {
	return &TestDataSetup{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// AddCompany creates one watch-list company and returns its ID
func (t *TestDataSetup) AddCompany(company seedCompany) (string, error) {
	payload := map[string]interface{}{
		"ticker":   company.Ticker,
		"cik":      company.CIK,
		"bucket":   company.Bucket,
		"in_scope": company.InScope,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal company: %w", err)
	}

	resp, err := t.client.Post(t.baseURL+"/api/companies", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to add company: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("add company failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	id, _ := result["id"].(string)
	t.logger.Info().
		Str("ticker", company.Ticker).
		Str("cik", company.CIK).
		Str("bucket", company.Bucket).
		Bool("in_scope", company.InScope).
		Msg("✓ Added company")

	return id, nil
}

// SetupTestData seeds the full development watch-list
func (t *TestDataSetup) SetupTestData() error {
	t.logger.Info().Msg("Seeding development watch-list...")
	t.logger.Info().Msg("====================================================")

	for _, company := range seedCompanies {
		if _, err := t.AddCompany(company); err != nil {
			return fmt.Errorf("failed to add %s: %w", company.Ticker, err)
		}
	}

	// Verify the list round-trips
	resp, err := t.client.Get(t.baseURL + "/api/companies")
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}
	defer resp.Body.Close()

	var listing struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return fmt.Errorf("failed to decode company list: %w", err)
	}

	t.logger.Info().Msg("")
	t.logger.Info().Msg("====================================================")
	t.logger.Info().Msg("✅ Watch-list seeding complete!")
	t.logger.Info().Msg("")
	t.logger.Info().Int("companies", listing.Count).Msg("Summary:")
	t.logger.Info().Msg("")
	t.logger.Info().Msg("You can now:")
	t.logger.Info().Msg("  1. POST " + t.baseURL + "/api/evaluate to run an evaluation batch")
	t.logger.Info().Msg("  2. GET  " + t.baseURL + "/api/dashboard to see the snapshot")
	t.logger.Info().Msg("  3. Connect to ws" + strings.TrimPrefix(t.baseURL, "http") + "/ws for live updates")
	t.logger.Info().Msg("")

	return nil
}

// CleanupTestData removes every company on the watch-list
func (t *TestDataSetup) CleanupTestData() error {
	t.logger.Info().Msg("Cleaning up watch-list...")
	t.logger.Info().Msg("====================================================")

	resp, err := t.client.Get(t.baseURL + "/api/companies")
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}
	defer resp.Body.Close()

	var listing struct {
		Companies []struct {
			Ticker string `json:"ticker"`
		} `json:"companies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return fmt.Errorf("failed to decode companies: %w", err)
	}

	for _, company := range listing.Companies {
		req, _ := http.NewRequest("DELETE", t.baseURL+"/api/companies/"+company.Ticker, nil)
		delResp, err := t.client.Do(req)
		if err != nil {
			t.logger.Warn().Err(err).Str("ticker", company.Ticker).Msg("  ⚠ Failed to delete company")
		} else {
			delResp.Body.Close()
			t.logger.Info().Str("ticker", company.Ticker).Msg("  ✓ Deleted company")
		}
	}

	t.logger.Info().Msg("")
	t.logger.Info().Msg("✅ Cleanup complete!")
	return nil
}

func main() {
	// Initialize Arbor logger for console output
	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		TextOutput:       true,
		DisableTimestamp: false,
	})

	// Get server URL from environment or use default
	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8085"
	}

	// Check if cleanup flag is set
	cleanup := false
	for _, arg := range os.Args[1:] {
		if arg == "--cleanup" || arg == "-c" {
			cleanup = true
			break
		}
	}

	setup := NewTestDataSetup(serverURL, logger)

	// Check if server is running
	resp, err := http.Get(serverURL + "/api/status")
	if err != nil {
		logger.Fatal().
			Str("server_url", serverURL).
			Msg("❌ Server is not running - Please start the server first: ./caveo -c caveo.toml")
	}
	resp.Body.Close()

	if cleanup {
		if err := setup.CleanupTestData(); err != nil {
			logger.Fatal().Err(err).Msg("Cleanup failed")
		}
	} else {
		if err := setup.SetupTestData(); err != nil {
			logger.Fatal().Err(err).Msg("Setup failed")
		}
	}
}
