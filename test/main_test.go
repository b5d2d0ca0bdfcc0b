package test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/caveo/internal/app"
	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/server"
)

// Test environment globals
var (
	testApp     *app.App
	testServer  *server.Server
	testConfig  *common.Config
	testLogger  arbor.ILogger
	serverURL   string
	testDataDir string
	edgarStub   *httptest.Server
)

// TestMain sets up and tears down the test environment
func TestMain(m *testing.M) {
	var exitCode int

	// Setup
	if err := setupTestEnvironment(); err != nil {
		fmt.Printf("Failed to set up test environment: %v\n", err)
		exitCode = 1
	} else {
		// Run tests
		exitCode = m.Run()

		// Teardown
		teardownTestEnvironment()
	}

	os.Exit(exitCode)
}

// setupTestEnvironment initializes the test application and server
func setupTestEnvironment() error {
	// Create test data directory
	testDataDir = filepath.Join(".", "testdata")
	if err := os.MkdirAll(testDataDir, 0755); err != nil {
		return fmt.Errorf("failed to create test data directory: %w", err)
	}

	// Canned EDGAR endpoints so no test ever leaves localhost
	edgarStub = startEdgarStub()

	// Load test configuration
	testConfig = common.NewDefaultConfig()
	testConfig.Server.Port = 18085 // Use different port for testing
	testConfig.Server.Host = "127.0.0.1"
	testConfig.Storage.Badger.Path = filepath.Join(testDataDir, "badger")
	testConfig.Storage.Badger.ResetOnStartup = true
	testConfig.Logging.Level = "debug"
	testConfig.Logging.Output = []string{"stdout"}
	testConfig.Edgar.UserAgent = "caveo-tests ops@example.com"
	testConfig.Edgar.DataBaseURL = edgarStub.URL
	testConfig.Edgar.ArchiveBaseURL = edgarStub.URL
	testConfig.Quotes.Enabled = false // dashboard price fields stay null
	testConfig.Scheduler.Enabled = false
	testConfig.Watchlist.Path = filepath.Join(testDataDir, "companies.yaml")
	testConfig.Dashboard.Path = filepath.Join(testDataDir, "dashboard.json")

	if err := testConfig.Validate(); err != nil {
		return fmt.Errorf("test configuration invalid: %w", err)
	}

	// Initialize test logger
	testLogger = arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
		TextOutput: true,
	}).WithLevelFromString(testConfig.Logging.Level)

	// Initialize application
	var err error
	testApp, err = app.New(testConfig, testLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize test app: %w", err)
	}

	// Create server
	testServer = server.New(testApp)

	// Start server in background
	serverURL = fmt.Sprintf("http://%s:%d", testConfig.Server.Host, testConfig.Server.Port)
	go func() {
		if err := testServer.Start(); err != nil {
			testLogger.Error().Err(err).Msg("Test server error")
		}
	}()

	// Wait for server to be ready
	if err := waitForServer(serverURL, 10*time.Second); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	testLogger.Info().
		Str("url", serverURL).
		Msg("Test environment ready")

	return nil
}

// teardownTestEnvironment cleans up the test environment
func teardownTestEnvironment() {
	// Shutdown server
	if testServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := testServer.Shutdown(ctx); err != nil {
			testLogger.Warn().Err(err).Msg("Server shutdown error")
		}
	}

	// Close application resources
	if testApp != nil {
		testApp.Close()
	}

	if edgarStub != nil {
		edgarStub.Close()
	}

	// Clean up test data directory
	if testDataDir != "" {
		os.RemoveAll(testDataDir)
	}

	testLogger.Info().Msg("Test environment cleaned up")
}

// waitForServer waits for the server to become responsive
func waitForServer(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// GetTestServerURL returns the base URL of the test server
func GetTestServerURL() string {
	return serverURL
}

// GetTestApp returns the test application instance
func GetTestApp() *app.App {
	return testApp
}

// startEdgarStub serves canned companyfacts documents for the seeded
// CIKs. Submissions and archive routes are deliberately absent: a
// healthy filer never reaches the 8-K scan, so any request outside
// companyfacts is a regression and fails loudly as a 404.
func startEdgarStub() *httptest.Server {
	docs := map[string]string{
		"CIK0001655210.json": healthyCompanyFacts(1655210, "Beyond Meat, Inc."),
		"CIK0001639825.json": healthyCompanyFacts(1639825, "Peloton Interactive, Inc."),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/xbrl/companyfacts/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/xbrl/companyfacts/")
		body, ok := docs[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})

	return httptest.NewServer(mux)
}

// healthyCompanyFacts builds a four-quarter revenue and gross-profit
// series with accelerating growth and improving margins. Condition 1
// stays false on this shape, so an in-scope company lands in MONITOR
// and the evaluator never scans filings.
func healthyCompanyFacts(cik int64, entityName string) string {
	const doc = `{
  "cik": %d,
  "entityName": %q,
  "facts": {
    "us-gaap": {
      "Revenues": {
        "label": "Revenues",
        "description": "Total revenues",
        "units": {
          "USD": [
            {"start": "2025-07-01", "end": "2025-09-30", "val": 100000000, "fy": 2025, "fp": "Q3", "form": "10-Q", "filed": "2025-11-05"},
            {"start": "2025-10-01", "end": "2025-12-31", "val": 120000000, "fy": 2025, "fp": "FY", "form": "10-K", "filed": "2026-02-20"},
            {"start": "2026-01-01", "end": "2026-03-31", "val": 150000000, "fy": 2026, "fp": "Q1", "form": "10-Q", "filed": "2026-05-06"},
            {"start": "2026-04-01", "end": "2026-06-30", "val": 190000000, "fy": 2026, "fp": "Q2", "form": "10-Q", "filed": "2026-08-05"}
          ]
        }
      },
      "GrossProfit": {
        "label": "Gross Profit",
        "description": "Revenue less cost of revenue",
        "units": {
          "USD": [
            {"start": "2025-07-01", "end": "2025-09-30", "val": 30000000, "fy": 2025, "fp": "Q3", "form": "10-Q", "filed": "2025-11-05"},
            {"start": "2025-10-01", "end": "2025-12-31", "val": 42000000, "fy": 2025, "fp": "FY", "form": "10-K", "filed": "2026-02-20"},
            {"start": "2026-01-01", "end": "2026-03-31", "val": 60000000, "fy": 2026, "fp": "Q1", "form": "10-Q", "filed": "2026-05-06"},
            {"start": "2026-04-01", "end": "2026-06-30", "val": 80000000, "fy": 2026, "fp": "Q2", "form": "10-Q", "filed": "2026-08-05"}
          ]
        }
      }
    }
  }
}`
	return fmt.Sprintf(doc, cik, entityName)
}
