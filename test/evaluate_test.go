package test

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// The stub EDGAR server only knows these two filers. Wayfair is seeded
// out of scope, so its facts are never fetched and it needs no stub.
var evaluationSeed = []map[string]interface{}{
	{"ticker": "BYND", "cik": "0001655210", "bucket": "consumer", "in_scope": true},
	{"ticker": "PTON", "cik": "0001639825", "bucket": "consumer"},
	{"ticker": "W", "cik": "0001616707", "bucket": "retail", "in_scope": false},
}

// TestEvaluationBatch drives a full background run: seed the
// watch-list, trigger the batch, then verify states, events, run logs,
// status metadata, and the dashboard.
func TestEvaluationBatch(t *testing.T) {
	h := NewHTTPTestHelper(t)

	for _, seed := range evaluationSeed {
		resp, err := h.POST("/api/companies", seed)
		if err != nil {
			t.Fatalf("Failed to seed %v: %v", seed["ticker"], err)
		}
		h.AssertStatusCode(resp, http.StatusCreated)
		resp.Body.Close()
	}

	// Trigger the batch
	resp, err := h.POST("/api/evaluate", nil)
	if err != nil {
		t.Fatalf("Failed to trigger evaluation: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusAccepted)

	var started struct {
		Status string `json:"status"`
		RunID  string `json:"run_id"`
	}
	if err := h.ParseJSONResponse(resp, &started); err != nil {
		t.Fatalf("Failed to parse trigger response: %v", err)
	}
	if started.Status != "started" {
		t.Errorf("Expected status 'started', got %s", started.Status)
	}
	if started.RunID == "" {
		t.Fatal("Trigger response missing run_id")
	}

	// The run is finished once every seeded company has a persisted state
	for _, seed := range evaluationSeed {
		ticker := seed["ticker"].(string)
		if err := Retry(func() error {
			return companyHasState(h, ticker)
		}, 50, 200*time.Millisecond); err != nil {
			t.Fatalf("Company %s never received a state: %v", ticker, err)
		}
	}

	// Healthy in-scope filers hold at MONITOR with no conditions firing
	for _, ticker := range []string{"BYND", "PTON"} {
		state, flags := fetchLatestState(t, h, ticker)
		if state != "MONITOR" {
			t.Errorf("%s: expected state MONITOR, got %s", ticker, state)
		}
		for name, value := range flags {
			if value == true {
				t.Errorf("%s: condition flag %s should be false", ticker, name)
			}
		}
	}

	// The out-of-scope filer parks in IGNORE without an EDGAR fetch
	if state, _ := fetchLatestState(t, h, "W"); state != "IGNORE" {
		t.Errorf("W: expected state IGNORE, got %s", state)
	}

	verifyTransitionEvent(t, h)
	verifyRunListing(t, h, started.RunID)
	verifyRunLogs(t, h, started.RunID)
	verifyStatusAfterRun(t, h)
	verifyDashboard(t, h)
	verifyDashboardExport(t)
}

// TestEvaluateSingleCompany re-runs one filer synchronously. The as-of
// date matches the batch run, so the record is overwritten in place and
// no new transition event appears.
func TestEvaluateSingleCompany(t *testing.T) {
	h := NewHTTPTestHelper(t)

	resp, err := h.POST("/api/companies/BYND/evaluate", nil)
	if err != nil {
		t.Fatalf("Failed to evaluate company: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusOK)

	var result struct {
		CompanyID string `json:"company_id"`
		Ticker    string `json:"ticker"`
		Outcome   string `json:"outcome"`
		State     string `json:"state"`
		PrevState string `json:"prev_state"`
		Changed   bool   `json:"changed"`
	}
	if err := h.ParseJSONResponse(resp, &result); err != nil {
		t.Fatalf("Failed to parse evaluation result: %v", err)
	}
	if result.CompanyID != "BYND" {
		t.Errorf("Expected company_id BYND, got %s", result.CompanyID)
	}
	if result.Outcome != "evaluated" {
		t.Errorf("Expected outcome 'evaluated', got %s", result.Outcome)
	}
	if result.State != "MONITOR" {
		t.Errorf("Expected state MONITOR, got %s", result.State)
	}
	if result.Changed {
		t.Error("Re-evaluating an unchanged company should not report a transition")
	}
}

func TestEvaluateUnknownCompany(t *testing.T) {
	h := NewHTTPTestHelper(t)

	resp, err := h.POST("/api/companies/ZZZZ/evaluate", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestTriggerEvaluationMethodNotAllowed(t *testing.T) {
	h := NewHTTPTestHelper(t)

	resp, err := h.GET("/api/evaluate")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusMethodNotAllowed)
	resp.Body.Close()
}

// companyHasState reports nil once GET /api/companies/{ticker} carries
// a latest_state block.
func companyHasState(h *HTTPTestHelper, ticker string) error {
	resp, err := h.Client.Get(h.BaseURL + "/api/companies/" + ticker)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload map[string]interface{}
	if err := decodeBody(resp, &payload); err != nil {
		return err
	}
	if _, ok := payload["latest_state"]; !ok {
		return fmt.Errorf("%s has no latest_state yet", ticker)
	}
	return nil
}

// fetchLatestState returns the persisted state and condition flags for
// one company.
func fetchLatestState(t *testing.T, h *HTTPTestHelper, ticker string) (string, map[string]interface{}) {
	t.Helper()

	resp, err := h.GET("/api/companies/" + ticker)
	if err != nil {
		t.Fatalf("Failed to get %s: %v", ticker, err)
	}
	h.AssertStatusCode(resp, http.StatusOK)

	var payload struct {
		LatestState struct {
			State string                 `json:"state"`
			AsOf  string                 `json:"as_of"`
			Flags map[string]interface{} `json:"flags"`
		} `json:"latest_state"`
	}
	if err := h.ParseJSONResponse(resp, &payload); err != nil {
		t.Fatalf("Failed to parse %s state: %v", ticker, err)
	}
	if payload.LatestState.AsOf == "" {
		t.Errorf("%s latest_state missing as_of", ticker)
	}
	return payload.LatestState.State, payload.LatestState.Flags
}

// verifyTransitionEvent checks that parking W out of scope produced
// exactly one MONITOR to IGNORE transition.
func verifyTransitionEvent(t *testing.T, h *HTTPTestHelper) {
	t.Helper()

	resp, err := h.GET("/api/events?ticker=W")
	if err != nil {
		t.Fatalf("Failed to get events: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusOK)

	var feed struct {
		Count  int `json:"count"`
		Events []struct {
			CompanyID string `json:"company_id"`
			Ticker    string `json:"ticker"`
			PrevState string `json:"prev_state"`
			NewState  string `json:"new_state"`
		} `json:"events"`
	}
	if err := h.ParseJSONResponse(resp, &feed); err != nil {
		t.Fatalf("Failed to parse events: %v", err)
	}
	if feed.Count != 1 {
		t.Fatalf("Expected exactly 1 event for W, got %d", feed.Count)
	}
	event := feed.Events[0]
	if event.PrevState != "MONITOR" || event.NewState != "IGNORE" {
		t.Errorf("Expected MONITOR to IGNORE, got %s to %s", event.PrevState, event.NewState)
	}
}

func verifyRunListing(t *testing.T, h *HTTPTestHelper, runID string) {
	t.Helper()

	resp, err := h.GET("/api/runs")
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusOK)

	var listing struct {
		Count int      `json:"count"`
		Runs  []string `json:"runs"`
	}
	if err := h.ParseJSONResponse(resp, &listing); err != nil {
		t.Fatalf("Failed to parse run listing: %v", err)
	}
	found := false
	for _, id := range listing.Runs {
		if id == runID {
			found = true
		}
	}
	if !found {
		t.Errorf("Run %s not present in listing %v", runID, listing.Runs)
	}
}

// verifyRunLogs checks captured lines exist for the run and that the
// level filter validates its input.
func verifyRunLogs(t *testing.T, h *HTTPTestHelper, runID string) {
	t.Helper()

	// Log capture is asynchronous; allow it a moment to flush
	if err := Retry(func() error {
		resp, err := h.Client.Get(h.BaseURL + "/api/runs/" + runID + "/logs")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var batch struct {
			RunID   string                   `json:"run_id"`
			Entries []map[string]interface{} `json:"entries"`
		}
		if err := decodeBody(resp, &batch); err != nil {
			return err
		}
		if len(batch.Entries) == 0 {
			return fmt.Errorf("no log entries for run %s yet", runID)
		}
		return nil
	}, 25, 200*time.Millisecond); err != nil {
		t.Errorf("Run logs never appeared: %v", err)
	}

	resp, err := h.GET("/api/runs/" + runID + "/logs?min_level=info")
	if err != nil {
		t.Fatalf("Failed to get filtered logs: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusOK)
	resp.Body.Close()

	resp, err = h.GET("/api/runs/" + runID + "/logs?min_level=bogus")
	if err != nil {
		t.Fatalf("Failed to get bogus-filtered logs: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusBadRequest)
	resp.Body.Close()
}

// verifyStatusAfterRun waits for the status service to settle back to
// idle and checks the recorded batch counters.
func verifyStatusAfterRun(t *testing.T, h *HTTPTestHelper) {
	t.Helper()

	var lastRun map[string]interface{}
	if err := Retry(func() error {
		resp, err := h.Client.Get(h.BaseURL + "/api/status")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var status struct {
			State    string                 `json:"state"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		if err := decodeBody(resp, &status); err != nil {
			return err
		}
		if status.State != "idle" {
			return fmt.Errorf("status still %s", status.State)
		}
		run, ok := status.Metadata["last_run"].(map[string]interface{})
		if !ok {
			return fmt.Errorf("status has no last_run metadata yet")
		}
		lastRun = run
		return nil
	}, 25, 200*time.Millisecond); err != nil {
		t.Fatalf("Status never settled to idle: %v", err)
	}

	// JSON numbers decode as float64
	checks := map[string]float64{
		"evaluated": 3,
		"skipped":   0,
		"failed":    0,
		"changed":   1,
	}
	for field, expected := range checks {
		actual, ok := lastRun[field].(float64)
		if !ok {
			t.Errorf("last_run missing %s counter", field)
			continue
		}
		if actual != expected {
			t.Errorf("last_run.%s: expected %.0f, got %.0f", field, expected, actual)
		}
	}
}

// verifyDashboard checks the on-demand snapshot: three companies, two
// in scope, null price fields with quotes disabled, and grades that
// match the states.
func verifyDashboard(t *testing.T, h *HTTPTestHelper) {
	t.Helper()

	resp, err := h.GET("/api/dashboard")
	if err != nil {
		t.Fatalf("Failed to get dashboard: %v", err)
	}
	h.AssertStatusCode(resp, http.StatusOK)

	var dash struct {
		GeneratedAt string `json:"generated_at"`
		Summary     struct {
			CompaniesTotal int            `json:"companies_total"`
			LatestRows     int            `json:"latest_rows"`
			InScopeTotal   int            `json:"in_scope_total"`
			States         map[string]int `json:"states"`
		} `json:"summary"`
		LatestState []struct {
			Ticker        string                 `json:"ticker"`
			State         string                 `json:"state"`
			Price1M       interface{}            `json:"price_1m"`
			PriceMetrics  map[string]interface{} `json:"price_metrics"`
			PressureScore *float64               `json:"pressure_score"`
			PressureGrade string                 `json:"pressure_grade"`
			Stale         bool                   `json:"stale"`
		} `json:"latest_state"`
	}
	if err := h.ParseJSONResponse(resp, &dash); err != nil {
		t.Fatalf("Failed to parse dashboard: %v", err)
	}

	if dash.GeneratedAt == "" {
		t.Error("Dashboard missing generated_at")
	}
	if dash.Summary.CompaniesTotal != 3 {
		t.Errorf("Expected 3 companies, got %d", dash.Summary.CompaniesTotal)
	}
	if dash.Summary.InScopeTotal != 2 {
		t.Errorf("Expected 2 in-scope companies, got %d", dash.Summary.InScopeTotal)
	}
	if dash.Summary.LatestRows != 3 {
		t.Errorf("Expected 3 latest-state rows, got %d", dash.Summary.LatestRows)
	}
	if dash.Summary.States["MONITOR"] != 2 || dash.Summary.States["IGNORE"] != 1 {
		t.Errorf("Unexpected state distribution: %v", dash.Summary.States)
	}

	for _, row := range dash.LatestState {
		if row.Price1M != nil {
			t.Errorf("%s: price_1m should be null with quotes disabled", row.Ticker)
		}
		for name, value := range row.PriceMetrics {
			if value != nil {
				t.Errorf("%s: price metric %s should be null", row.Ticker, name)
			}
		}
		if row.Stale {
			t.Errorf("%s: fresh evaluation should not be stale", row.Ticker)
		}

		switch row.Ticker {
		case "W":
			if row.State != "IGNORE" {
				t.Errorf("W: expected IGNORE, got %s", row.State)
			}
			if row.PressureGrade != "OUT_OF_SCOPE" {
				t.Errorf("W: expected grade OUT_OF_SCOPE, got %s", row.PressureGrade)
			}
			if row.PressureScore != nil {
				t.Error("W: out-of-scope score should be null")
			}
		case "BYND", "PTON":
			if row.State != "MONITOR" {
				t.Errorf("%s: expected MONITOR, got %s", row.Ticker, row.State)
			}
			if row.PressureGrade != "STABLE" {
				t.Errorf("%s: expected grade STABLE, got %s", row.Ticker, row.PressureGrade)
			}
			if row.PressureScore == nil || *row.PressureScore != 0 {
				t.Errorf("%s: expected pressure score 0, got %v", row.Ticker, row.PressureScore)
			}
		}
	}
}

// verifyDashboardExport waits for the post-run export hook to write the
// snapshot file.
func verifyDashboardExport(t *testing.T) {
	t.Helper()

	if err := Retry(func() error {
		info, err := os.Stat(testConfig.Dashboard.Path)
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return fmt.Errorf("dashboard file still empty")
		}
		return nil
	}, 25, 200*time.Millisecond); err != nil {
		t.Errorf("Dashboard export never appeared at %s: %v", testConfig.Dashboard.Path, err)
	}
}
