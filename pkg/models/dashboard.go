package models

import "encoding/json"

// Dashboard is the exported snapshot consumed by the static dashboard
// page and any downstream tooling. Field names are part of the public
// contract; changing them breaks external readers.
type Dashboard struct {
	GeneratedAt string       `json:"generated_at"`
	Summary     Summary      `json:"summary"`
	Companies   []CompanyRow `json:"companies"`
	LatestState []StateRow   `json:"latest_state"`
	Events      []EventRow   `json:"events"`
}

// Summary aggregates the snapshot for the dashboard header.
type Summary struct {
	CompaniesTotal    int            `json:"companies_total"`
	LatestRows        int            `json:"latest_rows"`
	InScopeTotal      int            `json:"in_scope_total"`
	States            map[string]int `json:"states"`
	Prices1MAvailable int            `json:"prices_1m_available"`
	PressureGrades    map[string]int `json:"pressure_grades"`
}

// CompanyRow is one watch-list entry as exported.
type CompanyRow struct {
	CompanyID string `json:"company_id"`
	Ticker    string `json:"ticker"`
	CIK       string `json:"cik"`
	Bucket    string `json:"bucket,omitempty"`
	InScope   bool   `json:"in_scope"`
}

// StateRow is one company's latest evaluation enriched with price data
// and the pressure grade.
type StateRow struct {
	CompanyID           string          `json:"company_id"`
	Ticker              string          `json:"ticker"`
	Bucket              string          `json:"bucket,omitempty"`
	InScope             bool            `json:"in_scope"`
	AsOf                string          `json:"as_of"`
	State               string          `json:"state"`
	Condition1          bool            `json:"condition_1"`
	Condition2          bool            `json:"condition_2"`
	Condition3          bool            `json:"condition_3"`
	Condition4          bool            `json:"condition_4"`
	Details             json.RawMessage `json:"details,omitempty"`
	Price1M             *Price1M        `json:"price_1m"`
	PriceMetrics        PriceMetrics    `json:"price_metrics"`
	PressureScore       *int            `json:"pressure_score"`
	PressureGrade       string          `json:"pressure_grade"`
	TriggeredConditions []string        `json:"triggered_conditions"`
	Stale               bool            `json:"stale"`
}

// Price1M is a one-month close-price window.
type Price1M struct {
	Closes    []float64 `json:"closes"`
	PctChange float64   `json:"pct_change"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Source    string    `json:"source"`
}

// PriceMetrics fields are pointers so missing quotes export as null
// rather than a misleading zero.
type PriceMetrics struct {
	Return1MPct   *float64 `json:"return_1m_pct"`
	Drawdown1MPct *float64 `json:"drawdown_1m_pct"`
	Vol1MDailyPct *float64 `json:"vol_1m_daily_pct"`
}

// EventRow is one state transition as exported.
type EventRow struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	Ticker    string          `json:"ticker"`
	AsOf      string          `json:"as_of"`
	PrevState string          `json:"prev_state"`
	NewState  string          `json:"new_state"`
	Payload   json.RawMessage `json:"event,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// Pressure grade labels.
const (
	GradeStable     = "STABLE"
	GradeWatch      = "WATCH"
	GradeElevated   = "ELEVATED"
	GradeCritical   = "CRITICAL"
	GradeOutOfScope = "OUT_OF_SCOPE"
)
