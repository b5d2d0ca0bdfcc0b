// Package signals provides pure condition evaluators for quarterly
// disclosure pressure signals. All functions are stateless and perform
// no I/O; resolved fact documents come in, typed results with
// diagnostics come out.
package signals

// Thresholds for the condition evaluators. See the per-condition doc
// comments for how each is applied.
const (
	// RevenueDropThreshold is the per-transition quarter-over-quarter
	// growth ceiling for the revenue deceleration sub-signal.
	RevenueDropThreshold = -0.02

	// LowMarginThreshold is the ceiling the most recent margin must sit
	// at or below for the margin failure sub-signal.
	LowMarginThreshold = 0.01

	// CapexSpikeRatio is the minimum last-quarter over prior-4-average
	// ratio for the capex spike signal.
	CapexSpikeRatio = 1.75

	// CapexMinQuarters is how many quarterly capex points the spike
	// calculation needs: the spike quarter plus a 4-quarter baseline,
	// with one quarter of slack.
	CapexMinQuarters = 6

	// SnippetWindow is how many characters of context are captured on
	// each side of a keyword hit.
	SnippetWindow = 220
)

// Margin source labels for Condition 1 diagnostics.
const (
	MarginSourceGrossProfit     = "gross_profit"
	MarginSourceOperatingIncome = "operating_income"
)

// Diagnostic reasons attached when a condition defaults to false.
const (
	ReasonMissingConcept       = "missing_concept"
	ReasonInsufficientQuarters = "insufficient_quarters"
)

// Condition1Components holds the revenue/margin sub-signal details.
type Condition1Components struct {
	RevenueTag   string    `json:"revenue_tag"`
	MarginTag    string    `json:"margin_tag"`
	MarginSource string    `json:"margin_source"`
	GrowthRates  []float64 `json:"growth_rates"`
	Margins      []float64 `json:"margins"`
	LastDate     string    `json:"last_date"`
}

// Condition1Result is the output of EvaluateCondition1.
type Condition1Result struct {
	Triggered           bool                 `json:"condition_1"`
	RevenueDeceleration bool                 `json:"revenue_deceleration"`
	MarginFailure       bool                 `json:"margin_failure"`
	Components          Condition1Components `json:"components"`
	Reasoning           string               `json:"reasoning"`
}

// NoSlopeImprovement is the composite sub-signal reused by Conditions 3
// and 4: both pressure sub-signals firing at once, independent of how
// condition_1 itself combines them.
func (r Condition1Result) NoSlopeImprovement() bool {
	return r.RevenueDeceleration && r.MarginFailure
}

// Condition2Components holds the capex spike calculation details.
type Condition2Components struct {
	CapexTag string   `json:"capex_tag,omitempty"`
	Quarters int      `json:"quarters"`
	Ratio    *float64 `json:"ratio,omitempty"`
}

// Condition2Result is the output of EvaluateCondition2.
type Condition2Result struct {
	Triggered  bool                 `json:"condition_2"`
	Components Condition2Components `json:"components"`
	Reason     string               `json:"reason,omitempty"`
	Reasoning  string               `json:"reasoning"`
}

// Condition3Components holds the spend/burn persistence details.
type Condition3Components struct {
	CapexTag           string `json:"capex_tag,omitempty"`
	RNDTag             string `json:"rnd_tag,omitempty"`
	OCFTag             string `json:"ocf_tag,omitempty"`
	CapexContinues     bool   `json:"capex_continues"`
	RNDContinues       bool   `json:"rnd_continues"`
	CashBurnPersists   bool   `json:"cash_burn_persists"`
	NoSlopeImprovement bool   `json:"no_slope_improvement"`
}

// Condition3Result is the output of EvaluateCondition3.
type Condition3Result struct {
	Triggered  bool                 `json:"condition_3"`
	Components Condition3Components `json:"components"`
	Reason     string               `json:"reason,omitempty"`
	Reasoning  string               `json:"reasoning"`
}

// Condition4Components holds the matched filing and snippet.
type Condition4Components struct {
	Accession          string `json:"filing_accession,omitempty"`
	Keyword            string `json:"keyword,omitempty"`
	Snippet            string `json:"snippet,omitempty"`
	FilingsScanned     int    `json:"filings_scanned"`
	NoSlopeImprovement bool   `json:"no_slope_improvement"`
}

// Condition4Result is the output of EvaluateCondition4.
type Condition4Result struct {
	Triggered          bool                 `json:"condition_4"`
	InitiativeDetected bool                 `json:"initiative_detected"`
	Components         Condition4Components `json:"components"`
	Reasoning          string               `json:"reasoning"`
}

// Evaluation bundles the four condition results into the details
// envelope persisted alongside a state record.
type Evaluation struct {
	C1 Condition1Result `json:"c1"`
	C2 Condition2Result `json:"c2"`
	C3 Condition3Result `json:"c3"`
	C4 Condition4Result `json:"c4"`
}
