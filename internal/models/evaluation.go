package models

import "time"

// ConditionFlags are the four boolean pressure signals feeding the
// escalation state machine. Condition 1 is the hard gate; Condition 4
// is best-effort and defaults to false when text scanning fails.
type ConditionFlags struct {
	Condition1 bool `json:"condition_1"`
	Condition2 bool `json:"condition_2"`
	Condition3 bool `json:"condition_3"`
	Condition4 bool `json:"condition_4"`
}

// EvaluationInput is the complete input to the state machine for one
// company and one cycle. Constructed fresh per evaluation, never mutated.
type EvaluationInput struct {
	InScope           bool
	HasSufficientData bool
	PrevState         State
	Flags             ConditionFlags
}

// EntityOutcome classifies how a single company's evaluation ended.
type EntityOutcome string

const (
	// OutcomeEvaluated means the full pipeline ran and a state was written.
	OutcomeEvaluated EntityOutcome = "evaluated"
	// OutcomeSkipped means the company was not evaluated this cycle
	// (insufficient series data); nothing was written and the prior
	// state stands until a later cycle succeeds.
	OutcomeSkipped EntityOutcome = "skipped"
	// OutcomeFailed means an unexpected error stopped this company's
	// evaluation; no state was written and the prior state stands.
	OutcomeFailed EntityOutcome = "failed"
)

// EntityResult is the per-company outcome of a batch run.
type EntityResult struct {
	CompanyID string        `json:"company_id"`
	Ticker    string        `json:"ticker"`
	Outcome   EntityOutcome `json:"outcome"`
	State     State         `json:"state,omitempty"`
	PrevState State         `json:"prev_state,omitempty"`
	Changed   bool          `json:"changed"`
	Reason    string        `json:"reason,omitempty"`
}

// BatchReport summarizes one evaluation run across the watch-list.
type BatchReport struct {
	RunID      string         `json:"run_id"`
	AsOf       string         `json:"as_of"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []EntityResult `json:"results"`
	Evaluated  int            `json:"evaluated"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Changed    int            `json:"changed"`
}

// Tally recomputes the outcome counters from Results.
func (b *BatchReport) Tally() {
	b.Evaluated, b.Skipped, b.Failed, b.Changed = 0, 0, 0, 0
	for _, r := range b.Results {
		switch r.Outcome {
		case OutcomeEvaluated:
			b.Evaluated++
		case OutcomeSkipped:
			b.Skipped++
		case OutcomeFailed:
			b.Failed++
		}
		if r.Changed {
			b.Changed++
		}
	}
}
