package models

import (
	"strings"
	"time"
)

// State is the escalation classification of a company.
// The lattice is one-directional: MONITOR -> TRACK -> TERMINAL, with
// IGNORE reserved for out-of-scope companies. TERMINAL is absorbing.
type State string

const (
	StateIgnore   State = "IGNORE"
	StateMonitor  State = "MONITOR"
	StateTrack    State = "TRACK"
	StateTerminal State = "TERMINAL"
)

// DefaultState is assigned to any company with no persisted history.
const DefaultState = StateMonitor

// ParseState converts a stored string into a State, defaulting to
// MONITOR for unknown or empty values.
func ParseState(s string) State {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StateIgnore:
		return StateIgnore
	case StateMonitor:
		return StateMonitor
	case StateTrack:
		return StateTrack
	case StateTerminal:
		return StateTerminal
	default:
		return DefaultState
	}
}

// IsValid reports whether s is one of the four defined states.
func (s State) IsValid() bool {
	switch s {
	case StateIgnore, StateMonitor, StateTrack, StateTerminal:
		return true
	}
	return false
}

// StateRecord is one persisted evaluation outcome for a company.
// Keyed by CompanyID + AsOf; re-running an evaluation for the same
// as-of date overwrites the prior record rather than duplicating it.
type StateRecord struct {
	CompanyID string         `json:"company_id" badgerhold:"index"`
	AsOf      string         `json:"as_of"` // evaluation date, "2006-01-02"
	State     State          `json:"state"`
	Flags     ConditionFlags `json:"flags"`
	Details   []byte         `json:"details,omitempty"` // JSON diagnostic envelope
	CreatedAt time.Time      `json:"created_at"`
}

// Key returns the storage key for this record.
func (r *StateRecord) Key() string {
	return r.CompanyID + "|" + r.AsOf
}

// StateEvent records a state transition for a company. Events are only
// written when the new state differs from the previous one.
type StateEvent struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id" badgerhold:"index"`
	Ticker    string    `json:"ticker"`
	AsOf      string    `json:"as_of"`
	PrevState State     `json:"prev_state"`
	NewState  State     `json:"new_state"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
