// Package state implements the escalation state machine: a pure
// function folding the four condition flags and the prior state into
// the next classification. No I/O, no hidden state; safe from any
// number of concurrent callers.
package state

import "github.com/ternarybob/caveo/internal/models"

// Next computes the successor state for one company.
//
// Rules, in priority order:
//  1. Out of scope -> IGNORE, overriding everything else.
//  2. Insufficient data -> MONITOR.
//  3. condition_1 false -> MONITOR. The hard disqualifier applies
//     regardless of prior state: no escalation holds without the
//     demand/margin pressure signal.
//  4. Otherwise dispatch on the prior state:
//     MONITOR -> TRACK iff condition_2 AND condition_4, else MONITOR.
//     TRACK -> TERMINAL iff condition_3, else TRACK.
//     TERMINAL -> TERMINAL.
//     IGNORE (back in scope) re-enters through the MONITOR branch.
//
// The lattice is one-directional while the gates hold: MONITOR ->
// TRACK -> TERMINAL, with no de-escalation edge of its own. Only the
// scope, data, and condition_1 gates reset a company backwards.
func Next(inp models.EvaluationInput) models.State {
	if !inp.InScope {
		return models.StateIgnore
	}
	if !inp.HasSufficientData {
		return models.StateMonitor
	}
	if !inp.Flags.Condition1 {
		return models.StateMonitor
	}

	switch inp.PrevState {
	case models.StateTrack:
		if inp.Flags.Condition3 {
			return models.StateTerminal
		}
		return models.StateTrack
	case models.StateTerminal:
		return models.StateTerminal
	default:
		// MONITOR, a re-scoped IGNORE, and anything unrecognized all
		// enter the lattice at the MONITOR rule.
		if inp.Flags.Condition2 && inp.Flags.Condition4 {
			return models.StateTrack
		}
		return models.StateMonitor
	}
}
